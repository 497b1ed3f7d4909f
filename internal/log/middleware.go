package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// Middleware stores a request-scoped logger in the context, carrying the
// request id when extractRequestID finds one.
func Middleware(logger *Logger, extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scoped := logger
			if extractRequestID != nil {
				if id := extractRequestID(r); id != "" {
					scoped = logger.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), scoped)))
		})
	}
}

func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one over slog.Default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger logs ledger outcomes with a consistent field set.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogLedgerMutation logs a committed write to the ledger.
func (sl *StructuredLogger) LogLedgerMutation(ctx context.Context, op string, profileID, transactionID, amountCents int64, walletID *int64) {
	fields := NewFields().
		WithOperation(op).
		WithProfile(profileID).
		WithTransaction(transactionID, amountCents, walletID)

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Ledger mutated", fields.ToSlice()...)
}

// LogError logs at Warn for client errors and Error otherwise.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, component, operation string) {
	fields := NewFields().
		WithError(err).
		WithErrorType(errorType).
		WithOperation(operation)

	l := sl.logger.WithComponent(component)
	switch errorType {
	case ErrorTypeValidation, ErrorTypeNotFound, ErrorTypeConflict, ErrorTypeRateLimit:
		l.WarnContext(ctx, msg, fields.ToSlice()...)
	default:
		l.ErrorContext(ctx, msg, fields.ToSlice()...)
	}
}
