// Package http exposes the ledger as a JSON API.
//
// This file implements the builder used by every handler to write JSON
// responses and the mapping from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse creates a JSON error body with the given code.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, applog.ErrorTypeValidation, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, applog.ErrorTypeValidation, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, applog.ErrorTypeNotFound, message)
}

func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, applog.ErrorTypeConflict, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, applog.ErrorTypeDatabase, message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, applog.ErrorTypeValidation, "method not allowed").
		Header("Allow", allowedMethods)
}

func RateLimitError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, applog.ErrorTypeRateLimit, "rate limit exceeded, try again later")
}

// FromError maps a domain error onto a response. Store failures never leak
// their cause to the client.
func FromError(err error) *JSONResponseBuilder {
	var (
		ve *core.ValidationError
		nf *core.NotFoundError
		se *core.StoreError
	)
	switch {
	case errors.As(err, &ve):
		return UnprocessableEntityError(ve.Error())
	case errors.As(err, &nf):
		return NotFoundError(nf.Error())
	case errors.As(err, &se) && se.Conflict:
		return ConflictError(strings.TrimPrefix(se.Error(), "store "))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorResponse(http.StatusServiceUnavailable, applog.ErrorTypeInternal, "request cancelled")
	default:
		return InternalServerError("database error")
	}
}

func errorType(err error) string {
	switch {
	case core.IsValidation(err):
		return applog.ErrorTypeValidation
	case core.IsNotFound(err):
		return applog.ErrorTypeNotFound
	case core.IsConflict(err):
		return applog.ErrorTypeConflict
	case core.IsStore(err):
		return applog.ErrorTypeDatabase
	default:
		return applog.ErrorTypeInternal
	}
}

// writeError logs err with the request logger and writes the mapped response.
func writeError(ctx context.Context, w http.ResponseWriter, err error, operation string) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogError(ctx, "Request failed", err, errorType(err), applog.ComponentHTTP, operation)
	FromError(err).Write(w)
}
