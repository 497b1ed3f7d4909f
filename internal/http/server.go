package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"cashflow/internal/core"
	applog "cashflow/internal/log"
	"cashflow/internal/middleware/ratelimit"
	"cashflow/internal/middleware/security"
	"cashflow/internal/middleware/trace"
	"cashflow/internal/scope"
)

// Ledger records, deletes and lists transactions.
type Ledger interface {
	RecordTransaction(ctx context.Context, profileID int64, in core.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, profileID, id int64) (core.DeletionResult, error)
	ListTransactions(ctx context.Context, profileID int64, walletID *int64) ([]core.Transaction, error)
}

type Wallets interface {
	ListWallets(ctx context.Context, profileID int64) ([]core.Wallet, error)
	UpdateWallet(ctx context.Context, profileID int64, u core.WalletUpdate) error
}

type Stats interface {
	Compute(ctx context.Context, profileID int64, filter core.StatsFilter) (core.Stats, error)
}

type Auditor interface {
	AuditWallet(ctx context.Context, profileID, walletID int64) (core.WalletAudit, error)
}

// Catalog serves read-only reference data and readiness.
type Catalog interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListProfiles(ctx context.Context) ([]core.Profile, error)
	Ping(ctx context.Context) error
}

// Services bundles the handlers' dependencies.
type Services struct {
	Ledger  Ledger
	Wallets Wallets
	Stats   Stats
	Auditor Auditor
	Catalog Catalog
}

// Options tunes the middleware chain.
type Options struct {
	Resolver           *scope.Resolver
	Detector           *security.Detector
	CORSAllowOrigin    string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	svc     Services
	limiter *ratelimit.Limiter
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.Resolver == nil {
		opts.Resolver = scope.NewResolver(scope.DefaultHeader, scope.DefaultProfile)
	}
	if opts.Detector == nil {
		opts.Detector, _ = security.NewDetector()
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentHTTP})
	}

	s := &Server{
		svc: svc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
		}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/transactions/", s.handleTransactionByID)
	mux.HandleFunc("/api/wallets", s.handleWallets)
	mux.HandleFunc("/api/wallets/audit", s.handleWalletAudit)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/profiles", s.handleProfiles)

	cors := security.DefaultCORSConfig(opts.Resolver.Header())
	cors.AllowOrigin = opts.CORSAllowOrigin

	onLimit := func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			applog.FieldClientIP, opts.Detector.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		RateLimitError().Write(w)
	}

	// outermost first
	var handler http.Handler = mux
	handler = opts.Resolver.Middleware(handler)
	handler = applog.Middleware(opts.Logger, trace.FromRequest)(handler)
	handler = s.limiter.Middleware(opts.Detector.ExtractClientIP, onLimit)(handler)
	handler = security.CORS(cors)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = opts.Detector.Middleware(handler)
	handler = trace.NewMiddleware(opts.Detector.ExtractClientIP).Middleware(handler)

	s.Addr = addr
	s.Handler = handler
	s.ReadHeaderTimeout = 10 * time.Second
	s.ReadTimeout = 30 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 120 * time.Second
	s.MaxHeaderBytes = 1 << 16 // 64KB
	return s
}

// Shutdown drains connections and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// profileFrom returns the profile resolved by the scope middleware.
func profileFrom(r *http.Request) int64 {
	if id, ok := scope.FromContext(r.Context()); ok {
		return id
	}
	return scope.DefaultProfile
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.Catalog.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, applog.ErrorTypeDatabase, "database unavailable").Write(w)
		return
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
