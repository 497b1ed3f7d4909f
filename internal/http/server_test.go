package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/scope"
	"cashflow/internal/services"
	"cashflow/internal/storage"
)

type testServer struct {
	srv  *Server
	repo *storage.SQLiteRepository
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	stats := services.NewStatsService(repo, core.DefaultCurrency, cache.NewLRUCache[core.Stats](16, time.Minute))
	svc := Services{
		Ledger:  services.NewLedgerService(repo, services.WithChangeListener(stats.Invalidate)),
		Wallets: services.NewWalletService(repo, stats.Invalidate),
		Stats:   stats,
		Auditor: services.NewAuditService(repo, 2),
		Catalog: repo,
	}
	if opts.Resolver == nil {
		opts.Resolver = scope.NewResolver("X-Profile-ID", 1)
	}
	if opts.RateLimitPerMinute == 0 {
		opts.RateLimitPerMinute = 1000
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{srv: srv, repo: repo}
}

// do sends a request as the given profile; "" sends no profile header.
func (ts *testServer) do(t *testing.T, method, target, body string, profile string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if profile != "" {
		req.Header.Set("X-Profile-ID", profile)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func walletBalance(t *testing.T, ts *testServer, profile string, id int64) string {
	t.Helper()
	rec := ts.do(t, http.MethodGet, "/api/wallets", "", profile)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/wallets status = %d", rec.Code)
	}
	for _, w := range decode[[]walletResponse](t, rec) {
		if w.ID == id {
			return w.Balance.String()
		}
	}
	t.Fatalf("wallet %d not listed for profile %q", id, profile)
	return ""
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rec := ts.do(t, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}

	ts.repo.Close()
	if rec := ts.do(t, http.MethodGet, "/readyz", "", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with closed database status = %d, want 503", rec.Code)
	}
}

func TestRecordAndDeleteRoundTrip(t *testing.T) {
	ts := newTestServer(t, Options{})

	before := walletBalance(t, ts, "1", 1)
	if before != "15200000.00" {
		t.Fatalf("seed balance = %s, want 15200000.00", before)
	}

	rec := ts.do(t, http.MethodPost, "/api/transactions",
		`{"title":"Lunch","amount":50000,"category":"Food","walletId":1,"date":"2024-05-01"}`, "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body %s", rec.Code, rec.Body.String())
	}
	tx := decode[transactionResponse](t, rec)
	if tx.Amount.String() != "-50000.00" {
		t.Errorf("amount = %s, want -50000.00", tx.Amount)
	}
	if tx.Date != "2024-05-01T00:00:00Z" {
		t.Errorf("date = %s", tx.Date)
	}
	if tx.ProfileID != 1 || tx.WalletID == nil || *tx.WalletID != 1 {
		t.Errorf("unexpected scope: %+v", tx)
	}

	if got := walletBalance(t, ts, "1", 1); got != "15150000.00" {
		t.Errorf("balance after record = %s, want 15150000.00", got)
	}

	target := "/api/transactions/" + itoa(tx.ID)
	rec = ts.do(t, http.MethodDelete, target, "", "1")
	if rec.Code != http.StatusOK || !decode[map[string]bool](t, rec)["deleted"] {
		t.Fatalf("first delete: status %d body %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodDelete, "/api/transactions?id="+itoa(tx.ID), "", "1")
	if rec.Code != http.StatusOK || decode[map[string]bool](t, rec)["deleted"] {
		t.Fatalf("second delete: status %d body %s", rec.Code, rec.Body.String())
	}

	if got := walletBalance(t, ts, "1", 1); got != before {
		t.Errorf("balance after delete = %s, want %s", got, before)
	}
}

func TestRecordTransaction_Errors(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantType string
	}{
		{"malformed json", `{"title":`, http.StatusBadRequest, "validation_error"},
		{"unknown field", `{"title":"x","amount":1,"category":"Food","extra":true}`, http.StatusBadRequest, "validation_error"},
		{"trailing data", `{"title":"x","amount":1,"category":"Food"} {}`, http.StatusBadRequest, "validation_error"},
		{"missing title", `{"amount":1,"category":"Food"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"missing amount", `{"title":"x","category":"Food"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"zero amount", `{"title":"x","amount":0.001,"category":"Food"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"unknown category", `{"title":"x","amount":1,"category":"Nope"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"bad date", `{"title":"x","amount":1,"category":"Food","date":"yesterday"}`, http.StatusUnprocessableEntity, "validation_error"},
		{"negative wallet", `{"title":"x","amount":1,"category":"Food","walletId":-1}`, http.StatusUnprocessableEntity, "validation_error"},
		{"other profile's wallet", `{"title":"x","amount":1,"category":"Food","walletId":4}`, http.StatusNotFound, "not_found_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/api/transactions", tt.body, "1")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			body := decode[errorBody](t, rec)
			if body.Code != tt.wantType || body.Error == "" {
				t.Errorf("body = %+v, want code %q", body, tt.wantType)
			}
		})
	}

	rec := ts.do(t, http.MethodGet, "/api/transactions", "", "1")
	if n := len(decode[[]transactionResponse](t, rec)); n != 0 {
		t.Errorf("rejected requests wrote %d transactions", n)
	}
}

func TestRecordTransaction_DuplicateIDConflict(t *testing.T) {
	ts := newTestServer(t, Options{})
	body := `{"id":1714550400000,"title":"Coffee","amount":"25000","category":"Food","walletId":2}`

	if rec := ts.do(t, http.MethodPost, "/api/transactions", body, "1"); rec.Code != http.StatusOK {
		t.Fatalf("first POST status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/transactions", body, "1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second POST status = %d, want 409", rec.Code)
	}
	if got := decode[errorBody](t, rec).Code; got != "conflict_error" {
		t.Errorf("code = %q", got)
	}
	if got := walletBalance(t, ts, "1", 2); got != "425000.00" {
		t.Errorf("balance = %s, want only one debit (425000.00)", got)
	}
}

func TestProfileIsolation(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/transactions",
		`{"title":"Client lunch","amount":100,"category":"Food","walletId":5}`, "2")
	if rec.Code != http.StatusOK {
		t.Fatalf("POST status = %d body %s", rec.Code, rec.Body.String())
	}
	tx := decode[transactionResponse](t, rec)

	// default profile 1 sees nothing and cannot delete it
	if n := len(decode[[]transactionResponse](t, ts.do(t, http.MethodGet, "/api/transactions", "", ""))); n != 0 {
		t.Errorf("profile 1 sees %d transactions", n)
	}
	rec = ts.do(t, http.MethodDelete, "/api/transactions/"+itoa(tx.ID), "", "1")
	if decode[map[string]bool](t, rec)["deleted"] {
		t.Error("profile 1 deleted a profile 2 transaction")
	}
	if n := len(decode[[]transactionResponse](t, ts.do(t, http.MethodGet, "/api/transactions?wallet_id=5", "", "2"))); n != 1 {
		t.Errorf("profile 2 sees %d transactions on wallet 5, want 1", n)
	}
	if got := walletBalance(t, ts, "2", 5); got != "400.00" {
		t.Errorf("wallet 5 balance = %s, want 400.00", got)
	}
}

func TestUpdateWallet(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name     string
		profile  string
		body     string
		wantCode int
	}{
		{"rename", "1", `{"id":3,"name":"Petty cash"}`, http.StatusOK},
		{"overwrite balance", "1", `{"id":3,"balance":"123.456"}`, http.StatusOK},
		{"nothing to change", "1", `{"id":3}`, http.StatusUnprocessableEntity},
		{"missing id", "1", `{"name":"x"}`, http.StatusUnprocessableEntity},
		{"other profile", "2", `{"id":3,"name":"stolen"}`, http.StatusNotFound},
		{"unknown field", "1", `{"id":3,"currency":"USD"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPut, "/api/wallets", tt.body, tt.profile)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK && !decode[map[string]bool](t, rec)["success"] {
				t.Errorf("body = %s", rec.Body.String())
			}
		})
	}

	if got := walletBalance(t, ts, "1", 3); got != "123.46" {
		t.Errorf("balance = %s, want 123.46", got)
	}

	rec := ts.do(t, http.MethodGet, "/api/wallets/audit?id=3", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("audit status = %d", rec.Code)
	}
	if audit := decode[auditResponse](t, rec); audit.Consistent {
		t.Errorf("manual overwrite should show as drift: %+v", audit)
	}
}

func TestWalletAudit(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.do(t, http.MethodPost, "/api/transactions", `{"title":"Pay","amount":1000,"category":"Salary","walletId":1}`, "1")

	rec := ts.do(t, http.MethodGet, "/api/wallets/audit?id=1", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	audit := decode[auditResponse](t, rec)
	if !audit.Consistent || audit.Transactions != 1 || audit.LedgerSum.String() != "1000.00" {
		t.Errorf("audit = %+v", audit)
	}

	for _, target := range []string{"/api/wallets/audit?id=4", "/api/wallets/audit?id=x"} {
		rec := ts.do(t, http.MethodGet, target, "", "1")
		if rec.Code != http.StatusNotFound && rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s status = %d", target, rec.Code)
		}
	}
}

func TestStats(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/stats?from=2024-05-01&to=2024-05-31", "", "1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n := len(decode[statsResponse](t, rec).Currencies); n != 0 {
		t.Fatalf("empty ledger reports %d currencies", n)
	}

	for _, body := range []string{
		`{"title":"Pay","amount":1000,"category":"Salary","walletId":1,"date":"2024-05-01"}`,
		`{"title":"Hotel","amount":250,"category":"Bills","walletId":101,"date":"2024-05-31T22:00:00Z"}`,
		`{"title":"Later","amount":99,"category":"Food","walletId":1,"date":"2024-06-01"}`,
	} {
		if rec := ts.do(t, http.MethodPost, "/api/transactions", body, "1"); rec.Code != http.StatusOK {
			t.Fatalf("POST status = %d body %s", rec.Code, rec.Body.String())
		}
	}

	// the cached empty report must have been invalidated by the writes
	stats := decode[statsResponse](t, ts.do(t, http.MethodGet, "/api/stats?from=2024-05-01&to=2024-05-31", "", "1"))
	if stats.From != "2024-05-01" || stats.To != "2024-05-31" {
		t.Errorf("range = %s..%s", stats.From, stats.To)
	}
	if len(stats.Currencies) != 2 {
		t.Fatalf("currencies = %+v, want IDR and USD", stats.Currencies)
	}
	idr, usd := stats.Currencies[0], stats.Currencies[1]
	if idr.Currency != "IDR" || idr.Income.String() != "1000.00" || idr.Count != 1 {
		t.Errorf("IDR = %+v", idr)
	}
	if usd.Currency != "USD" || usd.Expense.String() != "250.00" || usd.Net.String() != "-250.00" {
		t.Errorf("USD = %+v", usd)
	}

	if rec := ts.do(t, http.MethodGet, "/api/stats?from=2024-06-01&to=2024-05-01", "", "1"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("inverted range status = %d", rec.Code)
	}
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t, Options{})

	cats := decode[[]categoryResponse](t, ts.do(t, http.MethodGet, "/api/categories", "", ""))
	if len(cats) != 9 || cats[0].Name != "Bills" {
		t.Errorf("categories = %+v", cats)
	}
	profiles := decode[[]profileResponse](t, ts.do(t, http.MethodGet, "/api/profiles", "", ""))
	if len(profiles) != 2 || profiles[0].ID != 1 || profiles[1].Name != "Business" {
		t.Errorf("profiles = %+v", profiles)
	}
}

func TestCORSAndMethods(t *testing.T) {
	ts := newTestServer(t, Options{CORSAllowOrigin: "https://app.example"})

	rec := ts.do(t, http.MethodOptions, "/api/transactions", "", "")
	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "X-Profile-ID") {
		t.Errorf("Allow-Headers = %q", rec.Header().Get("Access-Control-Allow-Headers"))
	}

	rec = ts.do(t, http.MethodGet, "/api/wallets", "", "")
	if rec.Header().Get("Access-Control-Allow-Origin") == "" || rec.Header().Get("X-Request-ID") == "" {
		t.Error("GET response missing CORS or request id header")
	}

	if rec := ts.do(t, http.MethodPatch, "/api/wallets", "", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("PATCH status = %d, want 405", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/api/transactions/5", "", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET by id status = %d, want 405", rec.Code)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	ts := newTestServer(t, Options{RateLimitPerMinute: 1})
	body := `{"title":"x","amount":1,"category":"Food"}`

	if rec := ts.do(t, http.MethodPost, "/api/transactions", body, "1"); rec.Code != http.StatusOK {
		t.Fatalf("first POST status = %d", rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/transactions", body, "1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST status = %d, want 429", rec.Code)
	}
	if got := decode[errorBody](t, rec).Code; got != "rate_limit_error" {
		t.Errorf("code = %q", got)
	}
	if rec := ts.do(t, http.MethodGet, "/api/transactions", "", "1"); rec.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status = %d", rec.Code)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
