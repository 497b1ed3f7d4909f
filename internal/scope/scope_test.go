package scope

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	r := NewResolver("", 1)
	tests := []struct {
		hint string
		want int64
	}{
		{"", 1},
		{"2", 2},
		{" 7 ", 7},
		{"0", 1},
		{"-3", 1},
		{"abc", 1},
		{"2x", 1},
		{"99999999999999999999", 1},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.hint); got != tt.want {
			t.Errorf("Resolve(%q) = %d, want %d", tt.hint, got, tt.want)
		}
	}
}

func TestNewResolverDefaults(t *testing.T) {
	r := NewResolver("  ", -5)
	if r.Header() != DefaultHeader {
		t.Errorf("Header() = %q, want %q", r.Header(), DefaultHeader)
	}
	if r.Default() != DefaultProfile {
		t.Errorf("Default() = %d, want %d", r.Default(), DefaultProfile)
	}
}

func TestMiddlewareStoresProfile(t *testing.T) {
	r := NewResolver("X-Tenant", 3)

	var got int64
	var ok bool
	h := r.Middleware(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got, ok = FromContext(req.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Tenant", "2")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got != 2 {
		t.Fatalf("expected profile 2 in context, got %d (ok=%v)", got, ok)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if !ok || got != 3 {
		t.Fatalf("expected default profile 3 in context, got %d (ok=%v)", got, ok)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("expected no profile in empty context")
	}
}
