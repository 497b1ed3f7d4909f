// Package scope resolves the active profile (tenant) for a request.
//
// Every store query is filtered or tagged with the resolved profile id.
// Resolution never fails: an absent or malformed hint yields the default.
package scope

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultHeader         = "X-Profile-ID"
	DefaultProfile  int64 = 1
)

type ContextKey string

const profileContextKey ContextKey = "profile_id"

// Resolver derives a profile id from an identity hint.
type Resolver struct {
	header   string
	fallback int64
}

// NewResolver returns a resolver reading the given header. An empty header
// name or a non-positive default falls back to the package defaults.
func NewResolver(header string, fallback int64) *Resolver {
	if strings.TrimSpace(header) == "" {
		header = DefaultHeader
	}
	if fallback <= 0 {
		fallback = DefaultProfile
	}
	return &Resolver{header: header, fallback: fallback}
}

func (r *Resolver) Header() string {
	return r.header
}

func (r *Resolver) Default() int64 {
	return r.fallback
}

// Resolve parses hint as a positive integer profile id.
func (r *Resolver) Resolve(hint string) int64 {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return r.fallback
	}
	id, err := strconv.ParseInt(hint, 10, 64)
	if err != nil || id <= 0 {
		return r.fallback
	}
	return id
}

// FromRequest resolves the profile from the configured request header.
func (r *Resolver) FromRequest(req *http.Request) int64 {
	return r.Resolve(req.Header.Get(r.header))
}

// Middleware stores the resolved profile in the request context.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := WithProfile(req.Context(), r.FromRequest(req))
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

func WithProfile(ctx context.Context, profileID int64) context.Context {
	return context.WithValue(ctx, profileContextKey, profileID)
}

// FromContext returns the profile stored by Middleware, or false.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(profileContextKey).(int64)
	return id, ok
}
