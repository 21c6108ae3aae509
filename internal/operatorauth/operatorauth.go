// Package operatorauth implements the operator bearer-token and
// X-Tenant-Id middleware required on every operator-authenticated route
// (§6).
package operatorauth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/internal/httpserver"
)

type ctxKey int

const tenantIDKey ctxKey = iota

// Authenticator holds the set of accepted operator bearer tokens.
type Authenticator struct {
	tokens []string
}

// New builds an Authenticator from the configured token list.
func New(tokens []string) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// Valid reports whether token matches one of the configured operator
// tokens, comparing each constant-time.
func (a *Authenticator) Valid(token string) bool {
	if token == "" {
		return false
	}
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(t)) == 1 {
			return true
		}
	}
	return false
}

// Middleware requires a valid "Authorization: Bearer <token>" header and a
// well-formed "X-Tenant-Id: <uuid>" header, storing the tenant ID in the
// request context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !a.Valid(token) {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeUnauthorized, "missing or invalid operator bearer token", nil)
			return
		}

		tenantIDStr := r.Header.Get("X-Tenant-Id")
		tenantID, err := uuid.Parse(tenantIDStr)
		if err != nil {
			httpserver.RespondProblemFromRequest(w, r, httpserver.CodeValidationFailed, "missing or invalid X-Tenant-Id header", nil)
			return
		}

		ctx := context.WithValue(r.Context(), tenantIDKey, tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TenantIDFromContext returns the tenant ID stored by Middleware.
func TenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantIDKey).(uuid.UUID)
	return id, ok
}

// HasBypass reports whether the request carries a valid operator bearer
// token, used by the public webhook route to allow operator bypass of
// signature verification (§4.8).
func (a *Authenticator) HasBypass(r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return a.Valid(token)
}
