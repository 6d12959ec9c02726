// Package middleware provides request authentication for the API surface.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/payschool/platform/pkg/contextkeys"
	"github.com/payschool/platform/pkg/httputil"
	"github.com/payschool/platform/pkg/identity"
)

// TokenVerifier validates a session token string. Satisfied by
// identity.TokenManager.
type TokenVerifier interface {
	Verify(tokenString string) (*identity.Claims, error)
}

// Auth validates the Bearer session token and puts the account id and email
// into the request context. Requests without a valid token get a 401
// envelope and never reach the handler.
func Auth(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.WriteUnauthorized(w, "missing authorization header")
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				httputil.WriteUnauthorized(w, "invalid authorization header")
				return
			}

			claims, err := tokens.Verify(parts[1])
			if err != nil {
				httputil.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), contextkeys.AccountIDKey, claims.Subject)
			ctx = context.WithValue(ctx, contextkeys.AccountEmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountID returns the authenticated account id from the request context
func AccountID(ctx context.Context) string {
	if id, ok := ctx.Value(contextkeys.AccountIDKey).(string); ok {
		return id
	}
	return ""
}
