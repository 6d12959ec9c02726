package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/identity"
)

func authedHandler(t *testing.T, wantAccountID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantAccountID, AccountID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthAcceptsValidToken(t *testing.T) {
	tokens := identity.NewTokenManager("test-secret", time.Hour)
	token, err := tokens.Issue(&accounts.Account{ID: "acc-1", Email: "ada@example.com"})
	require.NoError(t, err)

	handler := Auth(tokens)(authedHandler(t, "acc-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRejects(t *testing.T) {
	tokens := identity.NewTokenManager("test-secret", time.Hour)
	expired, err := identity.NewTokenManager("test-secret", -time.Minute).
		Issue(&accounts.Account{ID: "acc-1", Email: "ada@example.com"})
	require.NoError(t, err)
	foreign, err := identity.NewTokenManager("other-secret", time.Hour).
		Issue(&accounts.Account{ID: "acc-1", Email: "ada@example.com"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic dXNlcjpwYXNz"},
		{name: "empty token", header: "Bearer "},
		{name: "garbage token", header: "Bearer not-a-jwt"},
		{name: "expired token", header: "Bearer " + expired},
		{name: "wrong secret", header: "Bearer " + foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := Auth(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
		})
	}
}
