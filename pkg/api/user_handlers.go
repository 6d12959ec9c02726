package api

import (
	"errors"
	"net/http"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/httputil"
	"github.com/payschool/platform/pkg/middleware"
)

// getProfile returns the authenticated account
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	account, err := s.store.GetByID(r.Context(), accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		httputil.WriteNotFound(w, "account not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, account)
}
