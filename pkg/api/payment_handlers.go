package api

import (
	"errors"
	"net/http"

	"github.com/payschool/platform/pkg/billing"
	"github.com/payschool/platform/pkg/httputil"
	"github.com/payschool/platform/pkg/middleware"
	"github.com/payschool/platform/pkg/observability"
)

// createSetupIntent opens a setup intent for the authenticated account and
// returns the client secret for the frontend payment form.
func (s *Server) createSetupIntent(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	clientSecret, err := s.billing.CreateSetupIntent(r.Context(), accountID)
	if err != nil {
		s.writeBillingError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, SetupIntentResponse{ClientSecret: clientSecret})
}

// setDefaultPaymentMethod marks a payment method as the invoice default
func (s *Server) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	var req SetDefaultPaymentMethodRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PaymentMethodID == "" {
		httputil.WriteBadRequest(w, "paymentMethodId is required")
		return
	}

	if err := s.billing.SetDefaultPaymentMethod(r.Context(), accountID, req.PaymentMethodID); err != nil {
		s.writeBillingError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, MessageResponse{Message: "default payment method updated"})
}

// createInvoice issues and collects an invoice for the authenticated account
func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.AccountID(r.Context())

	result, err := s.billing.IssueInvoice(r.Context(), accountID)
	if err != nil {
		s.writeBillingError(w, r, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// writeBillingError maps the billing error taxonomy onto HTTP statuses
func (s *Server) writeBillingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, billing.ErrAccountNotFound):
		httputil.WriteNotFound(w, err.Error())
	case errors.Is(err, billing.ErrNoPaymentMethod), errors.Is(err, billing.ErrNoDefaultPaymentMethod):
		httputil.WriteBadRequest(w, err.Error())
	default:
		var pe *billing.ProviderError
		if errors.As(err, &pe) {
			observability.FromContext(r.Context()).WithError(err).
				WithField("operation", pe.Op).Error("billing provider failure")
			httputil.WriteErrorMessage(w, http.StatusInternalServerError, pe.Message)
			return
		}
		observability.FromContext(r.Context()).WithError(err).Error("billing operation failed")
		httputil.WriteInternalError(w, err)
	}
}
