package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/billing"
	"github.com/payschool/platform/pkg/httputil"
	"github.com/payschool/platform/pkg/identity"
	"github.com/payschool/platform/pkg/middleware"
	"github.com/payschool/platform/pkg/observability"
)

// BillingService is the slice of the billing service the API needs
type BillingService interface {
	CreateSetupIntent(ctx context.Context, accountID string) (string, error)
	SetDefaultPaymentMethod(ctx context.Context, accountID, paymentMethodID string) error
	IssueInvoice(ctx context.Context, accountID string) (*billing.InvoiceResult, error)
}

// Options configures the API server
type Options struct {
	Billing BillingService
	Store   accounts.Store

	// Auth serves the login flow endpoints; nil skips them (tests)
	Auth *identity.Handler

	// Tokens validates session tokens on protected routes
	Tokens middleware.TokenVerifier

	Logger  *observability.Logger
	Metrics *observability.Metrics

	CORSOrigins []string

	// TracingEnabled wraps the handler chain in otelhttp instrumentation
	TracingEnabled bool
}

// Server is the HTTP API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	billing BillingService
	store   accounts.Store
	logger  *observability.Logger
}

// NewServer creates the API server and sets up routes and middleware
func NewServer(opts Options) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		billing: opts.Billing,
		store:   opts.Store,
		logger:  opts.Logger,
	}

	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(loggerInjector(opts.Logger))
	s.router.Use(httputil.SecurityHeadersMiddleware)
	s.router.Use(httputil.CORSMiddleware(opts.CORSOrigins))
	s.router.Use(httputil.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	s.router.Use(httputil.RecoveryMiddleware(opts.Logger))

	if opts.Auth != nil {
		opts.Auth.RegisterRoutes(s.router)
	}

	protected := s.router.PathPrefix("/api/v1").Subrouter()
	protected.Use(mux.MiddlewareFunc(middleware.Auth(opts.Tokens)))

	protected.HandleFunc("/users/profile", s.getProfile).Methods(http.MethodGet)
	protected.HandleFunc("/payments/stripe/setup-intent", s.createSetupIntent).Methods(http.MethodPost)
	protected.HandleFunc("/payments/stripe/set-default-payment-method", s.setDefaultPaymentMethod).Methods(http.MethodPost)
	protected.HandleFunc("/payments/stripe/create-invoice", s.createInvoice).Methods(http.MethodPost)

	s.handler = s.router
	if opts.TracingEnabled {
		s.handler = otelhttp.NewHandler(s.router, "payschool-api")
	}

	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// loggerInjector makes the application logger available to handlers via the
// request context.
func loggerInjector(logger *observability.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := observability.WithLogger(r.Context(), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
