// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AccountIDKey contains the authenticated account id string
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: All protected API endpoints
	// Type: string
	AccountIDKey Key = "account_id"

	// AccountEmailKey contains the authenticated account email
	// Set by: middleware.Auth after token validation
	// Used by: Logger, handlers that render account details
	// Type: string
	AccountEmailKey Key = "account_email"

	// RequestIDKey contains request ID string (UUID)
	// Set by: HTTP middleware, observability layer
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)
