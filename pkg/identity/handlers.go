package identity

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/payschool/platform/pkg/httputil"
	"github.com/payschool/platform/pkg/observability"
)

const stateCookieName = "payschool_oauth_state"

// stateCookieTTL bounds how long a login attempt may stay in flight
const stateCookieTTL = 10 * time.Minute

// Handler serves the login flow endpoints
type Handler struct {
	auth        Authenticator
	provisioner *Provisioner
	tokens      *TokenManager

	// frontendCallbackURL receives the session token after a completed login
	frontendCallbackURL string

	// secureCookies marks the state cookie Secure; disabled for local HTTP
	secureCookies bool

	logger *observability.Logger
}

// NewHandler creates the login flow handler
func NewHandler(auth Authenticator, provisioner *Provisioner, tokens *TokenManager, frontendCallbackURL string, logger *observability.Logger) *Handler {
	return &Handler{
		auth:                auth,
		provisioner:         provisioner,
		tokens:              tokens,
		frontendCallbackURL: frontendCallbackURL,
		logger:              logger,
	}
}

// RegisterRoutes registers the auth endpoints on the router
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/google", h.Login).Methods(http.MethodGet)
	router.HandleFunc("/auth/google/callback", h.Callback).Methods(http.MethodGet)
	router.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
}

// Login starts the provider login flow. The state nonce is held in a
// short-lived cookie and checked on callback.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.auth.LoginURL(state), http.StatusFound)
}

// Callback completes the login flow: verifies state, exchanges the code,
// provisions the account and redirects to the frontend with a session token.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	log := observability.FromContext(r.Context()).WithField("handler", "auth_callback")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.WithField("provider_error", errParam).Warn("provider rejected login")
		httputil.WriteUnauthorized(w, fmt.Sprintf("login failed: %s", errParam))
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		log.Warn("OAuth state mismatch")
		httputil.WriteBadRequest(w, "invalid OAuth state")
		return
	}
	h.clearStateCookie(w)

	ident, err := h.auth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.WithError(err).Error("failed to complete provider login")
		httputil.WriteUnauthorized(w, "login failed")
		return
	}

	account, err := h.provisioner.Provision(r.Context(), ident)
	if err != nil {
		log.WithError(err).Error("failed to provision account")
		httputil.WriteInternalError(w, err)
		return
	}

	token, err := h.tokens.Issue(account)
	if err != nil {
		log.WithError(err).Error("failed to issue session token")
		httputil.WriteInternalError(w, err)
		return
	}

	userJSON, err := json.Marshal(account)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	log.WithField("account_id", account.ID).Info("login completed")

	redirect := fmt.Sprintf("%s?token=%s&user=%s",
		h.frontendCallbackURL, url.QueryEscape(token), url.QueryEscape(string(userJSON)))
	http.Redirect(w, r, redirect, http.StatusFound)
}

// Logout acknowledges logout. Sessions are stateless JWTs; the frontend
// discards the token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearStateCookie(w)
	httputil.WriteSuccess(w, map[string]string{"message": "logged out"})
}

func (h *Handler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
