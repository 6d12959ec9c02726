package identity

import (
	"context"
	"fmt"
)

// Identity is the verified result of a completed provider login
type Identity struct {
	SubjectID   string `json:"subjectId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Config holds OIDC provider settings
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Validate checks the OIDC configuration
func (c Config) Validate() error {
	if c.IssuerURL == "" {
		return fmt.Errorf("issuer URL is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client id is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect URL is required")
	}
	return nil
}

// Authenticator drives the provider side of the login flow. The OIDC
// implementation talks to Google; tests substitute a fake.
type Authenticator interface {
	// LoginURL returns the provider authorization URL carrying the state nonce
	LoginURL(state string) string

	// Exchange trades the authorization code for a verified Identity
	Exchange(ctx context.Context, code string) (*Identity, error)
}
