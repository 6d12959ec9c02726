package identity

import (
	"context"
	"fmt"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/observability"
)

// CustomerEnsurer warms the billing customer for a freshly provisioned
// account. Satisfied by the billing service.
type CustomerEnsurer interface {
	EnsureCustomer(ctx context.Context, accountID string) (string, error)
}

// Provisioner maps a verified identity onto a local account
type Provisioner struct {
	store   accounts.Store
	billing CustomerEnsurer
	logger  *observability.Logger
}

// NewProvisioner creates an account provisioner. billing may be nil to skip
// customer warming.
func NewProvisioner(store accounts.Store, billing CustomerEnsurer, logger *observability.Logger) *Provisioner {
	return &Provisioner{store: store, billing: billing, logger: logger}
}

// Provision resolves the identity to an account, creating one on first
// login, and warms the billing customer. Warming is best effort; the billing
// reconciler creates the customer on demand if it fails here.
func (p *Provisioner) Provision(ctx context.Context, ident *Identity) (*accounts.Account, error) {
	account, err := p.store.LookupOrCreate(ctx, ident.SubjectID, ident.DisplayName, ident.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to provision account: %w", err)
	}

	if p.billing != nil && account.BillingCustomerID == "" {
		if _, err := p.billing.EnsureCustomer(ctx, account.ID); err != nil {
			p.logger.WithError(err).WithField("account_id", account.ID).
				Warn("failed to warm billing customer during login")
		} else if refreshed, err := p.store.GetByID(ctx, account.ID); err == nil {
			account = refreshed
		}
	}

	return account, nil
}
