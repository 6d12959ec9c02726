package billing

import (
	"context"
)

// Customer is the provider-side payor record, referenced but not owned
type Customer struct {
	ID                   string `json:"id"`
	Email                string `json:"email,omitempty"`
	Name                 string `json:"name,omitempty"`
	DefaultPaymentMethod string `json:"default_payment_method,omitempty"`
}

// SetupIntent is a one-time token authorizing registration of a payment
// method for a customer. The client secret is consumed out-of-band.
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// InvoiceStatus represents the status of a provider invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// Invoice is the observed state of a provider invoice
type Invoice struct {
	ID        string        `json:"id"`
	Status    InvoiceStatus `json:"status"`
	HostedURL string        `json:"hosted_url,omitempty"`
}

// InvoiceResult is returned to callers of IssueInvoice
type InvoiceResult struct {
	InvoiceID  string        `json:"invoiceId"`
	InvoiceURL string        `json:"invoiceUrl"`
	Status     InvoiceStatus `json:"status"`
}

// InvoicePolicy fixes the billable line item. This is deployment
// configuration, not core logic.
type InvoicePolicy struct {
	AmountCents int64
	Currency    string
	Description string
}

// DefaultInvoicePolicy returns the stock invoice line item
func DefaultInvoicePolicy() InvoicePolicy {
	return InvoicePolicy{
		AmountCents: 1000,
		Currency:    "usd",
		Description: "Payment for services",
	}
}

// Provider is the typed surface of the remote billing service. Calls are
// blocking network round trips; implementations classify raw provider errors
// into the package taxonomy so callers never inspect message text.
//
// GetCustomer returns ErrCustomerNotFound when the remote record does not
// exist. All other failures, on any call, are *ProviderError.
type Provider interface {
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	GetCustomer(ctx context.Context, customerID string) (*Customer, error)
	UpdateDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	CreateInvoiceItem(ctx context.Context, customerID string, amountCents int64, currency, description string) (string, error)
	CreateInvoice(ctx context.Context, customerID string) (string, error)
	FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
	PayInvoice(ctx context.Context, invoiceID string) (*Invoice, error)
}
