package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"github.com/payschool/platform/pkg/observability"
)

// StripeConfig holds Stripe provider configuration
type StripeConfig struct {
	APIKey  string
	Timeout time.Duration
}

// Validate checks the Stripe configuration
func (c StripeConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("stripe API key is required")
	}
	return nil
}

// StripeProvider implements Provider against the Stripe API. All calls carry
// a bounded context and are instrumented per operation. metrics may be nil.
type StripeProvider struct {
	api     *client.API
	timeout time.Duration
	metrics *observability.Metrics
}

// NewStripeProvider creates a Stripe-backed billing provider
func NewStripeProvider(cfg StripeConfig, metrics *observability.Metrics) (*StripeProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	api := &client.API{}
	api.Init(cfg.APIKey, nil)

	return &StripeProvider{
		api:     api,
		timeout: cfg.Timeout,
		metrics: metrics,
	}, nil
}

// CreateCustomer creates a Stripe customer and returns its id
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}

	var customer *stripe.Customer
	err := p.call(ctx, "create_customer", &params.Params, func() (err error) {
		customer, err = p.api.Customers.New(params)
		return
	})
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// GetCustomer fetches a Stripe customer. A deleted or unknown customer maps
// to ErrCustomerNotFound; Stripe soft-deletes customers and still returns a
// record flagged Deleted.
func (p *StripeProvider) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	params := &stripe.CustomerParams{}

	var customer *stripe.Customer
	err := p.call(ctx, "get_customer", &params.Params, func() (err error) {
		customer, err = p.api.Customers.Get(customerID, params)
		return
	})
	if err != nil {
		if isResourceMissing(err) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if customer.Deleted {
		return nil, ErrCustomerNotFound
	}

	out := &Customer{
		ID:    customer.ID,
		Email: customer.Email,
		Name:  customer.Name,
	}
	if customer.InvoiceSettings != nil && customer.InvoiceSettings.DefaultPaymentMethod != nil {
		out.DefaultPaymentMethod = customer.InvoiceSettings.DefaultPaymentMethod.ID
	}
	return out, nil
}

// UpdateDefaultPaymentMethod sets the customer's invoice default
func (p *StripeProvider) UpdateDefaultPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}

	return p.call(ctx, "update_default_payment_method", &params.Params, func() (err error) {
		_, err = p.api.Customers.Update(customerID, params)
		return
	})
}

// CreateSetupIntent opens a card setup intent for the customer
func (p *StripeProvider) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	params := &stripe.SetupIntentParams{
		Customer:           stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}

	var intent *stripe.SetupIntent
	err := p.call(ctx, "create_setup_intent", &params.Params, func() (err error) {
		intent, err = p.api.SetupIntents.New(params)
		return
	})
	if err != nil {
		return nil, err
	}
	return &SetupIntent{ID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// CreateInvoiceItem adds a pending line item to the customer's next invoice
func (p *StripeProvider) CreateInvoiceItem(ctx context.Context, customerID string, amountCents int64, currency, description string) (string, error) {
	params := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(currency),
		Description: stripe.String(description),
	}

	var item *stripe.InvoiceItem
	err := p.call(ctx, "create_invoice_item", &params.Params, func() (err error) {
		item, err = p.api.InvoiceItems.New(params)
		return
	})
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

// CreateInvoice drafts an invoice that collects the customer's pending items
// by charging the default payment method automatically.
func (p *StripeProvider) CreateInvoice(ctx context.Context, customerID string) (string, error) {
	params := &stripe.InvoiceParams{
		Customer:         stripe.String(customerID),
		CollectionMethod: stripe.String(string(stripe.InvoiceCollectionMethodChargeAutomatically)),
		AutoAdvance:      stripe.Bool(true),
	}

	var invoice *stripe.Invoice
	err := p.call(ctx, "create_invoice", &params.Params, func() (err error) {
		invoice, err = p.api.Invoices.New(params)
		return
	})
	if err != nil {
		return "", err
	}
	return invoice.ID, nil
}

// FinalizeInvoice moves a draft invoice to open and may trigger collection
func (p *StripeProvider) FinalizeInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	params := &stripe.InvoiceFinalizeInvoiceParams{
		AutoAdvance: stripe.Bool(true),
	}

	var invoice *stripe.Invoice
	err := p.call(ctx, "finalize_invoice", &params.Params, func() (err error) {
		invoice, err = p.api.Invoices.FinalizeInvoice(invoiceID, params)
		return
	})
	if err != nil {
		return nil, err
	}
	return toInvoice(invoice), nil
}

// PayInvoice collects an open invoice using the customer's default method
func (p *StripeProvider) PayInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	params := &stripe.InvoicePayParams{}

	var invoice *stripe.Invoice
	err := p.call(ctx, "pay_invoice", &params.Params, func() (err error) {
		invoice, err = p.api.Invoices.Pay(invoiceID, params)
		return
	})
	if err != nil {
		return nil, err
	}
	return toInvoice(invoice), nil
}

// toInvoice maps a Stripe invoice onto the package's Invoice type
func toInvoice(invoice *stripe.Invoice) *Invoice {
	return &Invoice{
		ID:        invoice.ID,
		Status:    InvoiceStatus(invoice.Status),
		HostedURL: invoice.HostedInvoiceURL,
	}
}

// call runs one Stripe request with a bounded context, records metrics and
// wraps failures as *ProviderError carrying the Stripe-supplied message.
func (p *StripeProvider) call(ctx context.Context, op string, params *stripe.Params, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	params.Context = ctx

	start := time.Now()
	err := fn()
	duration := time.Since(start).Seconds()

	if p.metrics != nil {
		p.metrics.ProviderCallsTotal.WithLabelValues(op).Inc()
		p.metrics.ProviderCallDuration.WithLabelValues(op).Observe(duration)
		if err != nil {
			p.metrics.ProviderErrorsTotal.WithLabelValues(op).Inc()
		}
	}

	if err != nil {
		return &ProviderError{Op: op, Message: stripeMessage(err), Err: err}
	}
	return nil
}

// stripeMessage extracts the human-readable message from a Stripe error,
// falling back to the raw error text.
func stripeMessage(err error) string {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return stripeErr.Msg
	}
	return err.Error()
}

// isResourceMissing reports whether err signals a missing Stripe resource
func isResourceMissing(err error) bool {
	var stripeErr *stripe.Error
	return errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing
}
