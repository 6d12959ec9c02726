package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/payschool/platform/pkg/accounts"
	"github.com/payschool/platform/pkg/observability"
)

// Reconciliation outcomes, used as metric labels and log fields.
const (
	outcomeCreated  = "created"
	outcomeVerified = "verified"
	outcomeHealed   = "healed"
	outcomeAdopted  = "adopted"
)

// Service coordinates the account store and the billing provider
type Service struct {
	store    accounts.Store
	provider Provider
	policy   InvoicePolicy
	logger   *observability.Logger
	metrics  *observability.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new billing service. metrics may be nil.
func NewService(store accounts.Store, provider Provider, policy InvoicePolicy, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:    store,
		provider: provider,
		policy:   policy,
		logger:   logger,
		metrics:  metrics,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockAccount serializes operations for one account within this process.
// Locks are never removed; the map is bounded by the number of accounts.
func (s *Service) lockAccount(accountID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// EnsureCustomer reconciles the account's billing customer reference and
// returns a reference that pointed at a live remote customer at the time of
// the call.
func (s *Service) EnsureCustomer(ctx context.Context, accountID string) (string, error) {
	// The lock is taken before the account read so the reconciler never
	// works from a snapshot a concurrent caller already replaced.
	unlock := s.lockAccount(accountID)
	defer unlock()

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	customer, err := s.reconcile(ctx, account)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

// CreateSetupIntent reconciles the customer and opens a setup intent for
// registering a card payment method. The returned client secret is handed to
// the frontend payment form.
func (s *Service) CreateSetupIntent(ctx context.Context, accountID string) (string, error) {
	unlock := s.lockAccount(accountID)
	defer unlock()

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return "", err
	}

	customer, err := s.reconcile(ctx, account)
	if err != nil {
		return "", err
	}

	intent, err := s.provider.CreateSetupIntent(ctx, customer.ID)
	if err != nil {
		return "", s.surface(ctx, "create setup intent", err)
	}

	if s.metrics != nil {
		s.metrics.SetupIntentsTotal.Inc()
	}
	s.log(ctx).WithFields(map[string]any{
		"account_id":  account.ID,
		"customer_id": customer.ID,
		"intent_id":   intent.ID,
	}).Info("setup intent created")

	return intent.ClientSecret, nil
}

// SetDefaultPaymentMethod reconciles the customer and marks the given
// payment method as the invoice default. The method must already be attached
// to the customer; the provider rejects the update otherwise.
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, accountID, paymentMethodID string) error {
	unlock := s.lockAccount(accountID)
	defer unlock()

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return err
	}

	customer, err := s.reconcile(ctx, account)
	if err != nil {
		return err
	}

	if err := s.provider.UpdateDefaultPaymentMethod(ctx, customer.ID, paymentMethodID); err != nil {
		return s.surface(ctx, "set default payment method", err)
	}

	if s.metrics != nil {
		s.metrics.DefaultMethodSetTotal.Inc()
	}
	s.log(ctx).WithFields(map[string]any{
		"account_id":  account.ID,
		"customer_id": customer.ID,
	}).Info("default payment method set")

	return nil
}

// IssueInvoice creates, finalizes and collects a single invoice for the
// account using the configured invoice policy. Every call issues a fresh
// invoice; idempotency across retries is not provided.
func (s *Service) IssueInvoice(ctx context.Context, accountID string) (*InvoiceResult, error) {
	unlock := s.lockAccount(accountID)
	defer unlock()

	account, err := s.getAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	// Precondition order matters: an unprovisioned account is rejected
	// before any provider traffic.
	if account.BillingCustomerID == "" {
		return nil, ErrNoPaymentMethod
	}

	customer, err := s.reconcile(ctx, account)
	if err != nil {
		return nil, err
	}
	if customer.DefaultPaymentMethod == "" {
		return nil, ErrNoDefaultPaymentMethod
	}

	log := s.log(ctx).WithFields(map[string]any{
		"account_id":  account.ID,
		"customer_id": customer.ID,
	})

	if _, err := s.provider.CreateInvoiceItem(ctx, customer.ID,
		s.policy.AmountCents, s.policy.Currency, s.policy.Description); err != nil {
		return nil, s.surface(ctx, "create invoice item", err)
	}

	invoiceID, err := s.provider.CreateInvoice(ctx, customer.ID)
	if err != nil {
		return nil, s.surface(ctx, "create invoice", err)
	}

	invoice, err := s.provider.FinalizeInvoice(ctx, invoiceID)
	if err != nil {
		return nil, s.surface(ctx, "finalize invoice", err)
	}

	// Automatic collection may settle the invoice during finalization;
	// paying an already paid invoice is a provider error.
	if invoice.Status != InvoiceStatusPaid {
		invoice, err = s.provider.PayInvoice(ctx, invoiceID)
		if err != nil {
			return nil, s.surface(ctx, "pay invoice", err)
		}
	}

	if s.metrics != nil {
		s.metrics.InvoicesIssuedTotal.WithLabelValues(string(invoice.Status)).Inc()
	}
	log.WithFields(map[string]any{
		"invoice_id": invoice.ID,
		"status":     string(invoice.Status),
	}).Info("invoice issued")

	return &InvoiceResult{
		InvoiceID:  invoice.ID,
		InvoiceURL: invoice.HostedURL,
		Status:     invoice.Status,
	}, nil
}

// log returns the service logger enriched with the request id, if any
func (s *Service) log(ctx context.Context) *observability.Logger {
	log := s.logger
	if requestID := observability.GetRequestID(ctx); requestID != "" {
		log = log.WithField("request_id", requestID)
	}
	return log
}

func (s *Service) getAccount(ctx context.Context, accountID string) (*accounts.Account, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// reconcile returns a customer record whose remote existence was observed
// during this call. A missing remote record is repaired at most once; the
// repaired reference is written back under a compare-and-swap.
func (s *Service) reconcile(ctx context.Context, account *accounts.Account) (*Customer, error) {
	log := s.log(ctx).WithField("account_id", account.ID)

	if account.BillingCustomerID == "" {
		customer, err := s.createAndBind(ctx, account)
		if err != nil {
			return nil, err
		}
		s.countReconciliation(outcomeCreated)
		log.WithField("customer_id", customer.ID).Info("billing customer created")
		return customer, nil
	}

	customer, err := s.provider.GetCustomer(ctx, account.BillingCustomerID)
	if err == nil {
		s.countReconciliation(outcomeVerified)
		return customer, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		// Transient fetch failures propagate without touching the store
		return nil, s.surface(ctx, "get customer", err)
	}

	log.WithField("stale_customer_id", account.BillingCustomerID).
		Warn("billing customer reference is stale, recreating")

	customer, err = s.createAndBind(ctx, account)
	if err != nil {
		return nil, err
	}
	s.countReconciliation(outcomeHealed)
	if s.metrics != nil {
		s.metrics.DriftRepairsTotal.Inc()
	}
	log.WithField("customer_id", customer.ID).Info("billing customer drift repaired")
	return customer, nil
}

// createAndBind creates a remote customer and writes its id into the account
// under a compare-and-swap on the previously observed reference. Losing the
// swap means a concurrent reconciliation won; the winner's reference is
// adopted and the fresh customer is left orphaned at the provider.
func (s *Service) createAndBind(ctx context.Context, account *accounts.Account) (*Customer, error) {
	customerID, err := s.provider.CreateCustomer(ctx, account.Email, account.DisplayName)
	if err != nil {
		return nil, s.surface(ctx, "create customer", err)
	}

	err = s.store.UpdateBillingCustomerID(ctx, account.ID, account.BillingCustomerID, customerID)
	if errors.Is(err, accounts.ErrStaleBillingRef) {
		current, lookupErr := s.store.GetByID(ctx, account.ID)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to resolve billing reference conflict: %w", lookupErr)
		}
		s.log(ctx).WithFields(map[string]any{
			"account_id":          account.ID,
			"adopted_customer_id": current.BillingCustomerID,
			"orphan_customer_id":  customerID,
		}).Warn("lost billing reference race, adopting winner")

		s.countReconciliation(outcomeAdopted)
		account.BillingCustomerID = current.BillingCustomerID
		return s.fetchAdopted(ctx, current.BillingCustomerID)
	}
	if errors.Is(err, accounts.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to persist billing customer: %w", err)
	}

	account.BillingCustomerID = customerID
	return &Customer{ID: customerID, Email: account.Email, Name: account.DisplayName}, nil
}

// fetchAdopted loads the winning customer after a lost swap. A missing
// winner is not repaired again within the same call.
func (s *Service) fetchAdopted(ctx context.Context, customerID string) (*Customer, error) {
	customer, err := s.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, s.surface(ctx, "get customer", err)
	}
	return customer, nil
}

// surface converts residual provider failures into *ProviderError. A
// missing-customer signal reaching this point means drift recurred after a
// repair in the same call, which is treated as a provider failure rather
// than retried.
func (s *Service) surface(ctx context.Context, op string, err error) error {
	if errors.Is(err, ErrCustomerNotFound) {
		s.log(ctx).WithField("operation", op).
			Error("billing customer vanished again after repair")
		return &ProviderError{Op: op, Message: "customer not found after recreation", Err: err}
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	return &ProviderError{Op: op, Message: err.Error(), Err: err}
}

func (s *Service) countReconciliation(outcome string) {
	if s.metrics != nil {
		s.metrics.ReconciliationsTotal.WithLabelValues(outcome).Inc()
	}
}
