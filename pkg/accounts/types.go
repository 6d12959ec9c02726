package accounts

import (
	"context"
	"errors"
	"time"
)

// Account maps an identity-provider subject to local billing state.
// BillingCustomerID is empty until the reconciler provisions a remote
// customer; once set it refers to the provider record last known to exist,
// but callers must tolerate it pointing at a deleted remote record.
type Account struct {
	ID                string    `json:"id"`
	SubjectID         string    `json:"subjectId"`
	DisplayName       string    `json:"displayName"`
	Email             string    `json:"email"`
	BillingCustomerID string    `json:"billingCustomerId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

var (
	// ErrNotFound is returned when no account matches the lookup
	ErrNotFound = errors.New("account not found")

	// ErrEmailExists is returned when an account with the same email already exists
	ErrEmailExists = errors.New("account email already exists")

	// ErrSubjectExists is returned when an account with the same identity subject already exists
	ErrSubjectExists = errors.New("account subject already exists")

	// ErrStaleBillingRef is returned when a conditional billing reference
	// update loses against a concurrent writer
	ErrStaleBillingRef = errors.New("billing customer reference changed concurrently")
)

// Store defines the account persistence interface
type Store interface {
	// Create inserts a new account. The id is generated when empty.
	Create(ctx context.Context, account *Account) error

	// GetByID returns the account with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetBySubject returns the account for an identity-provider subject, or ErrNotFound.
	GetBySubject(ctx context.Context, subjectID string) (*Account, error)

	// GetByEmail returns the account with the given email, or ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// LookupOrCreate resolves an identity result to an account, creating
	// one on first login.
	LookupOrCreate(ctx context.Context, subjectID, displayName, email string) (*Account, error)

	// UpdateBillingCustomerID conditionally replaces the billing customer
	// reference. The write only applies while the stored reference still
	// equals previous; otherwise ErrStaleBillingRef is returned.
	UpdateBillingCustomerID(ctx context.Context, id, previous, next string) error

	// Count returns the total number of accounts.
	Count(ctx context.Context) (int64, error)
}
