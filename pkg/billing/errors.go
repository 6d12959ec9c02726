package billing

import (
	"errors"
	"fmt"
)

var (
	// ErrAccountNotFound is returned when the account id does not resolve
	// to a stored account. Surfaced as a 404-equivalent.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoPaymentMethod is returned by IssueInvoice for accounts that
	// never completed the provisioning flow. Surfaced as a 400-equivalent.
	ErrNoPaymentMethod = errors.New("no billing customer found, add a payment method first")

	// ErrNoDefaultPaymentMethod is returned when the remote customer has no
	// default payment method set. Surfaced as a 400-equivalent.
	ErrNoDefaultPaymentMethod = errors.New("no default payment method found, add a payment method first")

	// ErrCustomerNotFound signals that the remote customer record is
	// missing. It is recovered internally by the drift-healing path and is
	// never surfaced to callers by itself.
	ErrCustomerNotFound = errors.New("billing customer not found")
)

// ProviderError wraps a remote billing provider failure (network, auth, rate
// limit, validation). Message carries the provider-supplied text only, never
// a stack trace. Surfaced as a 500-equivalent; the caller may retry the whole
// operation.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("billing provider %s failed: %s", e.Op, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a ProviderError
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}
