// Package accounts provides the durable account store.
//
// An Account maps an identity-provider subject to a local record carrying the
// external billing customer reference. The store is the single shared mutable
// resource in the billing flow: the reconciler reads the billing reference and
// conditionally rewrites it, so UpdateBillingCustomerID takes the previously
// observed value and applies a compare-and-swap instead of a blind write.
//
// Email is unique across accounts; creating a second account with the same
// email fails with ErrEmailExists at the store layer.
package accounts
