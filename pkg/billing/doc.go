// Package billing reconciles local accounts against a remote billing
// provider and drives payment-method provisioning and invoice collection.
//
// The provider owns customer, setup-intent and invoice records; the local
// account store owns only the customer reference. Reconciliation treats the
// provider as the source of truth for existence and repairs reference drift
// (a stored customer id whose remote record has been deleted) by creating a
// replacement customer and rewriting the reference under a compare-and-swap.
// Drift is repaired at most once per operation; a second missing-customer
// signal inside the same call surfaces as a provider failure.
//
// Operations on the same account are serialized in-process with a per-account
// lock, and the store-level compare-and-swap guards against writers on other
// instances. When the swap is lost, the operation adopts the winning
// reference and the locally created customer is orphaned at the provider.
package billing
