// Package identity implements the Google OIDC login flow and session tokens.
//
// The flow is the standard authorization-code dance: the login endpoint
// redirects to the provider with a state nonce held in a short-lived cookie,
// and the callback verifies the ID token, maps its claims to an Identity,
// provisions the local account, and hands a signed session JWT back to the
// frontend via redirect. Sessions are stateless; logout is client-side.
//
// Provisioning also warms the billing customer so the first payment call
// does not pay the creation latency. That step is best effort: the billing
// reconciler repairs a missing customer on demand, so a failure here only
// logs a warning.
package identity
