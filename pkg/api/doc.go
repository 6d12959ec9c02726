// Package api exposes the HTTP surface: the login flow, the authenticated
// profile endpoint and the payment provisioning endpoints. Handlers are thin
// glue over pkg/identity and pkg/billing; every response uses the
// pkg/httputil envelope and statuses map from the billing error taxonomy.
package api
