package api

// SetupIntentResponse carries the client secret for the frontend payment form
type SetupIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// SetDefaultPaymentMethodRequest selects the payment method to use for
// future invoices.
type SetDefaultPaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

// MessageResponse is a plain acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}
