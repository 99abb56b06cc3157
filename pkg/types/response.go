// Package types holds the wire envelopes the API shares with its clients.
package types

// SuccessEnvelope wraps every 2xx response body.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError carries a stable machine-readable code alongside the human
// message; Details is structured context such as field validation errors
// or the balance behind an insufficient-credits refusal.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
