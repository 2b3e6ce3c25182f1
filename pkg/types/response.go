package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the error body. MessageID keys the static user-facing message
// the client renders for the failure kind.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	MessageID string `json:"message_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
