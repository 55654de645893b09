package types

// SuccessEnvelope wraps every 2xx payload under a single data key.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a failed request: a stable machine-readable
// code, a human-readable message, and optional structured details such as
// per-field validation problems.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload under a single error key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
