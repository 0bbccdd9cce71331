// Package apierror holds the JSON envelopes of every 4xx/5xx response.
// Handlers never serialize raw errors; persistence failures reach clients
// only as the generic 500 message.
package apierror

// APIError is the envelope of every non-validation error.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError is returned with 422 when binding tags fail; Fields maps
// the JSON field name to the broken rule.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validación", Fields: fields}
}
