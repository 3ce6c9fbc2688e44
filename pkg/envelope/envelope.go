// Package envelope implements the uniform success/error response shape
// every HTTP and WebSocket reply uses (§4.8, §7).
package envelope

import "net/http"

// Kind is the externally visible error classification.
type Kind string

const (
	KindValidation   Kind = "VALIDATION"
	KindUser         Kind = "USER"
	KindApplication  Kind = "APPLICATION"
	KindDisconnected Kind = "DISCONNECTED"
)

// StatusFor returns the HTTP status code for a given error Kind, per §4.8.
func StatusFor(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUser:
		return http.StatusBadRequest
	case KindApplication:
		return http.StatusInternalServerError
	case KindDisconnected:
		return http.StatusNoContent
	default:
		return http.StatusInternalServerError
	}
}

// ValidationIssue describes a single field-level validation failure.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Envelope is the JSON shape every response takes. Success responses set
// Success=true and Data; error responses set Success=false, Error, and
// either Message or Errors. Meta is stamped on every response.
type Envelope struct {
	Success bool                   `json:"success"`
	Data    interface{}            `json:"data,omitempty"`
	Error   Kind                   `json:"error,omitempty"`
	Message string                 `json:"message,omitempty"`
	Errors  []ValidationIssue      `json:"errors,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

// Success builds a success envelope.
func Success(data interface{}, meta map[string]interface{}) *Envelope {
	return &Envelope{Success: true, Data: data, Meta: meta}
}

// Validation builds a VALIDATION error envelope (HTTP 422).
func Validation(issues []ValidationIssue, meta map[string]interface{}) *Envelope {
	return &Envelope{Success: false, Error: KindValidation, Errors: issues, Meta: meta}
}

// User builds a USER error envelope (HTTP 400).
func User(message string, meta map[string]interface{}) *Envelope {
	return &Envelope{Success: false, Error: KindUser, Message: message, Meta: meta}
}

// Application builds an APPLICATION error envelope (HTTP 500).
func Application(message string, meta map[string]interface{}) *Envelope {
	return &Envelope{Success: false, Error: KindApplication, Message: message, Meta: meta}
}

// Disconnected builds a DISCONNECTED envelope (HTTP 204). The message is
// fixed per §4.8 regardless of what (if anything) the worker produced.
func Disconnected(meta map[string]interface{}) *Envelope {
	return &Envelope{Success: false, Error: KindDisconnected, Message: "connection lost", Meta: meta}
}

// HTTPStatus returns the status code implied by this envelope.
func (e *Envelope) HTTPStatus() int {
	if e.Success {
		return http.StatusOK
	}
	return StatusFor(e.Error)
}
