package haws

import "encoding/json"

// Envelope is a single frame on the hub websocket. The same shape covers
// handshake frames (no id) and correlated command responses (id + success).
type Envelope struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *APIError       `json:"error,omitempty"`

	// Message accompanies handshake frames such as auth_invalid.
	Message string `json:"message,omitempty"`
}

// APIError is the error descriptor attached to failed command responses.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the envelope is an explicit success response.
func (e *Envelope) OK() bool {
	return e != nil && e.Success != nil && *e.Success
}

// ErrorMessage returns the error descriptor text, if any.
func (e *Envelope) ErrorMessage() string {
	if e == nil || e.Error == nil {
		return ""
	}
	return e.Error.Message
}

// Frame types used during the handshake.
const (
	frameAuthRequired = "auth_required"
	frameAuthOK       = "auth_ok"
	frameAuthInvalid  = "auth_invalid"
	frameReady        = "ready"
	frameEvent        = "event"
)
