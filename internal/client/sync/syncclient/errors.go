package syncclient

import "errors"

// Typed errors surfaced by Client methods so callers (the consumer loop) can
// branch on outcome without parsing HTTP status text.
var (
	ErrNotFound         = errors.New("syncclient: remote path not found")
	ErrPermissionDenied = errors.New("syncclient: permission denied")
	ErrConflict         = errors.New("syncclient: remote state changed since diff was computed")
	ErrServer           = errors.New("syncclient: server error")
)

// APIError is the JSON error body returned by the server for non-2xx
// responses to any /sync/* endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}
