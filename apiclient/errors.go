package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError is the only error type returned by Client. Status 0 means no
// response was received (DNS, connection, cancellation); otherwise it is
// the HTTP status code of the response.
type APIError struct {
	Message  string
	Status   int
	Response json.RawMessage // parsed response body, nil when Status is 0
	Err      error           // underlying cause, if any
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status, or 0 when no response was received.
func (e *APIError) StatusCode() int {
	return e.Status
}

// IsNetwork reports whether the request never got a response.
func (e *APIError) IsNetwork() bool {
	return e.Status == 0
}

// IsClientError reports a 4xx status.
func (e *APIError) IsClientError() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsServerError reports a 5xx status.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500 && e.Status < 600
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func networkError(err error) *APIError {
	return &APIError{Message: err.Error(), Status: 0, Err: err}
}

func statusMessage(status int) string {
	return fmt.Sprintf("Request failed with status %d", status)
}
