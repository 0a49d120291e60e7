package infra

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from an external HTTP API.
type APIError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Transient() {
		return fmt.Sprintf("%s API error %d: %s (transient)", e.Service, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s API error %d: %s", e.Service, e.StatusCode, e.Body)
}

// Transient reports whether the same request could succeed later.
func (e *APIError) Transient() bool {
	return IsTransientHTTPStatus(e.StatusCode)
}

// IsTransientHTTPStatus returns true for throttling and server-side statuses.
func IsTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusRequestTimeout ||
		statusCode >= 500
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
