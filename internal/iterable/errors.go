package iterable

import "fmt"

// APIError is a vendor-level rejection: the HTTP call succeeded but the
// response carried a non-success code.
type APIError struct {
	Endpoint string
	Code     string
	Message  string
	Params   map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("iterable: %s rejected: %s: %s", e.Endpoint, e.Code, e.Message)
}

// StatusError is a transport-level failure: a non-2xx HTTP status or an
// unreadable response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("iterable: %s: HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
