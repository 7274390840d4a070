package kbsearch

import "fmt"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable error code from the response body
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kbsearch: %s (http %d, code %s)", e.Message, e.Status, e.Code)
}
