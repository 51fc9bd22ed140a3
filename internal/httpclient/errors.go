package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrBodyTooLarge is returned by Fetch when a response exceeds MaxBytes
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned by Fetch for non-2xx responses
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
