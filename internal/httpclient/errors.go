package httpclient

import (
	"errors"
	"fmt"
)

// ErrBodyTooLarge is wrapped by the *TransportError Fetch returns when a
// response body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// TransportError reports a failed fetch of one source URL: timeout,
// connection failure, a non-2xx status or an oversized body.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
