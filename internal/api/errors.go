package api

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned before any authorized call is attempted
	// without an access token.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrLoginFailed wraps every password-grant failure, including a 2xx
	// response that carries no access token.
	ErrLoginFailed = errors.New("login failed")
	// ErrMalformedResponse marks a 2xx body that lacks the expected payload.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError reports a non-2xx answer from the backend.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: server returned status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: server returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}
