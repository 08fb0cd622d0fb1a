package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the job or build doesn't exist on the server
	ErrNotFound = errors.New("not found on Jenkins server")

	// ErrUnauthorized indicates Jenkins authentication failed
	ErrUnauthorized = errors.New("jenkins authentication failed")

	// ErrUnavailable indicates the Jenkins server is temporarily unavailable
	ErrUnavailable = errors.New("jenkins server temporarily unavailable")
)

// Error represents a Jenkins server error with the HTTP status it
// came from. The message text is preserved for the tool caller.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jenkins error %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("jenkins error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}
