package tools

import (
	"errors"
	"fmt"
)

// FatalError marks a failure that must abort the whole turn instead of being
// rendered back to the model as a failed tool result.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string {
	return e.Message
}

// Fatalf builds a fatal error from a format string.
func Fatalf(format string, args ...any) *FatalError {
	return &FatalError{Message: fmt.Sprintf(format, args...)}
}

// ErrMissingLocalShellCallID is returned for a legacy local shell call that
// carries neither a call_id nor an id. Without a correlation id no output
// item can be attributed, so the turn cannot proceed.
var ErrMissingLocalShellCallID = &FatalError{Message: "local shell call without call_id or id"}

// IsFatal reports whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}
