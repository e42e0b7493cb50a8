package storecheck

import (
	"errors"
	"fmt"
)

// BrowserError is returned when a browser worker rejects or fails a command.
type BrowserError struct {
	Message string
}

func (e *BrowserError) Error() string {
	return fmt.Sprintf("storecheck: %s", e.Message)
}

// NewBrowserError helps create a new error
func NewBrowserError(format string, a ...interface{}) error {
	return &BrowserError{
		Message: fmt.Sprintf(format, a...),
	}
}

// ErrInvalidFlow is wrapped by every flow validation error.
var ErrInvalidFlow = errors.New("invalid flow")

// ErrorKind classifies the step a run failed at. The runner handles every kind
// the same way; the kind only makes the log line easier to read.
type ErrorKind string

const (
	KindNavigation  ErrorKind = "navigation"
	KindAssertion   ErrorKind = "assertion"
	KindInteraction ErrorKind = "interaction"
	KindArtifact    ErrorKind = "artifact"
)

// StepError reports the step a run stopped at.
type StepError struct {
	Kind  ErrorKind
	Index int
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failure at step %d (%s): %v", e.Kind, e.Index+1, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
