package distill

import (
	"errors"
	"fmt"
)

var (
	// ErrHandlerNotFound is returned when a processor is asked to run a handler it does not have
	ErrHandlerNotFound = errors.New("handler not found")
)

// FieldError wraps a failure raised while extracting a field value.
type FieldError struct {
	Field string
	Index int
	Op    string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("distill operation %s failed for field %s (index %d): %v", e.Op, e.Field, e.Index, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// HandlerError reports a missing handler lookup on a Processor.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("%s: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
