package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrStaleTransform is returned when a transform result is discarded because
// its session was reset while the external call was outstanding.
var ErrStaleTransform = errors.New("session was reset while the transform was running")

// InvalidInputError reports a malformed request. Nothing is mutated.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransformError wraps a failure or timeout of the external transform.
// History is left exactly as it was before the call.
type TransformError struct {
	Cause error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform failed: %v", e.Cause)
}

func (e *TransformError) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the external call ran out of time.
func (e *TransformError) Timeout() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}

// NoHistoryError is returned by undo/redo at either end of the history.
// Its message is shown to users as is.
type NoHistoryError struct {
	Direction Direction
}

func (e *NoHistoryError) Error() string {
	return fmt.Sprintf("No more history to %s", e.Direction)
}

func IsNoHistory(err error) bool {
	var nh *NoHistoryError
	return errors.As(err, &nh)
}
