package agent

import (
	"errors"
	"fmt"
)

// ErrUnknownDomain is returned when a requested domain has no registered
// agent.
var ErrUnknownDomain = errors.New("unknown investigation domain")

// TransientError marks an agent failure as retryable. The coordinator grants
// transient failures a single retry with fixed backoff; everything else is
// recorded as failed immediately.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Wrapping nil returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is (or wraps) a transient agent failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
