package engine

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is returned before any attempt when the pool is
// empty. No provider call is made in that case.
var ErrNoCredentials = errors.New("no credentials configured")

// ExhaustedError means every (model, credential) pair failed. The last
// attempt's error is wrapped so callers can still classify it.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: all %d attempts failed: %v", e.Operation, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
