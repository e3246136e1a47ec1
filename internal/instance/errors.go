package instance

import (
	"errors"
	"fmt"

	"modelctl/pkg/types"
)

type providerError struct {
	InstanceID string
	Op         string
	Err        error
}

func (e providerError) Error() string {
	return fmt.Sprintf("provider %s %s: %v", e.Op, e.InstanceID, e.Err)
}

func (e providerError) Unwrap() error { return e.Err }

// ErrProvider constructs a provider error for the given operation.
func ErrProvider(id, op string, err error) error {
	return providerError{InstanceID: id, Op: op, Err: err}
}

// IsProviderError reports whether err came from the cloud provider API.
func IsProviderError(err error) bool {
	var pe providerError
	return errors.As(err, &pe)
}

type instanceTimeoutError struct {
	InstanceID string
	LastState  types.InstanceState
	Attempts   uint
	Reason     string
}

func (e instanceTimeoutError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("instance %s not ready (%s): %s", e.InstanceID, e.LastState, e.Reason)
	}
	return fmt.Sprintf("instance %s not ready after %d checks (last state %s)", e.InstanceID, e.Attempts, e.LastState)
}

// ErrInstanceTimeout constructs an instance readiness failure.
func ErrInstanceTimeout(id string, last types.InstanceState, attempts uint, reason string) error {
	return instanceTimeoutError{InstanceID: id, LastState: last, Attempts: attempts, Reason: reason}
}

// IsInstanceTimeout reports whether err is an instance readiness failure.
func IsInstanceTimeout(err error) bool {
	var te instanceTimeoutError
	return errors.As(err, &te)
}
