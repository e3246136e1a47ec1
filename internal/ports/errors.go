package ports

import (
	"errors"
	"fmt"
)

type portExhaustionError struct {
	From      int
	To        int
	RandomMin int
	RandomMax int
}

func (e portExhaustionError) Error() string {
	return fmt.Sprintf("no free port in %d-%d or among random samples in %d-%d", e.From, e.To, e.RandomMin, e.RandomMax)
}

// ErrPortExhaustion constructs the error returned when every candidate is busy.
func ErrPortExhaustion(from, to, rmin, rmax int) error {
	return portExhaustionError{From: from, To: to, RandomMin: rmin, RandomMax: rmax}
}

// IsPortExhaustion reports whether err is a port exhaustion error.
func IsPortExhaustion(err error) bool {
	var pe portExhaustionError
	return errors.As(err, &pe)
}

// ErrInstanceNotRunning is returned by operations that need a reachable instance.
var ErrInstanceNotRunning = errors.New("instance is not running")
