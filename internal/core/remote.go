package core

import (
	"errors"
	"fmt"
)

// RemoteError wraps any non-2xx response or transport failure from the ledger
// service. Callers see exactly one failure shape for every remote problem and
// may retry safely: no local state is mutated when one is returned.
type RemoteError struct {
	Op     string // logical operation, e.g. "create transaction"
	Status int    // HTTP status, 0 on transport failure
	Err    error  // underlying cause, may be nil
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ledger service: %s: status %d", e.Op, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("ledger service: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger service: %s failed", e.Op)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err is (or wraps) a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}
