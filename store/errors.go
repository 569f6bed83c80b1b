package store

import "time"

// LockTimeoutError is returned when the backing file's exclusive lock could
// not be acquired within the configured timeout. The operation performed no
// partial write; the trial's result is lost unless the caller retries.
// Use errors.Is(err, ErrLockTimeout) to check for this error.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
}

// ErrLockTimeout is the errors.Is target for lock acquisition timeouts.
var ErrLockTimeout = &LockTimeoutError{}

func (e *LockTimeoutError) Error() string {
	return "timed out after " + e.Timeout.String() + " waiting for lock on " + e.Path
}

func (e *LockTimeoutError) Is(target error) bool {
	_, ok := target.(*LockTimeoutError)
	return ok
}
