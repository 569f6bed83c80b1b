package backend

import "strconv"

// CompatibilityError reports a declared distribution kind the selected
// backend has no mapping for. It is raised before the external optimizer is
// touched. Use errors.Is(err, ErrCompatibility) to check for this error.
type CompatibilityError struct {
	Backend string
	Param   string
	Kind    string
}

// ErrCompatibility is the errors.Is target for backend capability misses.
var ErrCompatibility = &CompatibilityError{}

func (e *CompatibilityError) Error() string {
	return "backend " + e.Backend + " cannot model parameter " +
		strconv.Quote(e.Param) + " of kind " + strconv.Quote(e.Kind)
}

func (e *CompatibilityError) Is(target error) bool {
	_, ok := target.(*CompatibilityError)
	return ok
}
