package params

import "strconv"

// ValidationError reports a malformed declaration or an illegal call order.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ErrValidation is the errors.Is target for validation failures.
var ErrValidation = &ValidationError{}

// UnsupportedDistributionError reports a declaration whose distribution kind
// the parameter processor does not know.
type UnsupportedDistributionError struct {
	Kind string
}

func (e *UnsupportedDistributionError) Error() string {
	return "unsupported distribution kind " + strconv.Quote(e.Kind)
}

func (e *UnsupportedDistributionError) Is(target error) bool {
	_, ok := target.(*UnsupportedDistributionError)
	return ok
}

// ErrUnsupportedDistribution is the errors.Is target for unknown kinds.
var ErrUnsupportedDistribution = &UnsupportedDistributionError{}
