// Package params normalizes parameter declarations into the canonical
// (kind, args, options) form consumed by backends, and implements the
// reparameterization and array-expansion machinery behind derived
// distributions.
package params

import "fmt"

// Distribution kinds understood by the parameter processor. Every derived
// distribution is expressed in terms of one of these primitives.
const (
	KindChoice      = "choice"
	KindRandRange   = "randrange"
	KindUniform     = "uniform"
	KindTriangular  = "triangular"
	KindBeta        = "betavariate"
	KindExponential = "expovariate"
	KindGamma       = "gammavariate"
	KindNormal      = "normalvariate"
	KindPareto      = "paretovariate"
	KindWeibull     = "weibullvariate"
)

// Decl is one canonical parameter declaration: a distribution kind, its
// positional arguments, and its resolved keyword options.
type Decl struct {
	Kind    string
	Args    []any
	Options map[string]any
}

// Params is a parameter schema: one Decl per declared name.
type Params map[string]Decl

// Clone returns a shallow copy of the schema.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for name, decl := range p {
		out[name] = decl
	}
	return out
}

// Standardize validates a raw declaration and returns its canonical form.
// Positional arguments are checked per kind (arity, types, bounds) and
// keyword options have their pending transforms applied. Unknown kinds fail
// with an UnsupportedDistributionError.
func Standardize(kind string, args []any, opts Options) (Decl, error) {
	canonical, err := standardizeArgs(kind, args)
	if err != nil {
		return Decl{}, err
	}
	resolved, err := opts.Resolve()
	if err != nil {
		return Decl{}, err
	}
	return Decl{Kind: kind, Args: canonical, Options: resolved}, nil
}

func standardizeArgs(kind string, args []any) ([]any, error) {
	switch kind {
	case KindChoice:
		if len(args) != 1 {
			return nil, arityError(kind, "exactly one sequence argument", len(args))
		}
		seq, ok := args[0].([]any)
		if !ok {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("needs a []any argument, got %T", args[0])}
		}
		if len(seq) == 0 {
			return nil, &ValidationError{Field: kind, Reason: "needs a non-empty sequence"}
		}
		return []any{seq}, nil

	case KindRandRange:
		// Canonical form is always [start, stop, step].
		nums, err := floatArgs(kind, args, 1, 3)
		if err != nil {
			return nil, err
		}
		start, stop, step := 0.0, 0.0, 1.0
		switch len(nums) {
		case 1:
			stop = nums[0]
		case 2:
			start, stop = nums[0], nums[1]
		case 3:
			start, stop, step = nums[0], nums[1], nums[2]
		}
		if step <= 0 {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("step must be positive, got %v", step)}
		}
		if stop <= start {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("empty range [%v, %v)", start, stop)}
		}
		return []any{start, stop, step}, nil

	case KindUniform:
		nums, err := floatArgs(kind, args, 2, 2)
		if err != nil {
			return nil, err
		}
		if nums[1] < nums[0] {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("bounds out of order: %v > %v", nums[0], nums[1])}
		}
		return []any{nums[0], nums[1]}, nil

	case KindTriangular:
		nums, err := floatArgs(kind, args, 3, 3)
		if err != nil {
			return nil, err
		}
		low, high, mode := nums[0], nums[1], nums[2]
		if high < low || mode < low || mode > high {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("needs low <= mode <= high, got (%v, %v, %v)", low, high, mode)}
		}
		return []any{low, high, mode}, nil

	case KindBeta, KindGamma, KindWeibull:
		nums, err := floatArgs(kind, args, 2, 2)
		if err != nil {
			return nil, err
		}
		if nums[0] <= 0 || nums[1] <= 0 {
			return nil, &ValidationError{Field: kind, Reason: "parameters must be positive"}
		}
		return []any{nums[0], nums[1]}, nil

	case KindExponential, KindPareto:
		nums, err := floatArgs(kind, args, 1, 1)
		if err != nil {
			return nil, err
		}
		if nums[0] <= 0 {
			return nil, &ValidationError{Field: kind, Reason: "parameter must be positive"}
		}
		return []any{nums[0]}, nil

	case KindNormal:
		nums, err := floatArgs(kind, args, 2, 2)
		if err != nil {
			return nil, err
		}
		if nums[1] <= 0 {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("sigma must be positive, got %v", nums[1])}
		}
		return []any{nums[0], nums[1]}, nil

	default:
		return nil, &UnsupportedDistributionError{Kind: kind}
	}
}

func arityError(kind, want string, got int) error {
	return &ValidationError{Field: kind, Reason: fmt.Sprintf("needs %s, got %d", want, got)}
}

func floatArgs(kind string, args []any, min, max int) ([]float64, error) {
	if len(args) < min || len(args) > max {
		if min == max {
			return nil, arityError(kind, fmt.Sprintf("exactly %d numeric arguments", min), len(args))
		}
		return nil, arityError(kind, fmt.Sprintf("%d to %d numeric arguments", min, max), len(args))
	}
	nums := make([]float64, len(args))
	for i, a := range args {
		f, ok := toFloat(a)
		if !ok {
			return nil, &ValidationError{Field: kind, Reason: fmt.Sprintf("argument %d must be a number, got %T", i, a)}
		}
		nums[i] = f
	}
	return nums, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ToFloat reports v as a float64 when it holds any numeric type.
func ToFloat(v any) (float64, bool) { return toFloat(v) }
