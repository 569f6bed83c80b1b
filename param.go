package blackbox

import (
	"fmt"
	"math"

	"github.com/cwbudde/blackbox/params"
)

// Option attaches a keyword option to one parameter declaration.
type Option func(params.Options)

// WithGuess suggests a fallback or starting value for the parameter. The
// serving backend serves it when no committed example covers the parameter.
func WithGuess(v any) Option {
	return func(po params.Options) { po.Set(params.GuessKey, v) }
}

// WithOption attaches an arbitrary keyword option for backends that
// understand it.
func WithOption(key string, v any) Option {
	return func(po params.Options) { po.Set(key, v) }
}

func buildOptions(opts []Option) params.Options {
	po := params.Options{}
	for _, opt := range opts {
		opt(po)
	}
	return po
}

// declare routes one declaration through the parameter processor into the
// active backend and records it in the in-progress schema and example.
func (o *Optimizer) declare(name, kind string, args []any, po params.Options) (any, error) {
	if name == "" {
		return nil, &params.ValidationError{Field: "name", Reason: "must be a non-empty string"}
	}
	if o.state != stateParamsOpen {
		return nil, &params.ValidationError{Field: name, Reason: "all parameter declarations must come before Minimize/Maximize"}
	}
	if _, dup := o.newParams[name]; dup {
		return nil, &params.ValidationError{Field: name, Reason: "already declared this run"}
	}

	decl, err := params.Standardize(kind, args, po)
	if err != nil {
		return nil, err
	}
	value, err := o.backend.Param(name, decl)
	if err != nil {
		return nil, err
	}

	o.newParams[name] = decl
	o.current.Values[name] = value
	return value, nil
}

// Choice declares a parameter drawn from the given set.
func (o *Optimizer) Choice(name string, choices []any, opts ...Option) (any, error) {
	return o.declare(name, params.KindChoice, []any{choices}, buildOptions(opts))
}

// RandRange declares an integer parameter over [start, stop) with the given
// step.
func (o *Optimizer) RandRange(name string, start, stop, step int, opts ...Option) (int, error) {
	v, err := o.declare(name, params.KindRandRange,
		[]any{float64(start), float64(stop), float64(step)}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asInt(name, v)
}

// Uniform declares a continuous parameter over [a, b).
func (o *Optimizer) Uniform(name string, a, b float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindUniform, []any{a, b}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// Triangular declares a triangular-distributed parameter over [low, high]
// with the given mode.
func (o *Optimizer) Triangular(name string, low, high, mode float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindTriangular, []any{low, high, mode}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// BetaVariate declares a beta-distributed parameter.
func (o *Optimizer) BetaVariate(name string, alpha, beta float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindBeta, []any{alpha, beta}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// ExpoVariate declares an exponentially-distributed parameter with rate
// lambda.
func (o *Optimizer) ExpoVariate(name string, lambda float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindExponential, []any{lambda}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// GammaVariate declares a gamma-distributed parameter with shape alpha and
// scale beta.
func (o *Optimizer) GammaVariate(name string, alpha, beta float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindGamma, []any{alpha, beta}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// NormalVariate declares a normally-distributed parameter.
func (o *Optimizer) NormalVariate(name string, mu, sigma float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindNormal, []any{mu, sigma}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// Gauss declares a normally-distributed parameter.
func (o *Optimizer) Gauss(name string, mu, sigma float64, opts ...Option) (float64, error) {
	return o.NormalVariate(name, mu, sigma, opts...)
}

// ParetoVariate declares a Pareto-distributed parameter.
func (o *Optimizer) ParetoVariate(name string, alpha float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindPareto, []any{alpha}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

// WeibullVariate declares a Weibull-distributed parameter with scale alpha
// and shape beta.
func (o *Optimizer) WeibullVariate(name string, alpha, beta float64, opts ...Option) (float64, error) {
	v, err := o.declare(name, params.KindWeibull, []any{alpha, beta}, buildOptions(opts))
	if err != nil {
		return 0, err
	}
	return asFloat(name, v)
}

func asFloat(name string, v any) (float64, error) {
	f, ok := params.ToFloat(v)
	if !ok {
		return 0, &params.ValidationError{Field: name, Reason: fmt.Sprintf("backend produced %T, expected a number", v)}
	}
	return f, nil
}

func asInt(name string, v any) (int, error) {
	f, err := asFloat(name, v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, &params.ValidationError{Field: name, Reason: fmt.Sprintf("backend produced non-integer %v", f)}
	}
	return int(f), nil
}

func asBool(name string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, &params.ValidationError{Field: name, Reason: fmt.Sprintf("backend produced %T, expected a bool", v)}
	}
	return b, nil
}
