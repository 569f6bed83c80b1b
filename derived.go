package blackbox

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/cwbudde/blackbox/params"
	"github.com/cwbudde/blackbox/store"
)

// Derived distributions: each is expressed as a transform of a primitive,
// so backends never need to know about them.

// RandInt declares an integer parameter over [a, b], both ends inclusive.
func (o *Optimizer) RandInt(name string, a, b int, opts ...Option) (int, error) {
	if b < a {
		return 0, &params.ValidationError{Field: name, Reason: fmt.Sprintf("empty range [%d, %d]", a, b)}
	}
	return o.RandRange(name, a, b+1, 1, opts...)
}

// Random declares a continuous parameter over [0, 1).
func (o *Optimizer) Random(name string, opts ...Option) (float64, error) {
	return o.Uniform(name, 0, 1, opts...)
}

// RandBool declares a boolean parameter.
func (o *Optimizer) RandBool(name string, opts ...Option) (bool, error) {
	v, err := o.Choice(name, []any{false, true}, opts...)
	if err != nil {
		return false, err
	}
	return asBool(name, v)
}

// GetRandBits declares an integer parameter over [0, 2^k).
func (o *Optimizer) GetRandBits(name string, k int, opts ...Option) (int, error) {
	if k < 1 || k > 62 {
		return 0, &params.ValidationError{Field: name, Reason: fmt.Sprintf("bit count must be in [1, 62], got %d", k)}
	}
	return o.RandRange(name, 0, 1<<k, 1, opts...)
}

// LogUniform declares a parameter whose logarithm is uniform over
// [ln(minVal), ln(maxVal)): a uniform primitive over the log-transformed
// bounds whose produced value is exponentiated.
func (o *Optimizer) LogUniform(name string, minVal, maxVal float64, opts ...Option) (float64, error) {
	if minVal <= 0 || maxVal <= minVal {
		return 0, &params.ValidationError{Field: name, Reason: fmt.Sprintf("needs 0 < min < max, got (%v, %v)", minVal, maxVal)}
	}
	po := params.Reparameterize(buildOptions(opts), params.Log{})
	v, err := o.declare(name, params.KindUniform, []any{math.Log(minVal), math.Log(maxVal)}, po)
	if err != nil {
		return 0, err
	}
	f, err := asFloat(name, v)
	if err != nil {
		return 0, err
	}
	return math.Exp(f), nil
}

// LogNormVariate declares a log-normally-distributed parameter:
// exp(NormalVariate(mu, sigma)).
func (o *Optimizer) LogNormVariate(name string, mu, sigma float64, opts ...Option) (float64, error) {
	po := params.Reparameterize(buildOptions(opts), params.Log{})
	v, err := o.declare(name, params.KindNormal, []any{mu, sigma}, po)
	if err != nil {
		return 0, err
	}
	f, err := asFloat(name, v)
	if err != nil {
		return 0, err
	}
	return math.Exp(f), nil
}

// Sample declares a k-element sample drawn from population without
// replacement, built from one integer-range sub-parameter per draw. The
// pool shrinks as elements are drawn, so per-draw guesses are derived from
// the caller's guess eagerly.
func (o *Optimizer) Sample(name string, population []any, k int, opts ...Option) ([]any, error) {
	if k < 0 {
		return nil, &params.ValidationError{Field: name, Reason: fmt.Sprintf("sample size must be non-negative, got %d", k)}
	}
	if k > 0 && len(population) == 0 {
		return nil, &params.ValidationError{Field: name, Reason: "cannot sample from an empty population"}
	}

	baseOpts := buildOptions(opts)
	guessSeq, hasGuess, err := resolveGuessSequence(baseOpts)
	if err != nil {
		return nil, err
	}

	pool := slices.Clone(population)
	sample := make([]any, 0, k)
	for i := 0; i < k; i++ {
		if len(pool) <= 1 {
			sample = append(sample, pool[0])
			continue
		}

		cellOpts := params.Options{}
		for key, opt := range baseOpts {
			if key != params.GuessKey {
				cellOpts[key] = opt
			}
		}
		if hasGuess && i < len(guessSeq) {
			idx := indexOfValue(pool, guessSeq[i])
			if idx < 0 {
				idx = 0
			}
			cellOpts.Set(params.GuessKey, idx)
		}

		cellName := fmt.Sprintf("%s[%d]", name, i)
		v, err := o.declare(cellName, params.KindRandRange,
			[]any{0.0, float64(len(pool)), 1.0}, cellOpts)
		if err != nil {
			return nil, err
		}
		idx, err := asInt(cellName, v)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(pool) {
			return nil, &params.ValidationError{Field: cellName, Reason: fmt.Sprintf("backend produced index %d outside pool of %d", idx, len(pool))}
		}

		sample = append(sample, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
	}
	return sample, nil
}

// Shuffle declares a random permutation of items.
func (o *Optimizer) Shuffle(name string, items []any, opts ...Option) ([]any, error) {
	return o.Sample(name, items, len(items), opts...)
}

// Rand declares an array parameter with uniform [0, 1) cells, returning the
// values flattened in row-major order.
func (o *Optimizer) Rand(name string, shape []int, opts ...Option) ([]float64, error) {
	return params.ExpandArray(name, shape, buildOptions(opts),
		func(cellName string, cellOpts params.Options) (float64, error) {
			v, err := o.declare(cellName, params.KindUniform, []any{0.0, 1.0}, cellOpts)
			if err != nil {
				return 0, err
			}
			return asFloat(cellName, v)
		})
}

// RandN declares an array parameter with standard-normal cells, returning
// the values flattened in row-major order.
func (o *Optimizer) RandN(name string, shape []int, opts ...Option) ([]float64, error) {
	return params.ExpandArray(name, shape, buildOptions(opts),
		func(cellName string, cellOpts params.Options) (float64, error) {
			v, err := o.declare(cellName, params.KindNormal, []any{0.0, 1.0}, cellOpts)
			if err != nil {
				return 0, err
			}
			return asFloat(cellName, v)
		})
}

// resolveGuessSequence extracts the caller's guess as a flat sequence, when
// present.
func resolveGuessSequence(po params.Options) ([]any, bool, error) {
	opt, ok := po[params.GuessKey]
	if !ok {
		return nil, false, nil
	}
	raw := opt.Value
	if opt.Transform != nil {
		var err error
		raw, err = opt.Transform.Apply(raw)
		if err != nil {
			return nil, false, err
		}
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, &params.ValidationError{Field: params.GuessKey, Reason: fmt.Sprintf("sample guess must be a sequence, got %T", raw)}
	}
	seq := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		seq[i] = rv.Index(i).Interface()
	}
	return seq, true, nil
}

func indexOfValue(pool []any, v any) int {
	want := store.Normalize(v)
	for i, elem := range pool {
		if reflect.DeepEqual(store.Normalize(elem), want) {
			return i
		}
	}
	return -1
}
