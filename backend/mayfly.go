package backend

import (
	"fmt"
	"math"
	mathrand "math/rand"
	"reflect"
	"sort"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/blackbox/params"
	"github.com/cwbudde/blackbox/store"
)

// MayflyBackend obtains the next trial's point from the external mayfly
// swarm optimizer. The previous run's schema is translated into a normalized
// box, the history into training pairs (gains negated into losses), and one
// suggested point is mapped back onto declared names in sorted-name order.
// Parameters absent from the previous schema fall back to random draws.
type MayflyBackend struct {
	suggested map[string]any
	fallback  *RandomBackend
}

// Options understood by the mayfly backend (besides "seed"):
// "iterations" and "population" tune the underlying swarm.
const (
	defaultMayflyIterations = 60
	defaultMayflyPopulation = 20
)

// NewMayfly constructs the mayfly-suggested backend. Distribution kinds the
// optimizer cannot model fail with a CompatibilityError before the external
// library is invoked.
func NewMayfly(cfg Config) (Backend, error) {
	rng, src := newRNG(cfg.Options)
	b := &MayflyBackend{fallback: &RandomBackend{rng: rng, src: src}}

	names := make([]string, 0, len(cfg.Params))
	for name := range cfg.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	// Fail fast on unsupported kinds, then bail to random exploration if
	// there is nothing to train on.
	dims := make([]dimension, len(names))
	for i, name := range names {
		dim, err := newDimension(name, cfg.Params[name])
		if err != nil {
			return nil, err
		}
		dims[i] = dim
	}
	if len(dims) == 0 {
		return b, nil
	}

	points, losses := trainingData(cfg.Examples, dims)
	if len(points) == 0 {
		return b, nil
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = interpolate(points, losses)
	config.ProblemSize = len(dims)
	config.MaxIterations = intOption(cfg.Options, "iterations", defaultMayflyIterations)
	config.NPop = intOption(cfg.Options, "population", defaultMayflyPopulation)
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = mathrand.New(mathrand.NewSource(int64(rng.Uint64())))

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	b.suggested = make(map[string]any, len(dims))
	for i, dim := range dims {
		b.suggested[dim.name] = dim.decode(result.GlobalBest.Position[i])
	}
	return b, nil
}

// Param serves the suggested point, falling back to a random draw for any
// parameter the previous schema did not cover.
func (b *MayflyBackend) Param(name string, decl params.Decl) (any, error) {
	if v, ok := b.suggested[name]; ok {
		return v, nil
	}
	return b.fallback.Param(name, decl)
}

// dimension maps one declared parameter onto the normalized [0,1] axis the
// swarm searches over.
type dimension struct {
	name string
	decl params.Decl
}

func newDimension(name string, decl params.Decl) (dimension, error) {
	switch decl.Kind {
	case params.KindUniform, params.KindRandRange, params.KindChoice:
		return dimension{name: name, decl: decl}, nil
	default:
		return dimension{}, &CompatibilityError{Backend: "mayfly", Param: name, Kind: decl.Kind}
	}
}

// encode maps a recorded value into [0,1]; ok is false when the value does
// not belong to the dimension's domain.
func (d dimension) encode(v any) (float64, bool) {
	switch d.decl.Kind {
	case params.KindUniform:
		f, ok := params.ToFloat(v)
		if !ok {
			return 0, false
		}
		a, b := argFloat(d.decl, 0), argFloat(d.decl, 1)
		if b == a {
			return 0, true
		}
		return (f - a) / (b - a), true

	case params.KindRandRange:
		f, ok := params.ToFloat(v)
		if !ok {
			return 0, false
		}
		start, stop, step := argFloat(d.decl, 0), argFloat(d.decl, 1), argFloat(d.decl, 2)
		count := math.Ceil((stop - start) / step)
		idx := math.Round((f - start) / step)
		if idx < 0 || idx >= count {
			return 0, false
		}
		return (idx + 0.5) / count, true

	case params.KindChoice:
		seq := d.decl.Args[0].([]any)
		for i, elem := range seq {
			if reflect.DeepEqual(store.Normalize(elem), store.Normalize(v)) {
				return (float64(i) + 0.5) / float64(len(seq)), true
			}
		}
		return 0, false
	}
	return 0, false
}

// decode maps a point on the normalized axis back to a concrete value.
func (d dimension) decode(x float64) any {
	x = math.Min(math.Max(x, 0), 1)
	switch d.decl.Kind {
	case params.KindUniform:
		a, b := argFloat(d.decl, 0), argFloat(d.decl, 1)
		return a + x*(b-a)

	case params.KindRandRange:
		start, stop, step := argFloat(d.decl, 0), argFloat(d.decl, 1), argFloat(d.decl, 2)
		count := int(math.Ceil((stop - start) / step))
		idx := int(x * float64(count))
		if idx >= count {
			idx = count - 1
		}
		return int(start + step*float64(idx))

	case params.KindChoice:
		seq := d.decl.Args[0].([]any)
		idx := int(x * float64(len(seq)))
		if idx >= len(seq) {
			idx = len(seq) - 1
		}
		return seq[idx]
	}
	return nil
}

// trainingData encodes every example that covers all dimensions into a
// normalized point plus its loss (gain negated per the minimization
// convention external optimizers expect).
func trainingData(examples []store.Example, dims []dimension) ([][]float64, []float64) {
	var points [][]float64
	var losses []float64
	for i := range examples {
		ex := &examples[i]
		var y float64
		switch {
		case len(ex.Loss) > 0:
			y = ex.Loss[0]
		case len(ex.Gain) > 0:
			y = -ex.Gain[0]
		default:
			continue
		}
		point := make([]float64, len(dims))
		usable := true
		for j, dim := range dims {
			v, ok := ex.Values[dim.name]
			if !ok {
				usable = false
				break
			}
			x, ok := dim.encode(v)
			if !ok {
				usable = false
				break
			}
			point[j] = x
		}
		if usable {
			points = append(points, point)
			losses = append(losses, y)
		}
	}
	return points, losses
}

// interpolate exposes the recorded history to the objective-driven swarm as
// an inverse-distance-weighted estimate. The search itself is entirely the
// external library's.
func interpolate(points [][]float64, losses []float64) func([]float64) float64 {
	const eps = 1e-9
	return func(x []float64) float64 {
		weightSum, estimate := 0.0, 0.0
		for i, p := range points {
			d2 := 0.0
			for j := range p {
				diff := x[j] - p[j]
				d2 += diff * diff
			}
			if d2 < eps {
				return losses[i]
			}
			w := 1 / d2
			weightSum += w
			estimate += w * losses[i]
		}
		return estimate / weightSum
	}
}

func intOption(opts Options, key string, fallback int) int {
	if raw, ok := opts[key]; ok {
		if f, isNum := params.ToFloat(raw); isNum {
			return int(f)
		}
	}
	return fallback
}
