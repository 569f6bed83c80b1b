package backend

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/cwbudde/blackbox/params"
)

// RandomBackend draws each parameter independently from its declared
// distribution, ignoring history. It is the baseline exploration strategy
// and the fallback other backends reach for when they cannot suggest.
type RandomBackend struct {
	rng *rand.Rand
	src rand.Source
}

// NewRandom constructs the random backend. The "seed" option makes draws
// reproducible.
func NewRandom(cfg Config) (Backend, error) {
	rng, src := newRNG(cfg.Options)
	return &RandomBackend{rng: rng, src: src}, nil
}

func (b *RandomBackend) Param(name string, decl params.Decl) (any, error) {
	return sampleDecl(decl, b.rng, b.src)
}

// sampleDecl draws one value from a canonical declaration.
func sampleDecl(decl params.Decl, rng *rand.Rand, src rand.Source) (any, error) {
	switch decl.Kind {
	case params.KindChoice:
		seq := decl.Args[0].([]any)
		return seq[rng.Intn(len(seq))], nil

	case params.KindRandRange:
		start, stop, step := argFloat(decl, 0), argFloat(decl, 1), argFloat(decl, 2)
		count := int(math.Ceil((stop - start) / step))
		return int(start + step*float64(rng.Intn(count))), nil

	case params.KindUniform:
		a, b := argFloat(decl, 0), argFloat(decl, 1)
		return a + rng.Float64()*(b-a), nil

	case params.KindTriangular:
		low, high, mode := argFloat(decl, 0), argFloat(decl, 1), argFloat(decl, 2)
		return distuv.NewTriangle(low, high, mode, src).Rand(), nil

	case params.KindBeta:
		return distuv.Beta{Alpha: argFloat(decl, 0), Beta: argFloat(decl, 1), Src: src}.Rand(), nil

	case params.KindExponential:
		return distuv.Exponential{Rate: argFloat(decl, 0), Src: src}.Rand(), nil

	case params.KindGamma:
		// The declaration's second argument is a scale; distuv takes a rate.
		return distuv.Gamma{Alpha: argFloat(decl, 0), Beta: 1 / argFloat(decl, 1), Src: src}.Rand(), nil

	case params.KindNormal:
		return distuv.Normal{Mu: argFloat(decl, 0), Sigma: argFloat(decl, 1), Src: src}.Rand(), nil

	case params.KindPareto:
		return distuv.Pareto{Xm: 1, Alpha: argFloat(decl, 0), Src: src}.Rand(), nil

	case params.KindWeibull:
		// Declared as (scale, shape); distuv is K=shape, Lambda=scale.
		return distuv.Weibull{K: argFloat(decl, 1), Lambda: argFloat(decl, 0), Src: src}.Rand(), nil

	default:
		return nil, &params.UnsupportedDistributionError{Kind: decl.Kind}
	}
}

// argFloat reads a canonical numeric argument. Standardize guarantees the
// shape, so a miss here is a programming error.
func argFloat(decl params.Decl, i int) float64 {
	f, ok := params.ToFloat(decl.Args[i])
	if !ok {
		panic(fmt.Sprintf("non-numeric canonical argument %d in %q declaration", i, decl.Kind))
	}
	return f
}
