package backend

import (
	"fmt"

	"github.com/cwbudde/blackbox/params"
)

// Weighted is one (algorithm, weight) pair in a mixture distribution.
type Weighted struct {
	Algorithm string
	Weight    float64
}

// MixtureBackend probabilistically delegates a whole run to one of several
// registered algorithms. Selection happens once at construction, never per
// parameter, so every value in a run comes from the same underlying
// algorithm.
type MixtureBackend struct {
	inner    Backend
	selected string
}

// NewMixture constructs a mixture from the "distribution" option, a
// []Weighted. Weights are normalized to sum to one; a single uniform sample
// selects the first pair whose cumulative bound reaches it (ties broken by
// input order), and exactly one underlying backend is instantiated.
func NewMixture(cfg Config) (Backend, error) {
	dist, ok := cfg.Options["distribution"].([]Weighted)
	if !ok || len(dist) == 0 {
		return nil, &params.ValidationError{
			Field:  "distribution",
			Reason: "mixture backend needs a non-empty []Weighted option",
		}
	}
	total := 0.0
	for _, w := range dist {
		if w.Weight < 0 {
			return nil, &params.ValidationError{
				Field:  "distribution",
				Reason: fmt.Sprintf("negative weight %v for algorithm %q", w.Weight, w.Algorithm),
			}
		}
		total += w.Weight
	}
	if total <= 0 {
		return nil, &params.ValidationError{
			Field:  "distribution",
			Reason: "weights must sum to a positive value",
		}
	}

	rng, _ := newRNG(cfg.Options)
	u := rng.Float64()

	selected := dist[len(dist)-1].Algorithm
	cumulative := 0.0
	for _, w := range dist {
		cumulative += w.Weight / total
		if u <= cumulative {
			selected = w.Algorithm
			break
		}
	}

	inner, err := NewFromAlgorithm(selected, cfg.Examples, cfg.Params)
	if err != nil {
		return nil, err
	}
	return &MixtureBackend{inner: inner, selected: selected}, nil
}

// Selected returns the algorithm this run was delegated to.
func (b *MixtureBackend) Selected() string { return b.selected }

// Param forwards to the selected algorithm's backend unchanged.
func (b *MixtureBackend) Param(name string, decl params.Decl) (any, error) {
	return b.inner.Param(name, decl)
}
