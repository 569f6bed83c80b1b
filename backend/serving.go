package backend

import (
	"github.com/cwbudde/blackbox/params"
	"github.com/cwbudde/blackbox/store"
)

// ServingBackend replays the best committed values without consuming or
// extending history. It is the safe default before any Run call: a program
// can be imported and re-executed without recording optimization pressure.
type ServingBackend struct {
	best    store.Example
	hasBest bool
}

// NewServing constructs the serving backend from the accumulated history.
func NewServing(cfg Config) (Backend, error) {
	best, ok := store.BestExample(cfg.Examples)
	return &ServingBackend{best: best, hasBest: ok}, nil
}

// Param serves the best example's value for name, falling back to the
// declaration's guess option, and fails when neither exists.
func (b *ServingBackend) Param(name string, decl params.Decl) (any, error) {
	if b.hasBest {
		if v, ok := b.best.Values[name]; ok {
			return v, nil
		}
	}
	if guess, ok := decl.Options[params.GuessKey]; ok {
		return guess, nil
	}
	return nil, &params.ValidationError{
		Field:  name,
		Reason: "has no committed example and no guess to serve",
	}
}
