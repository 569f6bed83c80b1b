// Package backend defines the pluggable value-producing strategy behind
// each trial, the registries through which optimizer plugins attach, and
// the built-in serving, random, mixture, and mayfly backends.
package backend

import (
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"github.com/cwbudde/blackbox/params"
	"github.com/cwbudde/blackbox/registry"
	"github.com/cwbudde/blackbox/store"
)

// Backend produces concrete values for declared parameters for one trial.
// It is constructed once per run from the accumulated examples and the
// previous run's parameter schema; Param is then called once per declared
// parameter, in declaration order. Guarding against duplicate names is the
// orchestrator's job, not the backend's.
type Backend interface {
	Param(name string, decl params.Decl) (any, error)
}

// Options carries backend-specific construction options.
type Options map[string]any

// Config is everything a backend is constructed from.
type Config struct {
	// Examples is the accumulated trial history.
	Examples []store.Example

	// Params is the parameter schema the history was produced under, i.e.
	// the previous run's declarations.
	Params params.Params

	// Options are backend-specific settings.
	Options Options
}

// Constructor builds a backend for one run.
type Constructor func(cfg Config) (Backend, error)

// Algorithm is a named preset: a backend plus fixed options.
type Algorithm struct {
	Backend string
	Options Options
}

var (
	backends   = registry.New[Constructor]()
	algorithms = registry.New[Algorithm]()
)

// Register makes a backend constructor available under name. This is the
// seam through which external optimizer plugins attach.
func Register(name string, ctor Constructor) {
	backends.Register(name, ctor)
}

// RegisterLazy defers construction-table population until the backend is
// first requested. The generator runs once and is then memoized.
func RegisterLazy(name string, gen func() Constructor) {
	backends.RegisterLazy(name, gen)
}

// RegisterAlias makes name resolve to an already-registered backend.
func RegisterAlias(name, target string) {
	backends.Alias(name, target)
}

// RegisterAlgorithm names a (backend, fixed options) pair.
func RegisterAlgorithm(name, backendName string, opts Options) {
	algorithms.Register(name, Algorithm{Backend: backendName, Options: opts})
}

// RegisterAlgorithmAlias makes name resolve to an existing algorithm.
func RegisterAlgorithmAlias(name, target string) {
	algorithms.Alias(name, target)
}

// Names lists every registered backend.
func Names() []string { return backends.Names() }

// AlgorithmNames lists every registered algorithm preset.
func AlgorithmNames() []string { return algorithms.Names() }

// LookupAlgorithm resolves an algorithm preset by name.
func LookupAlgorithm(name string) (Algorithm, error) {
	return algorithms.Lookup(name)
}

// New constructs the named backend for one run.
func New(name string, examples []store.Example, prior params.Params, opts Options) (Backend, error) {
	ctor, err := backends.Lookup(name)
	if err != nil {
		return nil, err
	}
	return ctor(Config{Examples: examples, Params: prior, Options: opts})
}

// NewFromAlgorithm constructs the backend behind the named algorithm preset.
func NewFromAlgorithm(name string, examples []store.Example, prior params.Params) (Backend, error) {
	alg, err := algorithms.Lookup(name)
	if err != nil {
		return nil, err
	}
	return New(alg.Backend, examples, prior, alg.Options)
}

func init() {
	Register("serving", NewServing)
	Register("random", NewRandom)
	Register("mixture", NewMixture)
	RegisterLazy("mayfly", func() Constructor { return NewMayfly })
	RegisterAlias("serve", "serving")

	RegisterAlgorithm("serving", "serving", nil)
	RegisterAlgorithm("random", "random", nil)
	RegisterAlgorithm("mayfly", "mayfly", nil)
	RegisterAlgorithm("exploratory", "mixture", Options{
		"distribution": []Weighted{
			{Algorithm: "random", Weight: 1},
			{Algorithm: "mayfly", Weight: 3},
		},
	})
}

var (
	seedMu  sync.Mutex
	seedSrc = rand.NewSource(uint64(time.Now().UnixNano()))
)

// newRNG returns a fresh random stream, seeded from the "seed" option when
// present so runs can be made reproducible.
func newRNG(opts Options) (*rand.Rand, rand.Source) {
	var seed uint64
	if raw, ok := opts["seed"]; ok {
		if f, isNum := params.ToFloat(raw); isNum {
			seed = uint64(int64(f))
		}
	} else {
		seedMu.Lock()
		seed = rand.New(seedSrc).Uint64()
		seedMu.Unlock()
	}
	src := rand.NewSource(seed)
	return rand.New(src), src
}
