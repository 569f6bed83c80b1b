// Package blackbox lets a program declare tunable parameters inline, run
// repeatedly (often as independent parallel processes), and converge toward
// values that optimize a reported loss or gain. The statistical optimization
// itself is delegated to interchangeable backends; this package owns the
// trial lifecycle and the shared, multi-process-safe history of past trials.
package blackbox

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/cwbudde/blackbox/backend"
	"github.com/cwbudde/blackbox/params"
	"github.com/cwbudde/blackbox/store"
)

// dataFileInfix sits between the program's file stem and the protocol
// extension: "train.go" optimizes against "train.blackbox.json".
const dataFileInfix = ".blackbox"

// runState tracks one trial's position in the lifecycle. A run opens with
// parameter declarations, closes with exactly one reward, and (unless the
// serving backend is active) ends committed to the store.
type runState int

const (
	stateParamsOpen runState = iota
	stateRewardSet
	stateCommitted
)

// Optimizer binds one trial to one example store. It exposes the parameter
// declaration API, drives the active backend for the current trial, and
// commits the trial exactly once a reward is known.
//
// An Optimizer is per-process state and is not safe for concurrent use;
// cross-process safety lives in the store's locking protocol.
type Optimizer struct {
	file   string
	store  *store.FileStore
	logger *slog.Logger

	// History and the schema it was produced under, as of the last load.
	oldParams params.Params
	examples  []store.Example

	backend backend.Backend
	serving bool

	// In-progress run, owned exclusively by this Optimizer until commit.
	newParams params.Params
	current   store.Example
	state     runState
}

type optimizerConfig struct {
	codec       store.Codec
	lockTimeout time.Duration
	dataFile    string
	logger      *slog.Logger
}

// OptimizerOption configures New.
type OptimizerOption func(*optimizerConfig)

// WithProtocol forces a serialization protocol for a fresh store instead of
// auto-detecting from existing files.
func WithProtocol(c store.Codec) OptimizerOption {
	return func(cfg *optimizerConfig) { cfg.codec = c }
}

// WithLockTimeout bounds how long store operations wait for the backing
// file's lock.
func WithLockTimeout(d time.Duration) OptimizerOption {
	return func(cfg *optimizerConfig) { cfg.lockTimeout = d }
}

// WithDataFile overrides the derived backing-file path.
func WithDataFile(path string) OptimizerOption {
	return func(cfg *optimizerConfig) { cfg.dataFile = path }
}

// WithLogger routes the optimizer's debug logging.
func WithLogger(logger *slog.Logger) OptimizerOption {
	return func(cfg *optimizerConfig) { cfg.logger = logger }
}

// New constructs an optimizer whose history lives next to file (pass the
// program's own path). The serving backend is installed by default, so a
// program that never calls Run can be imported and replayed without side
// effects.
func New(file string, opts ...OptimizerOption) (*Optimizer, error) {
	if file == "" {
		return nil, &params.ValidationError{Field: "file", Reason: "must be a non-empty string"}
	}
	cfg := optimizerConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	dataFile := cfg.dataFile
	if dataFile == "" {
		dataFile = deriveDataFile(file, cfg.codec)
	}

	var storeOpts []store.StoreOption
	if cfg.codec != nil {
		storeOpts = append(storeOpts, store.WithCodec(cfg.codec))
	}
	if cfg.lockTimeout > 0 {
		storeOpts = append(storeOpts, store.WithLockTimeout(cfg.lockTimeout))
	}
	st, err := store.New(dataFile, storeOpts...)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Optimizer{file: file, store: st, logger: logger}
	if err := o.Reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// deriveDataFile picks the backing file for a program file: an existing
// store is reused whatever its protocol, and fresh stores default to the
// text protocol.
func deriveDataFile(file string, codec store.Codec) string {
	stem := strings.TrimSuffix(file, filepath.Ext(file)) + dataFileInfix
	if codec != nil {
		return stem + codec.Ext()
	}
	for _, ext := range []string{".json", ".msgpack"} {
		if _, err := os.Stat(stem + ext); err == nil {
			return stem + ext
		}
	}
	return stem + ".json"
}

// Reload re-reads the store and resets to the serving backend.
func (o *Optimizer) Reload() error {
	doc, err := o.store.Load()
	if err != nil {
		return err
	}
	o.oldParams = doc.Params
	o.examples = doc.Examples
	return o.RunBackend("serving", nil)
}

// Run starts a new trial using the named algorithm preset. Use Algorithms
// for the list of valid names.
func (o *Optimizer) Run(algorithm string) error {
	alg, err := backend.LookupAlgorithm(algorithm)
	if err != nil {
		return err
	}
	return o.RunBackend(alg.Backend, alg.Options)
}

// RunBackend starts a new trial using an explicit backend and options. The
// backend is constructed from the accumulated history and the previous
// run's schema; the in-progress schema and example reset to empty.
func (o *Optimizer) RunBackend(name string, opts backend.Options) error {
	b, err := backend.New(name, o.examples, o.oldParams, opts)
	if err != nil {
		return err
	}
	o.backend = b
	_, o.serving = b.(*backend.ServingBackend)
	o.newParams = params.Params{}
	o.current = store.Example{Values: map[string]any{}}
	o.state = stateParamsOpen
	return nil
}

// Remember attaches free-form information to the current trial's memo.
// Like declarations, it must come before Minimize or Maximize.
func (o *Optimizer) Remember(info map[string]any) error {
	if o.state != stateParamsOpen {
		return &params.ValidationError{Field: "memo", Reason: "Remember calls must come before Minimize/Maximize"}
	}
	if o.current.Memo == nil {
		o.current.Memo = map[string]any{}
	}
	for k, v := range info {
		o.current.Memo[k] = v
	}
	return nil
}

// Minimize reports the trial's loss: a float, an int, or a flat numeric
// sequence. Exactly one Minimize or Maximize call ends the trial.
func (o *Optimizer) Minimize(value any) error {
	return o.setReward("loss", value)
}

// Maximize reports the trial's gain. See Minimize.
func (o *Optimizer) Maximize(value any) error {
	return o.setReward("gain", value)
}

func (o *Optimizer) setReward(kind string, value any) error {
	if o.state != stateParamsOpen {
		return &params.ValidationError{Field: kind, Reason: "only one call to Minimize or Maximize is allowed per run"}
	}
	vals, err := rewardValues(kind, value)
	if err != nil {
		return err
	}
	if kind == "loss" {
		o.current.Loss = vals
	} else {
		o.current.Gain = vals
	}
	o.state = stateRewardSet

	// Serving runs are replay-only and never extend history.
	if o.serving {
		return nil
	}

	merged, err := o.store.Commit(o.dataDocument(), &o.current)
	if err != nil {
		return err
	}
	o.oldParams = merged.Params
	o.examples = merged.Examples
	o.state = stateCommitted
	o.logger.Debug("Trial committed",
		"dataFile", o.store.Path(),
		"timestamp", o.current.Timestamp,
		"examples", len(o.examples))
	return nil
}

// dataDocument is the store view for the current process: the previous
// schema updated with this run's declarations, plus the history seen so far.
func (o *Optimizer) dataDocument() *store.Document {
	merged := o.oldParams.Clone()
	for name, decl := range o.newParams {
		merged[name] = decl
	}
	return &store.Document{Params: merged, Examples: o.examples}
}

// rewardValues validates and flattens a reward: scalars become one-element
// sequences, flat numeric sequences pass through, anything else is rejected.
func rewardValues(kind string, value any) ([]float64, error) {
	if f, ok := params.ToFloat(value); ok {
		return []float64{f}, nil
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, &params.ValidationError{
			Field:  kind,
			Reason: fmt.Sprintf("must be a number or a flat numeric sequence, got %T", value),
		}
	}
	if rv.Len() == 0 {
		return nil, &params.ValidationError{Field: kind, Reason: "sequence must not be empty"}
	}
	vals := make([]float64, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		f, ok := params.ToFloat(rv.Index(i).Interface())
		if !ok {
			return nil, &params.ValidationError{
				Field:  kind,
				Reason: fmt.Sprintf("component %d is not a number: %T", i, rv.Index(i).Interface()),
			}
		}
		vals[i] = f
	}
	return vals, nil
}

// NumExamples returns the number of completed trials seen so far; the
// in-progress trial does not count until Minimize or Maximize.
func (o *Optimizer) NumExamples() int {
	return len(o.examples)
}

// BestExample returns the best completed trial recorded so far.
func (o *Optimizer) BestExample() (store.Example, bool) {
	return store.BestExample(o.examples)
}

// CurrentRun returns the in-progress trial's values and, after Minimize or
// Maximize, its reward.
func (o *Optimizer) CurrentRun() store.Example {
	return o.current
}

// IsServing reports whether the active backend is the serving backend.
func (o *Optimizer) IsServing() bool {
	return o.serving
}

// DataFile returns the path of the backing store file.
func (o *Optimizer) DataFile() string {
	return o.store.Path()
}

// Algorithms lists the registered algorithm presets accepted by Run.
func (o *Optimizer) Algorithms() []string {
	return backend.AlgorithmNames()
}
