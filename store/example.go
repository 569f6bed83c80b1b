package store

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/cwbudde/blackbox/params"
)

// Example is one completed trial: the concrete value consumed for each
// declared parameter, exactly one of Loss or Gain, an optional free-form
// memo, and the timestamp assigned when the record was committed.
//
// An Example is immutable once committed; its timestamp doubles as a
// uniqueness token and an ordering key across processes.
type Example struct {
	Values    map[string]any
	Loss      []float64
	Gain      []float64
	Memo      map[string]any
	Timestamp float64
}

// HasReward reports whether a loss or gain has been recorded.
func (e *Example) HasReward() bool {
	return e.Loss != nil || e.Gain != nil
}

// Equal reports value-equality between two examples. Numeric values are
// compared after normalization so that an example re-read through a codec
// still matches its in-memory original.
func (e *Example) Equal(other *Example) bool {
	return reflect.DeepEqual(e.wire(), other.wire())
}

// rewardKey is the example's reward as a minimization key: losses as-is,
// gains negated. Lexicographic order on the key ranks examples.
func (e *Example) rewardKey() ([]float64, bool) {
	switch {
	case e.Loss != nil:
		return e.Loss, true
	case e.Gain != nil:
		key := make([]float64, len(e.Gain))
		for i, g := range e.Gain {
			key[i] = -g
		}
		return key, true
	default:
		return nil, false
	}
}

// BestExample returns the example with the lowest loss (equivalently the
// highest gain) seen so far. Gains are compared against losses by negation.
func BestExample(examples []Example) (Example, bool) {
	var best Example
	var bestKey []float64
	found := false
	for _, ex := range examples {
		key, ok := ex.rewardKey()
		if !ok {
			continue
		}
		if !found || slices.Compare(key, bestKey) < 0 {
			best = ex
			bestKey = key
			found = true
		}
	}
	return best, found
}

// wire returns the example in the generic document layout shared by every
// serialization protocol.
func (e *Example) wire() map[string]any {
	w := map[string]any{
		"values": normalizeValueMap(e.Values),
	}
	if e.Loss != nil {
		w["loss"] = rewardWire(e.Loss)
	}
	if e.Gain != nil {
		w["gain"] = rewardWire(e.Gain)
	}
	if len(e.Memo) > 0 {
		w["memo"] = normalizeValueMap(e.Memo)
	}
	if e.Timestamp != 0 {
		w["timestamp"] = e.Timestamp
	}
	return w
}

// rewardWire writes a single-component reward as a scalar and anything
// longer as a sequence, matching the persisted layout.
func rewardWire(reward []float64) any {
	if len(reward) == 1 {
		return reward[0]
	}
	out := make([]any, len(reward))
	for i, v := range reward {
		out[i] = v
	}
	return out
}

func exampleFromWire(raw any) (Example, error) {
	m, err := asStringMap(raw)
	if err != nil {
		return Example{}, fmt.Errorf("malformed example: %w", err)
	}

	ex := Example{}
	if values, ok := m["values"]; ok {
		vm, err := asStringMap(values)
		if err != nil {
			return Example{}, fmt.Errorf("malformed example values: %w", err)
		}
		ex.Values = normalizeValueMap(vm)
	} else {
		ex.Values = map[string]any{}
	}

	if loss, ok := m["loss"]; ok {
		vals, err := rewardFromWire(loss)
		if err != nil {
			return Example{}, fmt.Errorf("malformed loss: %w", err)
		}
		ex.Loss = vals
	}
	if gain, ok := m["gain"]; ok {
		if ex.Loss != nil {
			return Example{}, fmt.Errorf("malformed example: both loss and gain present")
		}
		vals, err := rewardFromWire(gain)
		if err != nil {
			return Example{}, fmt.Errorf("malformed gain: %w", err)
		}
		ex.Gain = vals
	}

	if memo, ok := m["memo"]; ok {
		mm, err := asStringMap(memo)
		if err != nil {
			return Example{}, fmt.Errorf("malformed memo: %w", err)
		}
		ex.Memo = normalizeValueMap(mm)
	}

	if ts, ok := m["timestamp"]; ok {
		f, ok := params.ToFloat(ts)
		if !ok {
			return Example{}, fmt.Errorf("malformed timestamp: %T", ts)
		}
		ex.Timestamp = f
	}
	return ex, nil
}

func rewardFromWire(raw any) ([]float64, error) {
	if f, ok := params.ToFloat(raw); ok {
		return []float64{f}, nil
	}
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("reward must be a number or a sequence of numbers, got %T", raw)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("reward sequence must not be empty")
	}
	vals := make([]float64, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		f, ok := params.ToFloat(rv.Index(i).Interface())
		if !ok {
			return nil, fmt.Errorf("reward component %d is not a number: %T", i, rv.Index(i).Interface())
		}
		vals[i] = f
	}
	return vals, nil
}

// Normalize canonicalizes a value the way the store does before comparing
// or serializing: numerics to float64, sequences to []any, mappings to
// map[string]any, recursively. Useful for comparing declared values against
// values re-read through a codec.
func Normalize(v any) any { return normalizeValue(v) }

// normalizeValue canonicalizes a value for comparison and serialization:
// every numeric type becomes float64, sequences become []any, and maps
// become map[string]any, applied recursively.
func normalizeValue(v any) any {
	if f, ok := params.ToFloat(v); ok {
		return f
	}
	switch t := v.(type) {
	case nil, bool, string:
		return t
	case map[string]any:
		return normalizeValueMap(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	}
	return v
}

func normalizeValueMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func asStringMap(raw any) (map[string]any, error) {
	switch m := raw.(type) {
	case map[string]any:
		return m, nil
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v", k)
			}
			out[s] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a mapping, got %T", raw)
	}
}
