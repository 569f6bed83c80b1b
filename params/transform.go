package params

import (
	"fmt"
	"math"
	"reflect"
)

// Transform maps an option value from the space the caller declared in to
// the space of the primitive distribution the declaration was lowered to.
// Derived distributions attach transforms instead of closures so the
// pending work stays inspectable.
type Transform interface {
	Apply(v any) (any, error)
}

// Identity leaves the value unchanged.
type Identity struct{}

func (Identity) Apply(v any) (any, error) { return v, nil }

// Log maps a positive number to its natural logarithm. Used when a
// log-space distribution is lowered to its linear primitive.
type Log struct{}

func (Log) Apply(v any) (any, error) {
	f, ok := toFloat(v)
	if !ok {
		return nil, &ValidationError{Field: "option", Reason: fmt.Sprintf("log transform needs a number, got %T", v)}
	}
	if f <= 0 {
		return nil, &ValidationError{Field: "option", Reason: fmt.Sprintf("log transform needs a positive number, got %v", f)}
	}
	return math.Log(f), nil
}

// Index selects one cell of an array-valued option. Used when an array
// declaration is expanded into per-cell scalar declarations.
type Index struct {
	Indices []int
}

func (t Index) Apply(v any) (any, error) {
	cur := v
	for _, i := range t.Indices {
		rv := reflect.ValueOf(cur)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, &ValidationError{Field: "option", Reason: fmt.Sprintf("index transform needs a sequence, got %T", cur)}
		}
		if i < 0 || i >= rv.Len() {
			return nil, &ValidationError{Field: "option", Reason: fmt.Sprintf("index %d out of range for length %d", i, rv.Len())}
		}
		cur = rv.Index(i).Interface()
	}
	return cur, nil
}

// Compose applies its steps in order.
type Compose struct {
	Steps []Transform
}

func (t Compose) Apply(v any) (any, error) {
	cur := v
	for _, step := range t.Steps {
		next, err := step.Apply(cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
