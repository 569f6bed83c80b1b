package params

import (
	"errors"
	"math"
	"testing"
)

func TestStandardize_RandRange(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want []any
	}{
		{"stop only", []any{10.0}, []any{0.0, 10.0, 1.0}},
		{"start and stop", []any{2.0, 10.0}, []any{2.0, 10.0, 1.0}},
		{"full form", []any{2.0, 10.0, 2.0}, []any{2.0, 10.0, 2.0}},
		{"int args", []any{2, 10}, []any{2.0, 10.0, 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, err := Standardize(KindRandRange, tt.args, nil)
			if err != nil {
				t.Fatalf("Standardize failed: %v", err)
			}
			if len(decl.Args) != 3 {
				t.Fatalf("Expected canonical [start, stop, step], got %v", decl.Args)
			}
			for i := range tt.want {
				if decl.Args[i] != tt.want[i] {
					t.Errorf("Arg %d: expected %v, got %v", i, tt.want[i], decl.Args[i])
				}
			}
		})
	}
}

func TestStandardize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		kind string
		args []any
	}{
		{"empty randrange", KindRandRange, []any{5.0, 5.0}},
		{"negative step", KindRandRange, []any{0.0, 10.0, -1.0}},
		{"non-numeric", KindUniform, []any{"a", 1.0}},
		{"wrong arity", KindUniform, []any{1.0}},
		{"empty choice", KindChoice, []any{[]any{}}},
		{"choice non-sequence", KindChoice, []any{"abc"}},
		{"non-positive sigma", KindNormal, []any{0.0, 0.0}},
		{"mode out of range", KindTriangular, []any{0.0, 1.0, 2.0}},
		{"non-positive rate", KindExponential, []any{0.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Standardize(tt.kind, tt.args, nil)
			if err == nil {
				t.Fatal("Expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ValidationError, got %T", err)
			}
		})
	}
}

func TestStandardize_UnknownKind(t *testing.T) {
	_, err := Standardize("dirichlet", []any{1.0}, nil)
	if err == nil {
		t.Fatal("Expected error for unknown kind")
	}
	var unsupported *UnsupportedDistributionError
	if !errors.As(err, &unsupported) {
		t.Fatalf("Expected UnsupportedDistributionError, got %T", err)
	}
	if unsupported.Kind != "dirichlet" {
		t.Errorf("Error should name the kind, got %q", unsupported.Kind)
	}
}

func TestLogTransform(t *testing.T) {
	v, err := Log{}.Apply(math.E)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got := v.(float64); math.Abs(got-1) > 1e-12 {
		t.Errorf("Expected ln(e)=1, got %v", got)
	}

	if _, err := (Log{}).Apply(-1.0); err == nil {
		t.Error("Expected error for non-positive value")
	}
	if _, err := (Log{}).Apply("nope"); err == nil {
		t.Error("Expected error for non-numeric value")
	}
}

func TestIndexTransform(t *testing.T) {
	nested := []any{
		[]float64{1, 2, 3},
		[]float64{4, 5, 6},
	}
	v, err := Index{Indices: []int{1, 2}}.Apply(nested)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if v.(float64) != 6 {
		t.Errorf("Expected 6, got %v", v)
	}

	if _, err := (Index{Indices: []int{5}}).Apply(nested); err == nil {
		t.Error("Expected out-of-range error")
	}
	if _, err := (Index{Indices: []int{0}}).Apply(42); err == nil {
		t.Error("Expected error indexing a scalar")
	}
}

func TestReparameterize_Composes(t *testing.T) {
	opts := Options{}
	opts.Set(GuessKey, []float64{10, 100})

	// First slice out cell 1, then move it to log space.
	step1 := Reparameterize(opts, Index{Indices: []int{1}})
	step2 := Reparameterize(step1, Log{})

	resolved, err := step2.Resolve()
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	got := resolved[GuessKey].(float64)
	if math.Abs(got-math.Log(100)) > 1e-12 {
		t.Errorf("Expected ln(100), got %v", got)
	}

	// The original options are untouched.
	orig, _ := opts.Resolve()
	if _, ok := orig[GuessKey].([]float64); !ok {
		t.Error("Reparameterize must not mutate its input")
	}
}

func TestExpandArray_RowMajor(t *testing.T) {
	var names []string
	declare := func(cellName string, cellOpts Options) (float64, error) {
		names = append(names, cellName)
		return float64(len(names)), nil
	}

	values, err := ExpandArray("w", []int{2, 3}, nil, declare)
	if err != nil {
		t.Fatalf("ExpandArray failed: %v", err)
	}

	want := []string{"w[0,0]", "w[0,1]", "w[0,2]", "w[1,0]", "w[1,1]", "w[1,2]"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d sub-parameters, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Cell %d: expected %q, got %q", i, want[i], names[i])
		}
	}
	if len(values) != 6 {
		t.Fatalf("Expected 6 values, got %d", len(values))
	}

	// Re-expansion with the same shape reproduces the same names.
	names = nil
	if _, err := ExpandArray("w", []int{2, 3}, nil, declare); err != nil {
		t.Fatalf("Second ExpandArray failed: %v", err)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Re-run cell %d: expected %q, got %q", i, want[i], names[i])
		}
	}
}

func TestExpandArray_SlicesGuessPerCell(t *testing.T) {
	opts := Options{}
	opts.Set(GuessKey, [][]float64{{1, 2}, {3, 4}})

	var guesses []float64
	declare := func(cellName string, cellOpts Options) (float64, error) {
		resolved, err := cellOpts.Resolve()
		if err != nil {
			return 0, err
		}
		guesses = append(guesses, resolved[GuessKey].(float64))
		return 0, nil
	}

	if _, err := ExpandArray("w", []int{2, 2}, opts, declare); err != nil {
		t.Fatalf("ExpandArray failed: %v", err)
	}
	want := []float64{1, 2, 3, 4}
	for i := range want {
		if guesses[i] != want[i] {
			t.Errorf("Cell %d: expected guess %v, got %v", i, want[i], guesses[i])
		}
	}
}

func TestExpandArray_InvalidShape(t *testing.T) {
	declare := func(string, Options) (float64, error) { return 0, nil }

	if _, err := ExpandArray("w", nil, nil, declare); err == nil {
		t.Error("Expected error for empty shape")
	}
	if _, err := ExpandArray("w", []int{2, 0}, nil, declare); err == nil {
		t.Error("Expected error for zero dimension")
	}
}
