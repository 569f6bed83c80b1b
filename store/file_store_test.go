package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/cwbudde/blackbox/params"
)

func newTestStore(t *testing.T, name string) *FileStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func testDocument(t *testing.T) *Document {
	t.Helper()
	doc := NewDocument()
	decl, err := params.Standardize(params.KindRandRange, []any{0.0, 10.0}, nil)
	if err != nil {
		t.Fatalf("Failed to standardize declaration: %v", err)
	}
	doc.Params["x"] = decl
	return doc
}

func TestLoad_CreatesEmptyFile(t *testing.T) {
	s := newTestStore(t, "data.json")

	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Examples) != 0 || len(doc.Params) != 0 {
		t.Errorf("Expected an empty document, got %d params, %d examples",
			len(doc.Params), len(doc.Examples))
	}
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("Backing file should exist after first Load: %v", err)
	}
}

func TestCommit_RoundTrip(t *testing.T) {
	s := newTestStore(t, "data.json")
	doc := testDocument(t)

	ex := &Example{
		Values: map[string]any{"x": 3.0},
		Loss:   []float64{9.0},
		Memo:   map[string]any{"note": "first trial"},
	}
	merged, err := s.Commit(doc, ex)
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if len(merged.Examples) != 1 {
		t.Fatalf("Expected 1 example after commit, got %d", len(merged.Examples))
	}
	if ex.Timestamp <= 0 {
		t.Errorf("Commit should assign a positive timestamp, got %v", ex.Timestamp)
	}

	// A fresh store over the same file sees the committed history.
	reopened, err := New(s.Path())
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	loaded, err := reopened.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Examples) != 1 {
		t.Fatalf("Expected 1 example after reload, got %d", len(loaded.Examples))
	}
	if !loaded.Examples[0].Equal(ex) {
		t.Errorf("Reloaded example differs:\n got %+v\nwant %+v", loaded.Examples[0], *ex)
	}
	if loaded.Params["x"].Kind != params.KindRandRange {
		t.Errorf("Expected schema to survive the round trip, got %+v", loaded.Params["x"])
	}
}

func TestCommit_RejectsAlreadyCommitted(t *testing.T) {
	s := newTestStore(t, "data.json")
	ex := &Example{
		Values:    map[string]any{"x": 1.0},
		Loss:      []float64{1.0},
		Timestamp: 42.0,
	}
	if _, err := s.Commit(NewDocument(), ex); err == nil {
		t.Error("Expected error committing an already-timestamped example")
	}
}

func TestCommit_RejectsMissingReward(t *testing.T) {
	s := newTestStore(t, "data.json")
	ex := &Example{Values: map[string]any{"x": 1.0}}
	if _, err := s.Commit(NewDocument(), ex); err == nil {
		t.Error("Expected error committing an example with no loss or gain")
	}
}

func TestCommit_MergesWithoutDuplicates(t *testing.T) {
	s := newTestStore(t, "data.json")
	doc := testDocument(t)

	first := &Example{Values: map[string]any{"x": 1.0}, Loss: []float64{1.0}}
	merged, err := s.Commit(doc, first)
	if err != nil {
		t.Fatalf("First commit failed: %v", err)
	}

	// A second writer carrying the merged history commits one more example;
	// the shared example must not be duplicated.
	other, err := New(s.Path())
	if err != nil {
		t.Fatalf("Failed to open second store: %v", err)
	}
	second := &Example{Values: map[string]any{"x": 2.0}, Loss: []float64{4.0}}
	final, err := other.Commit(merged, second)
	if err != nil {
		t.Fatalf("Second commit failed: %v", err)
	}
	if len(final.Examples) != 2 {
		t.Fatalf("Expected 2 examples, got %d", len(final.Examples))
	}
	if !final.Examples[0].Equal(first) {
		t.Error("Disk order should come first in the merged document")
	}
	if second.Timestamp <= first.Timestamp {
		t.Errorf("Timestamps must be strictly increasing: %v then %v",
			first.Timestamp, second.Timestamp)
	}
}

func TestCommit_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := New(path)
			if err != nil {
				errs[i] = err
				return
			}
			ex := &Example{
				Values: map[string]any{"x": float64(i)},
				Loss:   []float64{float64(i * i)},
			}
			_, errs[i] = s.Commit(NewDocument(), ex)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Writer %d failed: %v", i, err)
		}
	}

	s, err := New(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	doc, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(doc.Examples) != writers {
		t.Fatalf("Expected %d examples, got %d", writers, len(doc.Examples))
	}

	seen := map[float64]bool{}
	prev := 0.0
	for i, ex := range doc.Examples {
		x := ex.Values["x"].(float64)
		if seen[x] {
			t.Errorf("Duplicate example for x=%v", x)
		}
		seen[x] = true
		if ex.Timestamp <= prev {
			t.Errorf("Example %d: timestamp %v not after %v", i, ex.Timestamp, prev)
		}
		prev = ex.Timestamp
	}
}

func TestCommit_LockTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := New(path, WithLockTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Hold the advisory lock from a separate file description so the
	// store's attempt has to wait it out.
	holder := flock.New(path)
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("Failed to take the lock: locked=%v err=%v", locked, err)
	}
	defer holder.Unlock()

	ex := &Example{Values: map[string]any{"x": 1.0}, Loss: []float64{1.0}}
	_, err = s.Commit(NewDocument(), ex)
	if err == nil {
		t.Fatal("Expected commit to time out waiting for the lock")
	}
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Expected LockTimeoutError, got %v", err)
	}
	var lockErr *LockTimeoutError
	if errors.As(err, &lockErr) && lockErr.Path != path {
		t.Errorf("Error should name the contested path, got %q", lockErr.Path)
	}
}

func TestNew_UnknownExtension(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "data.toml")); err == nil {
		t.Error("Expected error for an extension with no codec")
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "data.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, statErr := os.Stat(filepath.Dir(path)); statErr != nil {
		t.Errorf("Parent directory should exist: %v", statErr)
	}
}

func TestBestExample(t *testing.T) {
	examples := []Example{
		{Values: map[string]any{"x": 1.0}, Loss: []float64{5.0}, Timestamp: 1},
		{Values: map[string]any{"x": 2.0}, Gain: []float64{2.0}, Timestamp: 2},
		{Values: map[string]any{"x": 3.0}, Loss: []float64{-1.0}, Timestamp: 3},
	}
	best, ok := BestExample(examples)
	if !ok {
		t.Fatal("Expected a best example")
	}
	if best.Values["x"] != 3.0 {
		t.Errorf("Expected the loss=-1 example to win, got %+v", best)
	}

	// A gain of 4 beats a loss of -1 once negated.
	examples = append(examples, Example{
		Values: map[string]any{"x": 4.0}, Gain: []float64{4.0}, Timestamp: 4,
	})
	best, _ = BestExample(examples)
	if best.Values["x"] != 4.0 {
		t.Errorf("Expected the gain=4 example to win, got %+v", best)
	}

	if _, ok := BestExample(nil); ok {
		t.Error("Expected no best example in an empty history")
	}
}

func TestBestExample_VectorRewards(t *testing.T) {
	examples := []Example{
		{Loss: []float64{1.0, 9.0}, Timestamp: 1},
		{Loss: []float64{1.0, 2.0}, Timestamp: 2},
		{Loss: []float64{2.0, 0.0}, Timestamp: 3},
	}
	best, ok := BestExample(examples)
	if !ok {
		t.Fatal("Expected a best example")
	}
	if best.Timestamp != 2 {
		t.Errorf("Expected lexicographic comparison to pick (1, 2), got %+v", best)
	}
}

func TestExample_EqualIgnoresNumericType(t *testing.T) {
	a := &Example{Values: map[string]any{"x": 3}, Loss: []float64{9}, Timestamp: 1}
	b := &Example{Values: map[string]any{"x": 3.0}, Loss: []float64{9}, Timestamp: 1}
	if !a.Equal(b) {
		t.Error("Examples differing only in numeric representation must be equal")
	}

	c := &Example{Values: map[string]any{"x": 3.0}, Loss: []float64{9}, Timestamp: 2}
	if a.Equal(c) {
		t.Error("Examples with different timestamps must not be equal")
	}
}

func TestAddExamples_SetSemantics(t *testing.T) {
	doc := NewDocument()
	ex := Example{Values: map[string]any{"x": 1.0}, Loss: []float64{1.0}, Timestamp: 1}

	if added := doc.AddExamples(ex); added != 1 {
		t.Fatalf("Expected 1 added, got %d", added)
	}
	if added := doc.AddExamples(ex); added != 0 {
		t.Errorf("Expected re-adding the same example to be a no-op, got %d added", added)
	}

	// Order of genuinely new examples is preserved.
	more := make([]Example, 3)
	for i := range more {
		more[i] = Example{
			Values:    map[string]any{"x": float64(10 + i)},
			Loss:      []float64{float64(i)},
			Timestamp: float64(10 + i),
		}
	}
	doc.AddExamples(more...)
	if len(doc.Examples) != 4 {
		t.Fatalf("Expected 4 examples, got %d", len(doc.Examples))
	}
	for i := range more {
		if doc.Examples[1+i].Values["x"] != float64(10+i) {
			t.Errorf("Example %d out of order: %v", 1+i, doc.Examples[1+i].Values["x"])
		}
	}
}
