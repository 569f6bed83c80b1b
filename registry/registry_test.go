package registry

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New[int]()
	r.Register("one", 1)
	r.Register("two", 2)

	v, err := r.Lookup("two")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if v != 2 {
		t.Errorf("Expected 2, got %d", v)
	}

	// Register overwrites.
	r.Register("two", 22)
	v, _ = r.Lookup("two")
	if v != 22 {
		t.Errorf("Expected overwrite to 22, got %d", v)
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := New[string]()
	r.Register("alpha", "a")
	r.RegisterLazy("beta", func() string { return "b" })

	_, err := r.Lookup("gamma")
	if err == nil {
		t.Fatal("Expected error for unknown name")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected NotFoundError, got %T", err)
	}

	// The error lists every valid name, forced or not.
	msg := err.Error()
	for _, name := range []string{"alpha", "beta"} {
		if !strings.Contains(msg, name) {
			t.Errorf("Error %q should mention %q", msg, name)
		}
	}
}

func TestRegisterLazy_RunsOnce(t *testing.T) {
	r := New[int]()
	calls := 0
	r.RegisterLazy("lazy", func() int {
		calls++
		return 42
	})

	if calls != 0 {
		t.Fatal("Generator should not run at registration time")
	}

	for i := 0; i < 3; i++ {
		v, err := r.Lookup("lazy")
		if err != nil {
			t.Fatalf("Lookup failed: %v", err)
		}
		if v != 42 {
			t.Errorf("Expected 42, got %d", v)
		}
	}
	if calls != 1 {
		t.Errorf("Generator should run exactly once, ran %d times", calls)
	}
}

func TestRegisterLazy_SingleFlight(t *testing.T) {
	r := New[int]()
	calls := 0
	r.RegisterLazy("lazy", func() int {
		calls++
		return 7
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Lookup("lazy"); err != nil {
				t.Errorf("Lookup failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("Generator should run exactly once under contention, ran %d times", calls)
	}
}

func TestAlias(t *testing.T) {
	r := New[int]()
	r.Register("canonical", 5)
	r.Alias("nickname", "canonical")

	v, err := r.Lookup("nickname")
	if err != nil {
		t.Fatalf("Lookup through alias failed: %v", err)
	}
	if v != 5 {
		t.Errorf("Expected 5, got %d", v)
	}
}

func TestAlias_SingleIndirection(t *testing.T) {
	r := New[int]()
	r.Register("real", 1)
	r.Alias("hop1", "real")
	r.Alias("hop2", "hop1")

	// Only one level of indirection is followed.
	if _, err := r.Lookup("hop2"); err == nil {
		t.Error("Expected chained alias lookup to fail")
	}
}

func TestNames_DoesNotForce(t *testing.T) {
	r := New[int]()
	r.Register("a", 1)
	forced := false
	r.RegisterLazy("b", func() int {
		forced = true
		return 2
	})
	r.Alias("c", "a")

	names := r.Names()
	want := []string{"a", "b", "c"}
	if len(names) != len(want) {
		t.Fatalf("Expected %v, got %v", want, names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Expected names[%d]=%q, got %q", i, want[i], names[i])
		}
	}
	if forced {
		t.Error("Names should not force generators")
	}
}

func TestItems_ForcesAll(t *testing.T) {
	r := New[int]()
	r.Register("a", 1)
	r.RegisterLazy("b", func() int { return 2 })

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items["b"] != 2 {
		t.Errorf("Expected forced value 2, got %d", items["b"])
	}
}
