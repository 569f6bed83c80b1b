// Package registry provides a generic name-to-value table with deferred
// (generator-backed) registration and alias resolution. It backs both the
// backend namespace and the algorithm-preset namespace.
package registry

import (
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Registry maps names to values of type T. Entries may be registered
// directly or as generators that are run once and memoized on first lookup.
// Aliases redirect lookups without duplicating storage.
//
// All methods are safe for concurrent use. Generator resolution happens
// under the registry lock, so a generator runs at most once even when
// multiple goroutines race to resolve the same name.
type Registry[T any] struct {
	mu      sync.Mutex
	values  map[string]T
	pending map[string]func() T
	aliases map[string]string
}

// New creates an empty registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		values:  make(map[string]T),
		pending: make(map[string]func() T),
		aliases: make(map[string]string),
	}
}

// Register inserts or overwrites the value stored under name.
func (r *Registry[T]) Register(name string, value T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[name] = value
	delete(r.pending, name)
	delete(r.aliases, name)
}

// RegisterLazy inserts a deferred entry. The generator runs on first lookup;
// its result replaces the generator from then on.
func (r *Registry[T]) RegisterLazy(name string, gen func() T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending[name] = gen
	delete(r.values, name)
	delete(r.aliases, name)
}

// Alias makes name resolve to target. At most one level of indirection is
// followed during lookup, so aliases must point at real entries.
func (r *Registry[T]) Alias(name, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.aliases[name] = target
	delete(r.values, name)
	delete(r.pending, name)
}

// Lookup returns the value stored under name, following at most one alias
// indirection and forcing the generator if the entry is still deferred.
// Unknown names fail with a NotFoundError listing every valid name.
func (r *Registry[T]) Lookup(name string) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lookupLocked(name)
}

func (r *Registry[T]) lookupLocked(name string) (T, error) {
	if target, ok := r.aliases[name]; ok {
		name = target
	}
	if v, ok := r.values[name]; ok {
		return v, nil
	}
	if gen, ok := r.pending[name]; ok {
		v := gen()
		r.values[name] = v
		delete(r.pending, name)
		return v, nil
	}
	var zero T
	return zero, &NotFoundError{Name: name, Known: r.namesLocked()}
}

// Names returns every currently-valid name (realized, deferred, or alias),
// sorted, without forcing any generators.
func (r *Registry[T]) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.namesLocked()
}

func (r *Registry[T]) namesLocked() []string {
	names := make([]string, 0, len(r.values)+len(r.pending)+len(r.aliases))
	for name := range r.values {
		names = append(names, name)
	}
	for name := range r.pending {
		names = append(names, name)
	}
	for name := range r.aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Items returns a snapshot of every non-alias entry, forcing all remaining
// generators so the listing is concrete.
func (r *Registry[T]) Items() map[string]T {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, gen := range r.pending {
		r.values[name] = gen()
		delete(r.pending, name)
	}

	items := make(map[string]T, len(r.values))
	for name, v := range r.values {
		items[name] = v
	}
	return items
}

// NotFoundError is returned when a name has no entry. It carries the full
// set of valid names to aid discovery.
// Use errors.Is(err, ErrNotFound) to check for this error.
type NotFoundError struct {
	Name  string
	Known []string
}

// ErrNotFound is the errors.Is target for registry misses.
var ErrNotFound = &NotFoundError{}

func (e *NotFoundError) Error() string {
	if len(e.Known) == 0 {
		return "unknown name " + strconv.Quote(e.Name) + " (registry is empty)"
	}
	return "unknown name " + strconv.Quote(e.Name) + " (valid names: " + strings.Join(e.Known, ", ") + ")"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
