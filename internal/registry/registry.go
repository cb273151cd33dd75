// Package registry implements the exception-coverage registry of
// spec.md §4.6 step 5 and §9's "Registry" replacement for the teacher's
// process-wide ExceptionCoverageFactory/MethodPool singletons: an owned
// value threaded through construction rather than a package-level
// singleton, with an explicit New -> Populate -> (search mutates it) ->
// Drain lifecycle.
package registry

import "sync"

// ExceptionKey identifies one observed exception by class, method, and
// exception type (spec.md §6 execution-result input).
type ExceptionKey struct {
	ClassName     string
	MethodName    string
	ExceptionType string
}

// Registry tracks every exception key ever observed across searches. It
// is process-wide in effect (shared knowledge of what's been seen) but
// never a package-level singleton: callers own an instance and pass it
// explicitly (spec.md §9).
type Registry struct {
	mu   sync.Mutex
	seen map[ExceptionKey]bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{seen: make(map[ExceptionKey]bool)}
}

// NewFromSeed creates a registry pre-populated with keys discovered by a
// previous search; Seen reports them and RegisterIfNew treats them as
// already seen. The registry only records keys: goalmanager.Build does
// not create exception targets from a seeded registry.
func NewFromSeed(keys []ExceptionKey) *Registry {
	r := New()
	r.Populate(keys)
	return r
}

// Populate adds keys to the registry without signaling "newly seen";
// used only to seed from a previous run's results.
func (r *Registry) Populate(keys []ExceptionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range keys {
		r.seen[k] = true
	}
}

// Seen reports whether k has ever been registered.
func (r *Registry) Seen(k ExceptionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen[k]
}

// RegisterIfNew registers k and reports whether it was new. Guarded by a
// mutex per spec.md §5's note that access must be guarded if evaluation
// is ever parallelized.
func (r *Registry) RegisterIfNew(k ExceptionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seen[k] {
		return false
	}
	r.seen[k] = true
	return true
}

// Drain returns every key currently registered, for handoff to whatever
// persists search results across runs (explicitly out of scope for this
// package — see spec.md Non-goals).
func (r *Registry) Drain() []ExceptionKey {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ExceptionKey, 0, len(r.seen))
	for k := range r.seen {
		out = append(out, k)
	}
	return out
}
