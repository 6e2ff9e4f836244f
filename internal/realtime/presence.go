package realtime

import (
	"sort"
	"sync"

	"github.com/laundry-marketplace/internal/model"
)

// Registry counts live connections per identity.
// It only reports edges; side effects belong to the caller.
type Registry struct {
	mu     sync.Mutex
	counts map[model.Identity]int
}

// NewRegistry creates an empty presence registry
func NewRegistry() *Registry {
	return &Registry{counts: make(map[model.Identity]int)}
}

// Acquire increments the count for an identity and reports whether it went from 0 to 1
func (r *Registry) Acquire(id model.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts[id]++
	return r.counts[id] == 1
}

// Release decrements the count for an identity and reports whether it reached 0.
// Releasing an identity with no connections is a no-op that returns false.
func (r *Registry) Release(id model.Identity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.counts[id]
	if !ok || n <= 0 {
		delete(r.counts, id)
		return false
	}
	if n == 1 {
		delete(r.counts, id)
		return true
	}
	r.counts[id] = n - 1
	return false
}

// Count returns the live connection count for an identity
func (r *Registry) Count(id model.Identity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[id]
}

// Online returns every identity with at least one connection
func (r *Registry) Online() []model.Identity {
	r.mu.Lock()
	out := make([]model.Identity, 0, len(r.counts))
	for id := range r.counts {
		out = append(out, id)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountType != out[j].AccountType {
			return out[i].AccountType < out[j].AccountType
		}
		return out[i].AccountID < out[j].AccountID
	})
	return out
}
