package networks

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a thread-safe mapping from chain id to Network. It is
// populated during startup and read-only afterwards; every read hands
// out an independent copy.
type Registry struct {
	byID map[uint64]Network
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[uint64]Network),
	}
}

// Register adds a network to the registry.
// Panics if a network with the same chain id is already registered.
func (r *Registry) Register(n Network) {
	if n.ChainID == 0 {
		panic("networks: cannot register network with chain id 0")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[n.ChainID]; exists {
		panic(fmt.Sprintf("networks: chain id %d already registered", n.ChainID))
	}

	r.byID[n.ChainID] = n.clone()
}

// Get retrieves a network by chain id.
func (r *Registry) Get(chainID uint64) (Network, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.byID[chainID]
	if !ok {
		return Network{}, false
	}
	return n.clone(), true
}

// MustGet retrieves a network by chain id, panics if not found.
func (r *Registry) MustGet(chainID uint64) Network {
	n, ok := r.Get(chainID)
	if !ok {
		panic(fmt.Sprintf("networks: chain id %d not in registry", chainID))
	}
	return n
}

// IsSupported reports whether chainID is registered.
func (r *Registry) IsSupported(chainID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byID[chainID]
	return ok
}

// All returns every registered network, ordered by chain id.
func (r *Registry) All() []Network {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Network, 0, len(r.byID))
	for _, n := range r.byID {
		out = append(out, n.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })

	return out
}

// Len returns the number of registered networks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
