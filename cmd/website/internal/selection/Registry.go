package selection

import (
	"sync"
	"time"
)

type RegistryConfig struct {
	IdleTimeout time.Duration
	Now         func() time.Time
}

type registryEntry struct {
	state   *State
	touched time.Time
}

/*
Registry holds selection state on the server, keyed by the session id the
browser carries in its cookie. Callers always get a copy, so a request only
changes the stored state through Store.
*/
type Registry struct {
	mu          sync.Mutex
	entries     map[string]registryEntry
	idleTimeout time.Duration
	now         func() time.Time
}

func NewRegistry(config RegistryConfig) *Registry {
	now := config.Now

	if now == nil {
		now = time.Now
	}

	idleTimeout := config.IdleTimeout

	if idleTimeout <= 0 {
		idleTimeout = 24 * time.Hour
	}

	return &Registry{
		entries:     map[string]registryEntry{},
		idleTimeout: idleTimeout,
		now:         now,
	}
}

/*
Load returns the state for id, or a fresh normal-mode state when the id is
unknown or has gone idle.
*/
func (r *Registry) Load(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]

	if !ok || r.expired(entry) {
		return New()
	}

	return entry.state.Clone()
}

func (r *Registry) Store(id string, state *State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictIdle()

	r.entries[id] = registryEntry{
		state:   state.Clone(),
		touched: r.now(),
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

func (r *Registry) expired(entry registryEntry) bool {
	return r.now().Sub(entry.touched) > r.idleTimeout
}

func (r *Registry) evictIdle() {
	for id, entry := range r.entries {
		if r.expired(entry) {
			delete(r.entries, id)
		}
	}
}
