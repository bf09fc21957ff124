package quiz

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StoreFactory builds a Store for one browser client, typically binding a
// durable cache scoped to that client id.
type StoreFactory func(clientID string) *Store

// Registry keeps one live Store per browser client so that in-flight
// de-duplication works across concurrent requests from the same client.
// Stores are created lazily and initialized exactly once.
type Registry struct {
	factory StoreFactory
	log     *zap.Logger

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	once       sync.Once
	store      *Store
	lastAccess time.Time
}

func NewRegistry(factory StoreFactory, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		factory: factory,
		log:     log,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the store for clientID, creating and initializing it on first
// access. A failed question fetch during init is recorded on the store and
// retried later; it does not prevent handing out the store.
func (r *Registry) Get(ctx context.Context, clientID string) *Store {
	r.mu.Lock()
	e, ok := r.entries[clientID]
	if !ok {
		e = &registryEntry{}
		r.entries[clientID] = e
	}
	e.lastAccess = time.Now()
	r.mu.Unlock()

	e.once.Do(func() {
		e.store = r.factory(clientID)
		if err := e.store.Init(ctx); err != nil {
			r.log.Warn("quiz store initialized without questions",
				zap.String("client_id", clientID), zap.Error(err))
		}
	})
	return e.store
}

// PruneIdle drops stores that have not been touched within maxIdle. The
// durable cache keeps their state; a returning client rebuilds its store from
// it on the next request.
func (r *Registry) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	pruned := 0
	for id, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, id)
			pruned++
		}
	}
	return pruned
}

// Len reports the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
