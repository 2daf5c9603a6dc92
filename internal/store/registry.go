package store

import (
	"context"
	"fmt"
	"sync"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/infra/logging"
)

// Repository persists itineraries. Load returns domain.ErrItineraryNotFound
// for unknown ids.
type Repository interface {
	Load(ctx context.Context, id string) (domain.Itinerary, error)
	Save(ctx context.Context, it domain.Itinerary) error
	Delete(ctx context.Context, id string) error
}

// Registry caches one Store per itinerary and writes every mutation through
// to the repository.
type Registry struct {
	repo Repository

	mu     sync.Mutex
	stores map[string]*entry
}

type entry struct {
	store *Store
	// serializes mutate+save so saves land in mutation order
	writeMu sync.Mutex
}

// NewRegistry returns a registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, stores: make(map[string]*entry)}
}

// Create persists a new empty itinerary.
func (r *Registry) Create(ctx context.Context) (*Store, error) {
	s := New(newID())
	if err := s.update(func(*domain.Itinerary) error { return nil }); err != nil {
		return nil, err
	}
	if err := r.repo.Save(ctx, s.Itinerary()); err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}
	r.mu.Lock()
	r.stores[s.ID()] = &entry{store: s}
	r.mu.Unlock()
	logging.Info("Itinerary created", "itinerary_id", s.ID())
	return s, nil
}

// Get returns the store for id, loading it from the repository on first use.
func (r *Registry) Get(ctx context.Context, id string) (*Store, error) {
	e, err := r.entry(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.store, nil
}

func (r *Registry) entry(ctx context.Context, id string) (*entry, error) {
	r.mu.Lock()
	e, ok := r.stores[id]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	it, err := r.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.stores[id]; ok {
		return e, nil
	}
	e = &entry{store: FromItinerary(it)}
	r.stores[id] = e
	return e, nil
}

// Mutate runs fn against the store for id and saves the result. When fn
// fails nothing is saved.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(*Store) error) (domain.Itinerary, error) {
	e, err := r.entry(ctx, id)
	if err != nil {
		return domain.Itinerary{}, err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := fn(e.store); err != nil {
		return domain.Itinerary{}, err
	}
	it := e.store.Itinerary()
	if err := r.repo.Save(ctx, it); err != nil {
		// drop the cached copy so the next read reloads what was persisted
		r.evict(id)
		return domain.Itinerary{}, fmt.Errorf("save itinerary: %w", err)
	}
	return it, nil
}

// Delete removes the itinerary from the cache and the repository.
func (r *Registry) Delete(ctx context.Context, id string) error {
	if _, err := r.entry(ctx, id); err != nil {
		return err
	}
	r.evict(id)
	if err := r.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete itinerary: %w", err)
	}
	logging.Info("Itinerary deleted", "itinerary_id", id)
	return nil
}

func (r *Registry) evict(id string) {
	r.mu.Lock()
	delete(r.stores, id)
	r.mu.Unlock()
}
