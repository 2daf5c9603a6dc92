// Package repository persists itineraries for the store registry.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/infra/logging"
)

const keyPrefix = "itinerary:"

// StorageRepository keeps itineraries as JSON values in a fiber.Storage
// (memory or redis). Values never expire.
type StorageRepository struct {
	storage fiber.Storage
}

// NewStorageRepository wraps storage.
func NewStorageRepository(storage fiber.Storage) *StorageRepository {
	return &StorageRepository{storage: storage}
}

// NewMemory returns a process-local repository.
func NewMemory() *StorageRepository {
	return NewStorageRepository(memoryStorage.New())
}

// NewRedis returns a repository on the given redis database. The redis
// storage constructor panics when the server is unreachable; in that case
// the memory storage is used instead.
func NewRedis(addr string, db int) (repo *StorageRepository) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis itinerary store init panicked, falling back to memory", "panic", r)
			repo = NewMemory()
		}
	}()
	s := redisStorage.New(redisStorage.Config{
		Addrs:    []string{addr},
		Database: db,
	})
	logging.Info("Using Redis for itineraries", "addr", addr, "db", db)
	return NewStorageRepository(s)
}

// Load returns the itinerary stored under id.
func (r *StorageRepository) Load(_ context.Context, id string) (domain.Itinerary, error) {
	raw, err := r.storage.Get(keyPrefix + id)
	if err != nil {
		return domain.Itinerary{}, fmt.Errorf("read itinerary %s: %w", id, err)
	}
	if raw == nil {
		return domain.Itinerary{}, domain.ErrItineraryNotFound
	}
	var it domain.Itinerary
	if err := json.Unmarshal(raw, &it); err != nil {
		return domain.Itinerary{}, fmt.Errorf("decode itinerary %s: %w", id, err)
	}
	return it, nil
}

// Save writes it under its id.
func (r *StorageRepository) Save(_ context.Context, it domain.Itinerary) error {
	raw, err := json.Marshal(it)
	if err != nil {
		return fmt.Errorf("encode itinerary %s: %w", it.ID, err)
	}
	return r.storage.Set(keyPrefix+it.ID, raw, 0)
}

// Delete removes id. Deleting an unknown id is not an error.
func (r *StorageRepository) Delete(_ context.Context, id string) error {
	return r.storage.Delete(keyPrefix + id)
}

// Close releases the underlying storage.
func (r *StorageRepository) Close() error {
	return r.storage.Close()
}
