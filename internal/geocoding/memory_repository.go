package geocoding

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory directory implementation for testing and
// seed-data deployments.
type InMemoryRepository struct {
	mu        sync.RWMutex
	locations []Location
}

// NewInMemoryRepository creates a directory seeded with the given locations.
func NewInMemoryRepository(locations []Location) *InMemoryRepository {
	return &InMemoryRepository{
		locations: append([]Location(nil), locations...),
	}
}

// SearchByName returns locations whose name or alias matches the query.
func (r *InMemoryRepository) SearchByName(ctx context.Context, query string) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Location
	for _, loc := range r.locations {
		if loc.Matches(query) {
			out = append(out, loc)
		}
	}
	return out, nil
}

// ByCategory returns all locations in a category.
func (r *InMemoryRepository) ByCategory(ctx context.Context, category Category) ([]Location, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Location
	for _, loc := range r.locations {
		if loc.Category == category {
			out = append(out, loc)
		}
	}
	return out, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
