package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps flags in a map. Used by tests and local runs
// without a database.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{flags: make(map[string]*Flag)}
}

// NewInMemoryRepositoryWithFlags creates an in-memory repository seeded with
// the given flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	repo := NewInMemoryRepository()
	for k, v := range flags {
		repo.flags[k] = v
	}
	return repo
}

func (r *InMemoryRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return flag, nil
}

func (r *InMemoryRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Flag, len(r.flags))
	for k, v := range r.flags {
		result[k] = v
	}
	return result, nil
}

func (r *InMemoryRepository) SetFlag(ctx context.Context, flag *Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag.UpdatedAt = time.Now()
	r.flags[flag.Key] = flag
	return nil
}

func (r *InMemoryRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
		r.flags[flag.Key] = flag
	}
	return nil
}

func (r *InMemoryRepository) DeleteFlag(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
