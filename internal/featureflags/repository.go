package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound is returned when a flag key has no stored value.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores feature flags. The Postgres implementation backs the
// admin API; the in-memory one backs tests.
type Repository interface {
	// GetFlag returns the flag stored under key, or ErrFlagNotFound.
	GetFlag(ctx context.Context, key string) (*Flag, error)

	// GetAllFlags returns every stored flag keyed by flag key.
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	// SetFlag creates or updates one flag.
	SetFlag(ctx context.Context, flag *Flag) error

	// SetFlags creates or updates several flags in one operation.
	SetFlags(ctx context.Context, flags []*Flag) error

	// DeleteFlag removes the flag stored under key, or returns
	// ErrFlagNotFound if nothing is stored there.
	DeleteFlag(ctx context.Context, key string) error
}
