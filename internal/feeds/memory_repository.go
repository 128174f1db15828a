package feeds

import (
	"context"
	"sync"
	"time"

	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

// InMemoryRepository is an in-memory implementation of Repository for testing
// and local development.
type InMemoryRepository struct {
	mu        sync.RWMutex
	incidents []safety.Incident
	phones    []safety.EmergencyPhone
	lighting  []Zone
	patrol    []Zone
}

// NewInMemoryRepository creates a new empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// SetIncidents replaces the incident layer.
func (r *InMemoryRepository) SetIncidents(incidents []safety.Incident) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents = append([]safety.Incident(nil), incidents...)
}

// SetPhones replaces the emergency phone layer.
func (r *InMemoryRepository) SetPhones(phones []safety.EmergencyPhone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phones = append([]safety.EmergencyPhone(nil), phones...)
}

// SetLightingZones replaces the poor-lighting layer.
func (r *InMemoryRepository) SetLightingZones(zones []Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lighting = append([]Zone(nil), zones...)
}

// SetPatrolZones replaces the low-patrol layer.
func (r *InMemoryRepository) SetPatrolZones(zones []Zone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patrol = append([]Zone(nil), zones...)
}

// IncidentsWithin returns incidents inside bounds that occurred at or after since.
func (r *InMemoryRepository) IncidentsWithin(ctx context.Context, bounds geo.Bounds, since time.Time) ([]safety.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []safety.Incident
	for _, inc := range r.incidents {
		if bounds.Contains(inc.Location) && !inc.OccurredAt.Before(since) {
			out = append(out, inc)
		}
	}
	return out, nil
}

// EmergencyPhonesWithin returns emergency phones inside bounds.
func (r *InMemoryRepository) EmergencyPhonesWithin(ctx context.Context, bounds geo.Bounds) ([]safety.EmergencyPhone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []safety.EmergencyPhone
	for _, p := range r.phones {
		if bounds.Contains(p.Location) {
			out = append(out, p)
		}
	}
	return out, nil
}

// PoorLightingZonesWithin returns poorly lit zones intersecting bounds.
func (r *InMemoryRepository) PoorLightingZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return zonesIntersecting(r.lighting, bounds), nil
}

// LowPatrolZonesWithin returns low-patrol zones intersecting bounds.
func (r *InMemoryRepository) LowPatrolZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return zonesIntersecting(r.patrol, bounds), nil
}

func zonesIntersecting(zones []Zone, bounds geo.Bounds) []Zone {
	var out []Zone
	for _, z := range zones {
		for _, v := range z.Ring {
			if bounds.Contains(v) {
				out = append(out, z)
				break
			}
		}
	}
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
