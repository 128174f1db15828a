package feeds

import (
	"context"
	"time"

	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

// Repository loads safety reference layers for a bounding box.
type Repository interface {
	// IncidentsWithin returns incidents inside bounds that occurred at or
	// after since.
	IncidentsWithin(ctx context.Context, bounds geo.Bounds, since time.Time) ([]safety.Incident, error)

	// EmergencyPhonesWithin returns emergency phones inside bounds.
	EmergencyPhonesWithin(ctx context.Context, bounds geo.Bounds) ([]safety.EmergencyPhone, error)

	// PoorLightingZonesWithin returns poorly lit zones intersecting bounds.
	PoorLightingZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error)

	// LowPatrolZonesWithin returns low-patrol zones intersecting bounds.
	LowPatrolZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error)
}
