// Package feeds loads and caches the campus safety reference layers:
// incident reports, emergency phones, lighting zones, and patrol zones.
package feeds

import (
	"errors"

	"github.com/saferoute/saferoute/pkg/geo"
)

// Sentinel errors for feed operations.
var (
	// ErrFeedUnavailable indicates the backing store could not serve a layer.
	ErrFeedUnavailable = errors.New("safety feed unavailable")
)

// Layer names, used in degradation reporting and cache warnings.
const (
	LayerIncidents = "incidents"
	LayerPhones    = "emergency_phones"
	LayerLighting  = "lighting"
	LayerPatrol    = "patrol"
)

// Zone is a named polygon from a reference layer. Ring is the outer boundary;
// the first and last vertices need not repeat.
type Zone struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Ring []geo.Coordinate `json:"ring"`
}
