// Package worker provides background job processing for SafeRoute.
package worker

import (
	"time"

	"github.com/saferoute/saferoute/pkg/geo"
)

// RefreshSector represents a campus area whose feed snapshot is kept warm.
type RefreshSector struct {
	// Name is the human-readable name of the sector.
	Name string

	// Bounds is the geographic box the snapshot covers.
	Bounds geo.Bounds

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the feed refresh job.
type RefreshConfig struct {
	// Sectors are the campus areas to refresh.
	// If empty, uses DefaultRefreshSectors.
	Sectors []RefreshSector

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Sectors:     DefaultRefreshSectors(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultRefreshSectors returns the default refresh sectors for the campus.
// The boxes follow the service's snapshot cache grid so a warmed sector is a
// cache hit for request traffic in the same area.
func DefaultRefreshSectors() []RefreshSector {
	return []RefreshSector{
		{
			Name:     "central-quad",
			Priority: 1,
			Bounds: geo.Bounds{
				MinLat: 38.9400,
				MinLon: -92.3320,
				MaxLat: 38.9480,
				MaxLon: -92.3230,
			},
		},
		{
			Name:     "north-residential",
			Priority: 1,
			Bounds: geo.Bounds{
				MinLat: 38.9470,
				MinLon: -92.3330,
				MaxLat: 38.9540,
				MaxLon: -92.3240,
			},
		},
		{
			Name:     "east-campus",
			Priority: 2,
			Bounds: geo.Bounds{
				MinLat: 38.9390,
				MinLon: -92.3240,
				MaxLat: 38.9470,
				MaxLon: -92.3150,
			},
		},
		{
			Name:     "recreation-south",
			Priority: 2,
			Bounds: geo.Bounds{
				MinLat: 38.9330,
				MinLon: -92.3330,
				MaxLat: 38.9410,
				MaxLon: -92.3240,
			},
		},
		{
			Name:     "stadium-west",
			Priority: 3,
			Bounds: geo.Bounds{
				MinLat: 38.9340,
				MinLon: -92.3420,
				MaxLat: 38.9420,
				MaxLon: -92.3320,
			},
		},
		{
			Name:     "downtown-corridor",
			Priority: 3,
			Bounds: geo.Bounds{
				MinLat: 38.9470,
				MinLon: -92.3310,
				MaxLat: 38.9530,
				MaxLon: -92.3200,
			},
		},
	}
}

// AllSectors returns all configured sectors.
func (c RefreshConfig) AllSectors() []RefreshSector {
	return c.Sectors
}

// TotalSectors returns the number of sectors to refresh.
func (c RefreshConfig) TotalSectors() int {
	return len(c.Sectors)
}
