package feeds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saferoute/saferoute/internal/safety"
	"github.com/saferoute/saferoute/pkg/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feeds repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// IncidentsWithin returns incidents inside bounds that occurred at or after since.
func (r *PostgresRepository) IncidentsWithin(ctx context.Context, bounds geo.Bounds, since time.Time) ([]safety.Incident, error) {
	query := `
		SELECT id, type, lat, lon, occurred_at, description, severity
		FROM incidents
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
		  AND occurred_at >= $5
		ORDER BY occurred_at DESC
	`

	rows, err := r.pool.Query(ctx, query, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incidents []safety.Incident
	for rows.Next() {
		var (
			inc     safety.Incident
			rawType string
			rawSev  string
		)
		err := rows.Scan(
			&inc.ID,
			&rawType,
			&inc.Location.Lat,
			&inc.Location.Lon,
			&inc.OccurredAt,
			&inc.Description,
			&rawSev,
		)
		if err != nil {
			return nil, err
		}
		inc.Type = safety.NormalizeIncidentType(rawType)
		inc.Severity = safety.Severity(rawSev)
		incidents = append(incidents, inc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return incidents, nil
}

// EmergencyPhonesWithin returns emergency phones inside bounds.
func (r *PostgresRepository) EmergencyPhonesWithin(ctx context.Context, bounds geo.Bounds) ([]safety.EmergencyPhone, error) {
	query := `
		SELECT id, name, lat, lon
		FROM emergency_phones
		WHERE lat BETWEEN $1 AND $2
		  AND lon BETWEEN $3 AND $4
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var phones []safety.EmergencyPhone
	for rows.Next() {
		var p safety.EmergencyPhone
		err := rows.Scan(&p.ID, &p.Name, &p.Location.Lat, &p.Location.Lon)
		if err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return phones, nil
}

// PoorLightingZonesWithin returns poorly lit zones intersecting bounds.
func (r *PostgresRepository) PoorLightingZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error) {
	return r.zonesWithin(ctx, "lighting_zones", bounds)
}

// LowPatrolZonesWithin returns low-patrol zones intersecting bounds.
func (r *PostgresRepository) LowPatrolZonesWithin(ctx context.Context, bounds geo.Bounds) ([]Zone, error) {
	return r.zonesWithin(ctx, "patrol_zones", bounds)
}

// zonesWithin loads named polygons whose bounding box intersects bounds.
// Rings are stored as JSON arrays of [lat, lon] pairs alongside precomputed
// min/max columns.
func (r *PostgresRepository) zonesWithin(ctx context.Context, table string, bounds geo.Bounds) ([]Zone, error) {
	query := `
		SELECT id, name, ring
		FROM ` + table + `
		WHERE max_lat >= $1 AND min_lat <= $2
		  AND max_lon >= $3 AND min_lon <= $4
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, bounds.MinLat, bounds.MaxLat, bounds.MinLon, bounds.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		var (
			zone    Zone
			ringRaw []byte
		)
		if err := rows.Scan(&zone.ID, &zone.Name, &ringRaw); err != nil {
			return nil, err
		}

		var pairs [][]float64
		if err := json.Unmarshal(ringRaw, &pairs); err != nil {
			return nil, err
		}
		zone.Ring = make([]geo.Coordinate, 0, len(pairs))
		for _, pair := range pairs {
			if len(pair) < 2 {
				continue
			}
			zone.Ring = append(zone.Ring, geo.Coordinate{Lat: pair[0], Lon: pair[1]})
		}

		zones = append(zones, zone)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return zones, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
