package geocoding

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of the directory Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL directory repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SearchByName returns locations whose name or alias matches the query.
func (r *PostgresRepository) SearchByName(ctx context.Context, query string) ([]Location, error) {
	sql := `
		SELECT id, name, address, lat, lon, category, aliases
		FROM campus_locations
		WHERE name ILIKE '%' || $1 || '%'
		   OR EXISTS (
			SELECT 1 FROM unnest(aliases) AS alias
			WHERE alias ILIKE '%' || $1 || '%'
		   )
		ORDER BY name
	`
	return r.queryLocations(ctx, sql, query)
}

// ByCategory returns all locations in a category.
func (r *PostgresRepository) ByCategory(ctx context.Context, category Category) ([]Location, error) {
	sql := `
		SELECT id, name, address, lat, lon, category, aliases
		FROM campus_locations
		WHERE category = $1
		ORDER BY name
	`
	return r.queryLocations(ctx, sql, string(category))
}

func (r *PostgresRepository) queryLocations(ctx context.Context, sql string, arg any) ([]Location, error) {
	rows, err := r.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var (
			loc Location
			cat string
		)
		err := rows.Scan(
			&loc.ID,
			&loc.Name,
			&loc.Address,
			&loc.Coordinate.Lat,
			&loc.Coordinate.Lon,
			&cat,
			&loc.Aliases,
		)
		if err != nil {
			return nil, err
		}
		loc.Category = Category(cat)
		locations = append(locations, loc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return locations, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
