// Package geo provides great-circle geometry primitives for route analysis:
// haversine distances, polyline lengths, radius filters, and evenly spaced
// sampling along a path.
package geo

import (
	"errors"
	"math"
)

// ErrInvalidGeometry indicates a degenerate polyline (too few points or all
// points coincident).
var ErrInvalidGeometry = errors.New("invalid geometry")

const earthRadiusMeters = 6371000

// metersPerDegreeLat is the approximate north-south span of one degree of
// latitude, used for converting radii to degree deltas.
const metersPerDegreeLat = 111320.0

// Coordinate represents a geographic point.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether the coordinate is within the WGS84 range.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistanceMeters returns the haversine distance between two coordinates in meters.
func DistanceMeters(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// Bearing returns the initial bearing from a to b in degrees [0, 360).
func Bearing(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// PathLength returns the total length of a polyline in meters as the sum of
// consecutive haversine distances. Returns ErrInvalidGeometry for fewer than
// two points.
func PathLength(points []Coordinate) (float64, error) {
	if len(points) < 2 {
		return 0, ErrInvalidGeometry
	}

	var total float64
	for i := 1; i < len(points); i++ {
		total += DistanceMeters(points[i-1], points[i])
	}
	return total, nil
}

// PointsWithinRadius returns the subset of points within radiusMeters of center.
func PointsWithinRadius(center Coordinate, radiusMeters float64, points []Coordinate) []Coordinate {
	var within []Coordinate
	for _, p := range points {
		if DistanceMeters(center, p) <= radiusMeters {
			within = append(within, p)
		}
	}
	return within
}

// SampleAlong returns coordinates spaced approximately intervalMeters apart
// along the polyline, always including the first and last points. Returns
// ErrInvalidGeometry if the input is empty or all points are coincident.
func SampleAlong(points []Coordinate, intervalMeters float64) ([]Coordinate, error) {
	if len(points) == 0 {
		return nil, ErrInvalidGeometry
	}
	if len(points) == 1 {
		return nil, ErrInvalidGeometry
	}

	total, err := PathLength(points)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		// All points coincide; there is no path to sample.
		return nil, ErrInvalidGeometry
	}

	if intervalMeters <= 0 {
		out := make([]Coordinate, len(points))
		copy(out, points)
		return out, nil
	}

	sampled := []Coordinate{points[0]}
	accumulated := 0.0

	for i := 1; i < len(points); i++ {
		segmentDist := DistanceMeters(points[i-1], points[i])
		if segmentDist == 0 {
			continue
		}

		// consumed tracks how far along this segment samples have been
		// placed, so interpolation stays anchored to the segment start.
		consumed := 0.0
		for accumulated+(segmentDist-consumed) >= intervalMeters {
			consumed += intervalMeters - accumulated
			accumulated = 0

			fraction := consumed / segmentDist
			sampled = append(sampled, Coordinate{
				Lat: points[i-1].Lat + fraction*(points[i].Lat-points[i-1].Lat),
				Lon: points[i-1].Lon + fraction*(points[i].Lon-points[i-1].Lon),
			})
		}

		accumulated += segmentDist - consumed
	}

	last := points[len(points)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled, nil
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// BoundsOf returns the bounding box of a set of points.
// Returns ErrInvalidGeometry for an empty set.
func BoundsOf(points []Coordinate) (Bounds, error) {
	if len(points) == 0 {
		return Bounds{}, ErrInvalidGeometry
	}

	b := Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, nil
}

// Union returns the smallest bounds containing both a and b.
func (b Bounds) Union(other Bounds) Bounds {
	return Bounds{
		MinLat: math.Min(b.MinLat, other.MinLat),
		MinLon: math.Min(b.MinLon, other.MinLon),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
	}
}

// Expand grows the bounds by approximately meters on every side.
func (b Bounds) Expand(meters float64) Bounds {
	dLat := meters / metersPerDegreeLat

	// Longitude degrees shrink with latitude; use the widest absolute
	// latitude in the box so the expansion never undershoots.
	lat := math.Max(math.Abs(b.MinLat), math.Abs(b.MaxLat))
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	dLon := meters / (metersPerDegreeLat * cosLat)

	return Bounds{
		MinLat: b.MinLat - dLat,
		MinLon: b.MinLon - dLon,
		MaxLat: b.MaxLat + dLat,
		MaxLon: b.MaxLon + dLon,
	}
}

// Contains reports whether the point lies within the bounds.
func (b Bounds) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat &&
		c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}

// coversEpsilon absorbs floating-point noise from grid-snapping arithmetic.
// 1e-9 degrees is about 0.1 millimeters.
const coversEpsilon = 1e-9

// Covers reports whether other lies entirely within the bounds, within
// coversEpsilon on each edge.
func (b Bounds) Covers(other Bounds) bool {
	return other.MinLat >= b.MinLat-coversEpsilon && other.MaxLat <= b.MaxLat+coversEpsilon &&
		other.MinLon >= b.MinLon-coversEpsilon && other.MaxLon <= b.MaxLon+coversEpsilon
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Coordinate {
	return Coordinate{
		Lat: (b.MinLat + b.MaxLat) / 2,
		Lon: (b.MinLon + b.MaxLon) / 2,
	}
}
