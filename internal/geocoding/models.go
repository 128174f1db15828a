// Package geocoding resolves free-text destinations to coordinates using a
// campus location directory with an external geocoder fallback.
package geocoding

import (
	"context"
	"errors"
	"strings"

	"github.com/saferoute/saferoute/pkg/geo"
)

// Sentinel errors for geocoding operations.
var (
	// ErrNotFound indicates no location matched the query.
	ErrNotFound = errors.New("location not found")
	// ErrGeocoderUnavailable indicates the external geocoder failed.
	ErrGeocoderUnavailable = errors.New("geocoder unavailable")
)

// Category classifies a campus location.
type Category string

const (
	CategoryDorm       Category = "dorm"
	CategoryLibrary    Category = "library"
	CategoryDining     Category = "dining"
	CategoryAcademic   Category = "academic"
	CategoryRecreation Category = "recreation"
	CategoryParking    Category = "parking"
)

// categoryKeywords maps query words to the category they imply. A query that
// is only a category keyword triggers disambiguation instead of a lookup.
var categoryKeywords = map[string]Category{
	"dorm":       CategoryDorm,
	"dorms":      CategoryDorm,
	"residence":  CategoryDorm,
	"hall":       CategoryDorm,
	"library":    CategoryLibrary,
	"libraries":  CategoryLibrary,
	"dining":     CategoryDining,
	"food":       CategoryDining,
	"cafeteria":  CategoryDining,
	"academic":   CategoryAcademic,
	"building":   CategoryAcademic,
	"classroom":  CategoryAcademic,
	"gym":        CategoryRecreation,
	"recreation": CategoryRecreation,
	"rec":        CategoryRecreation,
	"parking":    CategoryParking,
	"garage":     CategoryParking,
	"lot":        CategoryParking,
}

// DetectCategory reports the category a bare keyword query refers to.
// Returns false when the query names something more specific.
func DetectCategory(query string) (Category, bool) {
	normalized := strings.ToLower(strings.TrimSpace(query))
	words := strings.Fields(normalized)

	// Single keyword, optionally preceded by an article.
	if len(words) >= 1 && (words[0] == "the" || words[0] == "a" || words[0] == "an") {
		words = words[1:]
	}
	if len(words) != 1 {
		return "", false
	}

	cat, ok := categoryKeywords[words[0]]
	return cat, ok
}

// Location is one entry in the campus directory.
type Location struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Address    string         `json:"address,omitempty"`
	Coordinate geo.Coordinate `json:"coordinate"`
	Category   Category       `json:"category"`
	Aliases    []string       `json:"aliases,omitempty"`
}

// Matches reports whether the query matches the location name or an alias.
func (l *Location) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(l.Name), q) {
		return true
	}
	for _, alias := range l.Aliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return true
		}
	}
	return false
}

// Resolution is a successfully resolved destination.
type Resolution struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Name       string         `json:"name"`
	Address    string         `json:"address,omitempty"`
	Source     string         `json:"source"`
}

// Resolution sources.
const (
	SourceDirectory = "directory"
	SourceGeocoder  = "geocoder"
)

// Option is one candidate offered to the user during disambiguation.
type Option struct {
	Name           string         `json:"name"`
	Address        string         `json:"address,omitempty"`
	Coordinate     geo.Coordinate `json:"coordinates"`
	DistanceMeters *float64       `json:"distance_meters,omitempty"`
	Category       Category       `json:"category,omitempty"`
}

// Ambiguity asks the user to choose among candidate locations. It is an
// outcome, not an error.
type Ambiguity struct {
	Category Category `json:"category,omitempty"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// Repository stores the campus location directory.
type Repository interface {
	// SearchByName returns locations whose name or alias matches the query.
	SearchByName(ctx context.Context, query string) ([]Location, error)

	// ByCategory returns all locations in a category.
	ByCategory(ctx context.Context, category Category) ([]Location, error)
}
