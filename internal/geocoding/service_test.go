package geocoding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/saferoute/saferoute/internal/featureflags"
	"github.com/saferoute/saferoute/pkg/geo"
)

var testOrigin = geo.Coordinate{Lat: 38.9448, Lon: -92.3268}

func testLocations() []Location {
	return []Location{
		{
			ID:         "lib-main",
			Name:       "Ellis Library",
			Address:    "520 S 9th St",
			Coordinate: geo.Coordinate{Lat: 38.9444, Lon: -92.3264},
			Category:   CategoryLibrary,
			Aliases:    []string{"main library"},
		},
		{
			ID:         "lib-eng",
			Name:       "Engineering Library",
			Coordinate: geo.Coordinate{Lat: 38.9466, Lon: -92.3299},
			Category:   CategoryLibrary,
		},
		{
			ID:         "dorm-north",
			Name:       "North Hall",
			Coordinate: geo.Coordinate{Lat: 38.9501, Lon: -92.3270},
			Category:   CategoryDorm,
		},
		{
			ID:         "rec-center",
			Name:       "Student Recreation Complex",
			Coordinate: geo.Coordinate{Lat: 38.9421, Lon: -92.3301},
			Category:   CategoryRecreation,
			Aliases:    []string{"rec center"},
		},
	}
}

// stubGeocoder returns a canned resolution or error.
type stubGeocoder struct {
	res   *Resolution
	err   error
	calls int
}

func (g *stubGeocoder) Name() string { return "stub" }

func (g *stubGeocoder) Geocode(ctx context.Context, query string) (*Resolution, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.res, nil
}

func newTestService(t *testing.T, geocoder Geocoder, flags *featureflags.Service) *Service {
	t.Helper()
	svc, err := NewService(ServiceConfig{
		Repository:   NewInMemoryRepository(testLocations()),
		Geocoder:     geocoder,
		FeatureFlags: flags,
		Logger:       zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestResolve_SingleDirectoryMatch(t *testing.T) {
	svc := newTestService(t, nil, nil)

	res, amb, err := svc.Resolve(context.Background(), "Ellis Library", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amb != nil {
		t.Fatalf("expected no ambiguity, got %+v", amb)
	}
	if res.Name != "Ellis Library" {
		t.Errorf("name = %q, want Ellis Library", res.Name)
	}
	if res.Source != SourceDirectory {
		t.Errorf("source = %q, want %q", res.Source, SourceDirectory)
	}
}

func TestResolve_AliasMatch(t *testing.T) {
	svc := newTestService(t, nil, nil)

	res, amb, err := svc.Resolve(context.Background(), "rec center", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amb != nil {
		t.Fatalf("expected no ambiguity, got %+v", amb)
	}
	if res.Name != "Student Recreation Complex" {
		t.Errorf("name = %q, want Student Recreation Complex", res.Name)
	}
}

func TestResolve_CategoryKeywordDisambiguates(t *testing.T) {
	svc := newTestService(t, nil, nil)

	res, amb, err := svc.Resolve(context.Background(), "the library", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected ambiguity, got resolution %+v", res)
	}
	if amb.Category != CategoryLibrary {
		t.Errorf("category = %q, want library", amb.Category)
	}
	if len(amb.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(amb.Options))
	}
	// Ellis is closer to the origin than the Engineering Library.
	if amb.Options[0].Name != "Ellis Library" {
		t.Errorf("first option = %q, want closest first", amb.Options[0].Name)
	}
	for _, opt := range amb.Options {
		if opt.DistanceMeters == nil {
			t.Errorf("option %q missing distance", opt.Name)
		}
	}
}

func TestResolve_CategoryWithSingleLocation(t *testing.T) {
	svc := newTestService(t, nil, nil)

	res, amb, err := svc.Resolve(context.Background(), "gym", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amb != nil {
		t.Fatalf("expected direct resolution for lone category member, got %+v", amb)
	}
	if res.Name != "Student Recreation Complex" {
		t.Errorf("name = %q, want Student Recreation Complex", res.Name)
	}
}

func TestResolve_MultipleNameMatches(t *testing.T) {
	svc := newTestService(t, nil, nil)

	// "library" is a category keyword; "brary" is not, but matches both
	// library names as a substring.
	res, amb, err := svc.Resolve(context.Background(), "brary", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected ambiguity, got resolution %+v", res)
	}
	if len(amb.Options) != 2 {
		t.Errorf("expected 2 options, got %d", len(amb.Options))
	}
}

func TestResolve_GeocoderFallback(t *testing.T) {
	geocoder := &stubGeocoder{
		res: &Resolution{
			Coordinate: geo.Coordinate{Lat: 38.9512, Lon: -92.3340},
			Name:       "Broadway Diner",
			Address:    "22 S 4th St",
			Source:     SourceGeocoder,
		},
	}
	svc := newTestService(t, geocoder, nil)

	res, amb, err := svc.Resolve(context.Background(), "Broadway Diner", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if amb != nil {
		t.Fatalf("expected no ambiguity, got %+v", amb)
	}
	if res.Source != SourceGeocoder {
		t.Errorf("source = %q, want %q", res.Source, SourceGeocoder)
	}
	if geocoder.calls != 1 {
		t.Errorf("geocoder calls = %d, want 1", geocoder.calls)
	}
}

func TestResolve_DirectoryWinsOverGeocoder(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("should not be called")}
	svc := newTestService(t, geocoder, nil)

	_, _, err := svc.Resolve(context.Background(), "North Hall", testOrigin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if geocoder.calls != 0 {
		t.Errorf("geocoder calls = %d, want 0", geocoder.calls)
	}
}

func TestResolve_FallbackDisabledByFlag(t *testing.T) {
	geocoder := &stubGeocoder{
		res: &Resolution{Name: "anywhere", Source: SourceGeocoder},
	}
	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepositoryWithFlags(map[string]*featureflags.Flag{
			featureflags.FlagDisableGeocodeFallback: {
				Key:       featureflags.FlagDisableGeocodeFallback,
				Value:     true,
				UpdatedAt: time.Now(),
			},
		}),
		Logger: zerolog.Nop(),
	})
	svc := newTestService(t, geocoder, flags)

	_, _, err := svc.Resolve(context.Background(), "Broadway Diner", testOrigin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if geocoder.calls != 0 {
		t.Errorf("geocoder calls = %d, want 0", geocoder.calls)
	}
}

func TestResolve_GeocoderUnavailable(t *testing.T) {
	geocoder := &stubGeocoder{err: errors.New("connection refused")}
	svc := newTestService(t, geocoder, nil)

	_, _, err := svc.Resolve(context.Background(), "Broadway Diner", testOrigin)
	if !errors.Is(err, ErrGeocoderUnavailable) {
		t.Fatalf("expected ErrGeocoderUnavailable, got %v", err)
	}
}

func TestResolve_GeocoderNotFound(t *testing.T) {
	geocoder := &stubGeocoder{err: ErrNotFound}
	svc := newTestService(t, geocoder, nil)

	_, _, err := svc.Resolve(context.Background(), "nowhere at all", testOrigin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_NoGeocoderConfigured(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, _, err := svc.Resolve(context.Background(), "Broadway Diner", testOrigin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_EmptyQuery(t *testing.T) {
	svc := newTestService(t, nil, nil)

	_, _, err := svc.Resolve(context.Background(), "   ", testOrigin)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		query string
		cat   Category
		ok    bool
	}{
		{"library", CategoryLibrary, true},
		{"the library", CategoryLibrary, true},
		{"  Dorms  ", CategoryDorm, true},
		{"gym", CategoryRecreation, true},
		{"parking", CategoryParking, true},
		{"Ellis Library", "", false},
		{"a quiet place", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		cat, ok := DetectCategory(tt.query)
		if ok != tt.ok || cat != tt.cat {
			t.Errorf("DetectCategory(%q) = (%q, %v), want (%q, %v)", tt.query, cat, ok, tt.cat, tt.ok)
		}
	}
}

func TestNewService_RequiresRepository(t *testing.T) {
	_, err := NewService(ServiceConfig{Logger: zerolog.Nop()})
	if err == nil {
		t.Fatal("expected error for missing repository")
	}
}
