package feeds

import (
	"time"

	"github.com/dhconnelly/rtreego"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/saferoute/saferoute/internal/safety"
	geopkg "github.com/saferoute/saferoute/pkg/geo"
)

// R-tree construction parameters.
const (
	rtreeDimensions  = 2
	rtreeMinChildren = 25
	rtreeMaxChildren = 50
	rtreeTolerance   = 0.0001
)

// incidentItem wraps an incident for R-tree indexing.
type incidentItem struct {
	incident safety.Incident
	rect     *rtreego.Rect
}

func (it *incidentItem) Bounds() *rtreego.Rect { return it.rect }

// phoneItem wraps an emergency phone for R-tree indexing.
type phoneItem struct {
	phone safety.EmergencyPhone
	rect  *rtreego.Rect
}

func (it *phoneItem) Bounds() *rtreego.Rect { return it.rect }

// ZoneLayer answers point-in-zone queries for one reference layer. It
// implements safety.ZoneIndex.
type ZoneLayer struct {
	zones []Zone
	rings [][]float64
}

// NewZoneLayer builds a layer from named polygons. Zones with fewer than
// three vertices are dropped.
func NewZoneLayer(zones []Zone) *ZoneLayer {
	layer := &ZoneLayer{}
	for _, z := range zones {
		if len(z.Ring) < 3 {
			continue
		}
		// Flat [x, y] pairs in lon/lat order, closed.
		ring := make([]float64, 0, (len(z.Ring)+1)*2)
		for _, v := range z.Ring {
			ring = append(ring, v.Lon, v.Lat)
		}
		if z.Ring[0] != z.Ring[len(z.Ring)-1] {
			ring = append(ring, z.Ring[0].Lon, z.Ring[0].Lat)
		}
		layer.zones = append(layer.zones, z)
		layer.rings = append(layer.rings, ring)
	}
	return layer
}

// Contains reports whether the point falls inside any zone of the layer.
func (l *ZoneLayer) Contains(c geopkg.Coordinate) bool {
	p := geom.Coord{c.Lon, c.Lat}
	for _, ring := range l.rings {
		if xy.IsPointInRing(geom.XY, p, ring) {
			return true
		}
	}
	return false
}

// ZoneCount returns the number of usable zones in the layer.
func (l *ZoneLayer) ZoneCount() int {
	return len(l.zones)
}

// Snapshot is an immutable view of all reference layers for one area.
// Point layers carry R-tree indices for area queries; zone layers answer
// containment. Degraded lists the layers that could not be loaded.
type Snapshot struct {
	Bounds    geopkg.Bounds
	FetchedAt time.Time
	Degraded  []string

	incidents     []safety.Incident
	phones        []safety.EmergencyPhone
	incidentIndex *rtreego.Rtree
	phoneIndex    *rtreego.Rtree
	lighting      *ZoneLayer
	patrol        *ZoneLayer
}

// NewSnapshot indexes the given layers. A nil zone slice marks that layer as
// degraded; an empty non-nil slice is a healthy layer with no zones.
func NewSnapshot(bounds geopkg.Bounds, incidents []safety.Incident, phones []safety.EmergencyPhone, lighting, patrol []Zone, degraded []string) *Snapshot {
	s := &Snapshot{
		Bounds:    bounds,
		FetchedAt: time.Now(),
		Degraded:  degraded,
		incidents: incidents,
		phones:    phones,
	}

	s.incidentIndex = rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren)
	for _, inc := range incidents {
		p := rtreego.Point{inc.Location.Lat, inc.Location.Lon}
		s.incidentIndex.Insert(&incidentItem{incident: inc, rect: p.ToRect(rtreeTolerance)})
	}

	s.phoneIndex = rtreego.NewTree(rtreeDimensions, rtreeMinChildren, rtreeMaxChildren)
	for _, ph := range phones {
		p := rtreego.Point{ph.Location.Lat, ph.Location.Lon}
		s.phoneIndex.Insert(&phoneItem{phone: ph, rect: p.ToRect(rtreeTolerance)})
	}

	if lighting != nil {
		s.lighting = NewZoneLayer(lighting)
	}
	if patrol != nil {
		s.patrol = NewZoneLayer(patrol)
	}

	return s
}

// IncidentsNear returns incidents within radiusMeters of any point on the
// path. The R-tree prunes candidates to the path's widened bounding box;
// exact haversine filtering happens at scoring time.
func (s *Snapshot) IncidentsNear(path []geopkg.Coordinate, radiusMeters float64) []safety.Incident {
	rect := searchRect(path, radiusMeters)
	if rect == nil {
		return nil
	}

	results := s.incidentIndex.SearchIntersect(rect)
	incidents := make([]safety.Incident, 0, len(results))
	for _, result := range results {
		item, ok := result.(*incidentItem)
		if !ok {
			continue
		}
		incidents = append(incidents, item.incident)
	}
	return incidents
}

// PhonesNear returns emergency phones within radiusMeters of any point on
// the path, pruned the same way as IncidentsNear.
func (s *Snapshot) PhonesNear(path []geopkg.Coordinate, radiusMeters float64) []safety.EmergencyPhone {
	rect := searchRect(path, radiusMeters)
	if rect == nil {
		return nil
	}

	results := s.phoneIndex.SearchIntersect(rect)
	phones := make([]safety.EmergencyPhone, 0, len(results))
	for _, result := range results {
		item, ok := result.(*phoneItem)
		if !ok {
			continue
		}
		phones = append(phones, item.phone)
	}
	return phones
}

// AllIncidents returns every incident in the snapshot.
func (s *Snapshot) AllIncidents() []safety.Incident {
	return s.incidents
}

// AllPhones returns every emergency phone in the snapshot.
func (s *Snapshot) AllPhones() []safety.EmergencyPhone {
	return s.phones
}

// Lighting returns the poor-lighting layer, or nil if it is degraded.
func (s *Snapshot) Lighting() *ZoneLayer {
	return s.lighting
}

// Patrol returns the low-patrol layer, or nil if it is degraded.
func (s *Snapshot) Patrol() *ZoneLayer {
	return s.patrol
}

// Environment assembles the scoring snapshot for a path. Nil zone layers
// stay nil so the scorer can report degradation.
func (s *Snapshot) Environment(path []geopkg.Coordinate, incidentRadiusMeters, phoneRadiusMeters float64) safety.Environment {
	env := safety.Environment{
		Incidents: s.IncidentsNear(path, incidentRadiusMeters),
		Phones:    s.PhonesNear(path, phoneRadiusMeters),
	}
	if s.lighting != nil {
		env.PoorLighting = s.lighting
	}
	if s.patrol != nil {
		env.LowPatrol = s.patrol
	}
	return env
}

// searchRect widens the path's bounding box by radiusMeters and converts it
// to an R-tree rectangle in (lat, lon) degree space.
func searchRect(path []geopkg.Coordinate, radiusMeters float64) *rtreego.Rect {
	if len(path) == 0 {
		return nil
	}

	bounds, err := geopkg.BoundsOf(path)
	if err != nil {
		return nil
	}
	bounds = bounds.Expand(radiusMeters)
	lengths := []float64{
		bounds.MaxLat - bounds.MinLat,
		bounds.MaxLon - bounds.MinLon,
	}

	rect, err := rtreego.NewRect(rtreego.Point{bounds.MinLat, bounds.MinLon}, lengths)
	if err != nil {
		return nil
	}
	return rect
}
