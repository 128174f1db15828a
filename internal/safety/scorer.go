package safety

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/saferoute/saferoute/pkg/geo"
)

// ScoringConfig holds the tunable constants of the risk model. All defaults
// are conservative and incident-dominant.
type ScoringConfig struct {
	// CorridorRadiusMeters is how far from the sampled route an incident
	// still counts. Default: 75.
	CorridorRadiusMeters float64

	// PhoneRadiusMeters is how far from the sampled route an emergency
	// phone still counts. Default: 150.
	PhoneRadiusMeters float64

	// SampleIntervalMeters is the spacing of proximity-test points along
	// the route. Default: 25.
	SampleIntervalMeters float64

	// IncidentWindowDays is the age beyond which an incident contributes
	// nothing. Default: 90.
	IncidentWindowDays int

	// RecentWindowDays is the age under which an incident contributes at
	// full weight; older incidents inside the window contribute half.
	// Default: 30.
	RecentWindowDays int

	// IncidentWeight scales the incident term. Default: 6.
	IncidentWeight float64

	// LightingWeight scales the poor-lighting coverage fraction. Default: 15.
	LightingWeight float64

	// PatrolWeight scales the low-patrol coverage fraction. Default: 10.
	PatrolWeight float64

	// PhoneWeight scales the (capped) emergency phone count, subtracted
	// from the score. Default: 4.
	PhoneWeight float64

	// MaxPhoneBenefit caps how many phones reduce risk. Default: 3.
	MaxPhoneBenefit int

	// NightMultiplier is applied to the incident and patrol terms during
	// night hours, never to the phone term. Default: 1.3.
	NightMultiplier float64

	// NightStartHour and NightEndHour bound the night window, which wraps
	// midnight: hour >= start or hour < end. Defaults: 21 and 6.
	NightStartHour int
	NightEndHour   int
}

// DefaultScoringConfig returns the default scoring constants.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		CorridorRadiusMeters: 75,
		PhoneRadiusMeters:    150,
		SampleIntervalMeters: 25,
		IncidentWindowDays:   90,
		RecentWindowDays:     30,
		IncidentWeight:       6,
		LightingWeight:       15,
		PatrolWeight:         10,
		PhoneWeight:          4,
		MaxPhoneBenefit:      3,
		NightMultiplier:      1.3,
		NightStartHour:       21,
		NightEndHour:         6,
	}
}

// Scorer computes a SafetyAnalysis for a route geometry. It is stateless and
// safe for concurrent use.
type Scorer struct {
	config ScoringConfig
}

// NewScorer creates a Scorer, filling zero-valued config fields with defaults.
func NewScorer(cfg ScoringConfig) *Scorer {
	def := DefaultScoringConfig()
	if cfg.CorridorRadiusMeters <= 0 {
		cfg.CorridorRadiusMeters = def.CorridorRadiusMeters
	}
	if cfg.PhoneRadiusMeters <= 0 {
		cfg.PhoneRadiusMeters = def.PhoneRadiusMeters
	}
	if cfg.SampleIntervalMeters <= 0 {
		cfg.SampleIntervalMeters = def.SampleIntervalMeters
	}
	if cfg.IncidentWindowDays <= 0 {
		cfg.IncidentWindowDays = def.IncidentWindowDays
	}
	if cfg.RecentWindowDays <= 0 {
		cfg.RecentWindowDays = def.RecentWindowDays
	}
	if cfg.IncidentWeight <= 0 {
		cfg.IncidentWeight = def.IncidentWeight
	}
	if cfg.LightingWeight <= 0 {
		cfg.LightingWeight = def.LightingWeight
	}
	if cfg.PatrolWeight <= 0 {
		cfg.PatrolWeight = def.PatrolWeight
	}
	if cfg.PhoneWeight <= 0 {
		cfg.PhoneWeight = def.PhoneWeight
	}
	if cfg.MaxPhoneBenefit <= 0 {
		cfg.MaxPhoneBenefit = def.MaxPhoneBenefit
	}
	if cfg.NightMultiplier < 1 {
		cfg.NightMultiplier = def.NightMultiplier
	}
	if cfg.NightStartHour == 0 && cfg.NightEndHour == 0 {
		cfg.NightStartHour = def.NightStartHour
		cfg.NightEndHour = def.NightEndHour
	}
	return &Scorer{config: cfg}
}

// Config returns the effective scoring constants.
func (s *Scorer) Config() ScoringConfig {
	return s.config
}

// IsNight reports whether the hour falls in the configured night window.
func (s *Scorer) IsNight(at time.Time) bool {
	hour := at.Hour()
	return hour >= s.config.NightStartHour || hour < s.config.NightEndHour
}

// signal is one contribution to the score, used to order concerns/positives
// by magnitude.
type signal struct {
	text      string
	magnitude float64
}

// Score analyzes a route geometry against the environment snapshot at the
// given time. Returns geo.ErrInvalidGeometry for degenerate geometry; missing
// reference layers degrade to zero contribution plus a DataWarnings entry.
func (s *Scorer) Score(points []geo.Coordinate, at time.Time, env Environment) (*SafetyAnalysis, error) {
	sampled, err := geo.SampleAlong(points, s.config.SampleIntervalMeters)
	if err != nil {
		return nil, err
	}

	timeMultiplier := 1.0
	if s.IsNight(at) {
		timeMultiplier = s.config.NightMultiplier
	}

	incidentTerm, nearIncidents := s.incidentTerm(sampled, at, env.Incidents)
	phoneCount := s.phonesNearRoute(sampled, env.Phones)
	phoneTerm := float64(min(phoneCount, s.config.MaxPhoneBenefit))

	var warnings []string

	lightingFraction := 0.0
	if env.PoorLighting != nil {
		lightingFraction = coverageFraction(sampled, env.PoorLighting)
	} else {
		warnings = append(warnings, "lighting data unavailable; lighting not factored into this score")
	}

	patrolFraction := 0.0
	if env.LowPatrol != nil {
		patrolFraction = coverageFraction(sampled, env.LowPatrol)
	} else {
		warnings = append(warnings, "patrol data unavailable; patrol coverage not factored into this score")
	}

	incidentContribution := s.config.IncidentWeight * incidentTerm * timeMultiplier
	lightingContribution := s.config.LightingWeight * lightingFraction
	patrolContribution := s.config.PatrolWeight * patrolFraction * timeMultiplier
	phoneContribution := s.config.PhoneWeight * phoneTerm

	raw := incidentContribution + lightingContribution + patrolContribution - phoneContribution
	score := int(math.Round(raw))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	lighting := lightingLabel(lightingFraction)
	patrol := patrolLabel(patrolFraction)

	concerns := buildConcerns(nearIncidents, incidentContribution, lighting, lightingContribution, patrol, patrolContribution)
	positives := buildPositives(phoneCount, phoneContribution, len(nearIncidents), patrol)

	return &SafetyAnalysis{
		RiskScore:           score,
		RiskLevel:           RiskLevelForScore(score),
		IncidentCount:       len(nearIncidents),
		EmergencyPhoneCount: phoneCount,
		LightingQuality:     lighting,
		PatrolFrequency:     patrol,
		Concerns:            concerns,
		Positives:           positives,
		DataWarnings:        warnings,
	}, nil
}

// incidentTerm sums severity- and recency-weighted contributions of incidents
// within the corridor radius of any sampled point. It is monotonically
// non-decreasing in both incident count and severity.
func (s *Scorer) incidentTerm(sampled []geo.Coordinate, at time.Time, incidents []Incident) (float64, []Incident) {
	var term float64
	var near []Incident

	for _, inc := range incidents {
		recency := s.recencyWeight(at, inc.OccurredAt)
		if recency == 0 {
			continue
		}
		if !withinRadiusOfAny(inc.Location, s.config.CorridorRadiusMeters, sampled) {
			continue
		}
		term += inc.Severity.Weight() * recency
		near = append(near, inc)
	}

	return term, near
}

// recencyWeight returns 1.0 for incidents within the recent window, 0.5 for
// incidents inside the overall window, and 0 for anything older or in the
// future.
func (s *Scorer) recencyWeight(at, occurredAt time.Time) float64 {
	age := at.Sub(occurredAt)
	if age < 0 {
		return 0
	}
	days := int(age.Hours() / 24)
	switch {
	case days <= s.config.RecentWindowDays:
		return 1.0
	case days <= s.config.IncidentWindowDays:
		return 0.5
	default:
		return 0
	}
}

func (s *Scorer) phonesNearRoute(sampled []geo.Coordinate, phones []EmergencyPhone) int {
	count := 0
	for _, p := range phones {
		if withinRadiusOfAny(p.Location, s.config.PhoneRadiusMeters, sampled) {
			count++
		}
	}
	return count
}

func withinRadiusOfAny(c geo.Coordinate, radius float64, points []geo.Coordinate) bool {
	for _, p := range points {
		if geo.DistanceMeters(c, p) <= radius {
			return true
		}
	}
	return false
}

// coverageFraction returns the fraction of sampled points inside the zone
// layer, a proxy for the fraction of route length covered.
func coverageFraction(sampled []geo.Coordinate, zones ZoneIndex) float64 {
	inside := 0
	for _, p := range sampled {
		if zones.Contains(p) {
			inside++
		}
	}
	return float64(inside) / float64(len(sampled))
}

func lightingLabel(poorFraction float64) LightingQuality {
	switch {
	case poorFraction > 0.5:
		return LightingPoor
	case poorFraction > 0.15:
		return LightingModerate
	default:
		return LightingGood
	}
}

func patrolLabel(lowFraction float64) PatrolFrequency {
	switch {
	case lowFraction > 0.5:
		return PatrolLow
	case lowFraction > 0.15:
		return PatrolModerate
	default:
		return PatrolHigh
	}
}

// contributionThreshold is the minimum score contribution for a signal to
// surface as a concern or positive.
const contributionThreshold = 0.5

func buildConcerns(
	incidents []Incident,
	incidentContribution float64,
	lighting LightingQuality,
	lightingContribution float64,
	patrol PatrolFrequency,
	patrolContribution float64,
) []string {
	var signals []signal

	if incidentContribution > contributionThreshold && len(incidents) > 0 {
		signals = append(signals, signal{
			text:      describeIncidents(incidents),
			magnitude: incidentContribution,
		})
	}
	if lightingContribution > contributionThreshold && lighting == LightingPoor {
		signals = append(signals, signal{
			text:      "poor lighting along most of the route",
			magnitude: lightingContribution,
		})
	} else if lightingContribution > contributionThreshold && lighting == LightingModerate {
		signals = append(signals, signal{
			text:      "stretches of the route are poorly lit",
			magnitude: lightingContribution,
		})
	}
	if patrolContribution > contributionThreshold && patrol == PatrolLow {
		signals = append(signals, signal{
			text:      "low patrol coverage on this route",
			magnitude: patrolContribution,
		})
	} else if patrolContribution > contributionThreshold && patrol == PatrolModerate {
		signals = append(signals, signal{
			text:      "parts of the route see infrequent patrols",
			magnitude: patrolContribution,
		})
	}

	return signalTexts(signals)
}

func buildPositives(phoneCount int, phoneContribution float64, incidentCount int, patrol PatrolFrequency) []string {
	var signals []signal

	if phoneCount > 0 && phoneContribution > contributionThreshold {
		signals = append(signals, signal{
			text:      describePhones(phoneCount),
			magnitude: phoneContribution,
		})
	}
	if incidentCount == 0 {
		signals = append(signals, signal{
			text:      "no recent incidents reported in the area",
			magnitude: 1,
		})
	}
	if patrol == PatrolHigh {
		signals = append(signals, signal{
			text:      "frequent patrols cover this route",
			magnitude: 1,
		})
	}

	return signalTexts(signals)
}

func describeIncidents(incidents []Incident) string {
	byType := make(map[IncidentType]int)
	for _, inc := range incidents {
		byType[inc.Type]++
	}

	// Lead with whichever incident type dominates the corridor.
	var top IncidentType
	topCount := 0
	for t, n := range byType {
		if n > topCount || (n == topCount && t < top) {
			top, topCount = t, n
		}
	}

	total := len(incidents)
	noun := "incident"
	if total > 1 {
		noun = "incidents"
	}
	if len(byType) == 1 {
		return fmt.Sprintf("%d recent %s %s near this route", total, top, noun)
	}
	return fmt.Sprintf("%d recent %s near this route, mostly %s", total, noun, top)
}

func describePhones(count int) string {
	if count == 1 {
		return "1 emergency phone along the route"
	}
	return fmt.Sprintf("%d emergency phones along the route", count)
}

// signalTexts orders signals by contribution magnitude descending and
// returns their texts. Sort is stable so equal-magnitude signals keep
// insertion order, keeping output deterministic.
func signalTexts(signals []signal) []string {
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].magnitude > signals[j].magnitude
	})

	texts := make([]string, 0, len(signals))
	for _, sig := range signals {
		texts = append(texts, sig.text)
	}
	return texts
}
