package safety

import (
	"fmt"
	"math"
	"strings"
)

// Explainer renders deterministic, human-readable summaries for ranked
// routes. The same inputs always produce the same text.
type Explainer struct{}

// NewExplainer creates an Explainer.
func NewExplainer() *Explainer {
	return &Explainer{}
}

// Explain produces the recommendation sentence for a route at a given rank
// (0 is the top recommendation). The text is assembled from the analysis and
// the effective priority only.
func (e *Explainer) Explain(rank int, analysis *SafetyAnalysis, priority Priority) string {
	var b strings.Builder

	b.WriteString(e.lead(rank, priority))
	b.WriteString(" ")
	b.WriteString(e.levelSentence(analysis.RiskLevel))

	// Concerns and positives arrive ordered by contribution magnitude; only
	// the top two of each make it into the sentence.
	if len(analysis.Concerns) > 0 {
		b.WriteString(" Watch for: ")
		b.WriteString(joinClauses(topClauses(analysis.Concerns)))
		b.WriteString(".")
	}
	if len(analysis.Positives) > 0 {
		b.WriteString(" In its favor: ")
		b.WriteString(joinClauses(topClauses(analysis.Positives)))
		b.WriteString(".")
	}

	return b.String()
}

func (e *Explainer) lead(rank int, priority Priority) string {
	if rank == 0 {
		switch priority {
		case PrioritySpeed:
			return "Recommended as the fastest option."
		case PriorityBalanced:
			return "Recommended as the best balance of safety and travel time."
		default:
			return "Recommended as the safest option."
		}
	}
	return fmt.Sprintf("Alternative #%d.", rank)
}

func (e *Explainer) levelSentence(level RiskLevel) string {
	switch level {
	case RiskVerySafe:
		return "This route has very low risk."
	case RiskSafe:
		return "This route has low risk."
	case RiskModerate:
		return "This route has moderate risk."
	case RiskCaution:
		return "Use caution on this route."
	default:
		return "This route has elevated risk and is best avoided."
	}
}

// Comparison renders the one-sentence tradeoff between the top route and an
// alternative. A positive improvement means the top route is safer; a
// positive tradeoff means the top route takes that many minutes longer than
// the alternative.
func (e *Explainer) Comparison(safetyImprovementPercent, timeTradeoffMinutes float64) string {
	safety := int(math.Round(safetyImprovementPercent))
	minutes := int(math.Round(math.Abs(timeTradeoffMinutes)))

	switch {
	case safety > 0 && timeTradeoffMinutes >= 0.5:
		return fmt.Sprintf("The recommended route is about %d%% safer and adds roughly %s.", safety, minutesPhrase(minutes))
	case safety > 0:
		return fmt.Sprintf("The recommended route is about %d%% safer at no extra travel time.", safety)
	case timeTradeoffMinutes >= 0.5:
		return fmt.Sprintf("This alternative saves roughly %s at similar risk.", minutesPhrase(minutes))
	default:
		return "This alternative is comparable in both safety and travel time."
	}
}

func minutesPhrase(minutes int) string {
	if minutes <= 1 {
		return "a minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// topClauses keeps at most the two highest-contribution entries.
func topClauses(clauses []string) []string {
	if len(clauses) > 2 {
		return clauses[:2]
	}
	return clauses
}

func joinClauses(clauses []string) string {
	switch len(clauses) {
	case 0:
		return ""
	case 1:
		return clauses[0]
	case 2:
		return clauses[0] + " and " + clauses[1]
	default:
		return strings.Join(clauses[:len(clauses)-1], "; ") + "; and " + clauses[len(clauses)-1]
	}
}

// Tip types surfaced alongside a recommendation.
const (
	TipAdvisory = "advisory"
	TipWarning  = "warning"
)

// BuildTips derives contextual advice from the incidents near the
// recommended route and the time of travel.
func (e *Explainer) BuildTips(incidents []Incident, night bool) []Tip {
	byType := make(map[IncidentType]int)
	for _, inc := range incidents {
		byType[inc.Type]++
	}

	var tips []Tip

	if byType[IncidentAssault] > 0 {
		tips = append(tips, Tip{
			Type:         TipWarning,
			Message:      "An assault was reported near this route recently. Consider walking with a companion or using a campus escort service.",
			TriggerCrime: string(IncidentAssault),
		})
	}
	if byType[IncidentTheft] > 2 {
		tips = append(tips, Tip{
			Type:         TipAdvisory,
			Message:      "Several thefts were reported in this area. Keep phones and bags out of sight.",
			TriggerCrime: string(IncidentTheft),
		})
	}
	if night {
		tips = append(tips, Tip{
			Type:    TipAdvisory,
			Message: "Traveling at night raises risk on most routes. Stay on lit paths and share your location with a friend.",
		})
	}

	return tips
}
