package safety

import (
	"sort"
	"strings"
	"time"
)

// Priority selects the ranking policy applied to scored routes.
type Priority string

const (
	PrioritySafety   Priority = "safety"
	PrioritySpeed    Priority = "speed"
	PriorityBalanced Priority = "balanced"
)

// ParsePriority maps a raw request value onto the priority enum. Empty input
// defaults to safety; the second return is false for unrecognized values.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PrioritySafety:
		return PrioritySafety, true
	case PrioritySpeed:
		return PrioritySpeed, true
	case PriorityBalanced:
		return PriorityBalanced, true
	case "":
		return PrioritySafety, true
	default:
		return PrioritySafety, false
	}
}

// Weights for the balanced policy's combined score.
const (
	balancedRiskWeight = 0.6
	balancedTimeWeight = 0.4
)

// RankInput is one scored candidate entering the ranker. Index identifies the
// candidate in the caller's slice and survives into the output order.
type RankInput struct {
	Index           int
	RiskScore       int
	DistanceMeters  float64
	DurationSeconds float64
}

// Ranker orders scored candidates under a priority policy.
type Ranker struct {
	scorer *Scorer
}

// NewRanker creates a Ranker. The scorer supplies the night window used for
// the nighttime priority override.
func NewRanker(scorer *Scorer) *Ranker {
	return &Ranker{scorer: scorer}
}

// EffectivePriority applies the nighttime override: during night hours a
// balanced request is promoted to safety. An explicit speed request is always
// honored.
func (r *Ranker) EffectivePriority(priority Priority, at time.Time) Priority {
	if r.scorer.IsNight(at) && priority == PriorityBalanced {
		return PrioritySafety
	}
	return priority
}

// Rank returns the candidate indices in recommendation order. Every input
// index appears exactly once. Ties break by the secondary key, then by input
// order, so the ordering is total and deterministic.
func (r *Ranker) Rank(inputs []RankInput, priority Priority, at time.Time) []int {
	effective := r.EffectivePriority(priority, at)

	ordered := make([]RankInput, len(inputs))
	copy(ordered, inputs)

	var less func(a, b RankInput) bool
	switch effective {
	case PrioritySpeed:
		less = func(a, b RankInput) bool {
			if a.DurationSeconds != b.DurationSeconds {
				return a.DurationSeconds < b.DurationSeconds
			}
			return a.RiskScore < b.RiskScore
		}
	case PriorityBalanced:
		minDuration := minDurationOf(ordered)
		combined := func(in RankInput) float64 {
			normalized := 1.0
			if minDuration > 0 {
				normalized = in.DurationSeconds / minDuration
			}
			return float64(in.RiskScore)*balancedRiskWeight + normalized*balancedTimeWeight
		}
		less = func(a, b RankInput) bool {
			ca, cb := combined(a), combined(b)
			if ca != cb {
				return ca < cb
			}
			return a.RiskScore < b.RiskScore
		}
	default: // safety
		less = func(a, b RankInput) bool {
			if a.RiskScore != b.RiskScore {
				return a.RiskScore < b.RiskScore
			}
			return a.DistanceMeters < b.DistanceMeters
		}
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return less(ordered[i], ordered[j])
	})

	indices := make([]int, len(ordered))
	for i, in := range ordered {
		indices[i] = in.Index
	}
	return indices
}

func minDurationOf(inputs []RankInput) float64 {
	if len(inputs) == 0 {
		return 0
	}
	m := inputs[0].DurationSeconds
	for _, in := range inputs[1:] {
		if in.DurationSeconds < m {
			m = in.DurationSeconds
		}
	}
	return m
}
