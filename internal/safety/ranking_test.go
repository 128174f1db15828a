package safety

import (
	"testing"
	"time"
)

func newTestRanker() *Ranker {
	return NewRanker(NewScorer(ScoringConfig{}))
}

var (
	dayTime   = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
	nightTime = time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in     string
		want   Priority
		wantOK bool
	}{
		{"safety", PrioritySafety, true},
		{"speed", PrioritySpeed, true},
		{"balanced", PriorityBalanced, true},
		{"SPEED", PrioritySpeed, true},
		{" balanced ", PriorityBalanced, true},
		{"", PrioritySafety, true},
		{"fastest", PrioritySafety, false},
	}

	for _, tt := range tests {
		got, ok := ParsePriority(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParsePriority(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRankSafetyPriority(t *testing.T) {
	r := newTestRanker()
	inputs := []RankInput{
		{Index: 0, RiskScore: 45, DistanceMeters: 800, DurationSeconds: 600},
		{Index: 1, RiskScore: 12, DistanceMeters: 1100, DurationSeconds: 840},
		{Index: 2, RiskScore: 30, DistanceMeters: 900, DurationSeconds: 700},
	}

	got := r.Rank(inputs, PrioritySafety, dayTime)
	want := []int{1, 2, 0}
	assertOrder(t, got, want)
}

func TestRankSpeedPriority(t *testing.T) {
	r := newTestRanker()
	inputs := []RankInput{
		{Index: 0, RiskScore: 45, DistanceMeters: 800, DurationSeconds: 600},
		{Index: 1, RiskScore: 12, DistanceMeters: 1100, DurationSeconds: 840},
		{Index: 2, RiskScore: 30, DistanceMeters: 900, DurationSeconds: 700},
	}

	got := r.Rank(inputs, PrioritySpeed, dayTime)
	want := []int{0, 2, 1}
	assertOrder(t, got, want)
}

func TestRankBalancedPriority(t *testing.T) {
	r := newTestRanker()
	// Candidate 2 is slightly slower than 0 but far safer, so the
	// combined score should prefer it.
	inputs := []RankInput{
		{Index: 0, RiskScore: 60, DistanceMeters: 800, DurationSeconds: 600},
		{Index: 1, RiskScore: 55, DistanceMeters: 1500, DurationSeconds: 1400},
		{Index: 2, RiskScore: 10, DistanceMeters: 900, DurationSeconds: 660},
	}

	got := r.Rank(inputs, PriorityBalanced, dayTime)
	if got[0] != 2 {
		t.Errorf("balanced rank order = %v, want candidate 2 first", got)
	}
}

func TestRankNightOverride(t *testing.T) {
	r := newTestRanker()
	// Slightly riskier but much faster vs slightly safer but far slower.
	// Balanced prefers the fast one by day; at night the override ranks
	// by safety instead.
	inputs := []RankInput{
		{Index: 0, RiskScore: 20, DistanceMeters: 500, DurationSeconds: 400},
		{Index: 1, RiskScore: 19, DistanceMeters: 2400, DurationSeconds: 2000},
	}

	day := r.Rank(inputs, PriorityBalanced, dayTime)
	night := r.Rank(inputs, PriorityBalanced, nightTime)

	if day[0] != 0 {
		t.Errorf("day balanced rank = %v, want fast candidate first", day)
	}
	if night[0] != 1 {
		t.Errorf("night balanced rank = %v, want safest candidate first", night)
	}
}

func TestRankNightHonorsExplicitSpeed(t *testing.T) {
	r := newTestRanker()
	inputs := []RankInput{
		{Index: 0, RiskScore: 70, DistanceMeters: 600, DurationSeconds: 420},
		{Index: 1, RiskScore: 15, DistanceMeters: 1200, DurationSeconds: 900},
	}

	got := r.Rank(inputs, PrioritySpeed, nightTime)
	if got[0] != 0 {
		t.Errorf("speed rank at night = %v, want fastest candidate first", got)
	}
}

func TestRankTieBreaksByDistance(t *testing.T) {
	r := newTestRanker()
	inputs := []RankInput{
		{Index: 0, RiskScore: 20, DistanceMeters: 950, DurationSeconds: 700},
		{Index: 1, RiskScore: 20, DistanceMeters: 800, DurationSeconds: 750},
	}

	got := r.Rank(inputs, PrioritySafety, dayTime)
	if got[0] != 1 {
		t.Errorf("equal-risk rank = %v, want shorter route first", got)
	}
}

func TestRankTotality(t *testing.T) {
	r := newTestRanker()
	inputs := []RankInput{
		{Index: 0, RiskScore: 20, DistanceMeters: 800, DurationSeconds: 600},
		{Index: 1, RiskScore: 20, DistanceMeters: 800, DurationSeconds: 600},
		{Index: 2, RiskScore: 20, DistanceMeters: 800, DurationSeconds: 600},
	}

	for _, priority := range []Priority{PrioritySafety, PrioritySpeed, PriorityBalanced} {
		got := r.Rank(inputs, priority, dayTime)
		if len(got) != len(inputs) {
			t.Fatalf("%s: rank dropped candidates: %v", priority, got)
		}
		seen := make(map[int]bool)
		for _, idx := range got {
			if seen[idx] {
				t.Fatalf("%s: duplicate index %d in %v", priority, idx, got)
			}
			seen[idx] = true
		}
		// Identical candidates keep insertion order.
		assertOrder(t, got, []int{0, 1, 2})
	}
}

func TestRankSingleCandidate(t *testing.T) {
	r := newTestRanker()
	got := r.Rank([]RankInput{{Index: 0, RiskScore: 50}}, PriorityBalanced, dayTime)
	assertOrder(t, got, []int{0})
}

func TestRankEmpty(t *testing.T) {
	r := newTestRanker()
	if got := r.Rank(nil, PrioritySafety, dayTime); len(got) != 0 {
		t.Errorf("Rank(nil) = %v, want empty", got)
	}
}

func assertOrder(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("rank order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
			return
		}
	}
}
