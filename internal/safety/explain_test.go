package safety

import (
	"strings"
	"testing"
)

func TestExplainIdempotent(t *testing.T) {
	e := NewExplainer()
	analysis := &SafetyAnalysis{
		RiskScore: 35,
		RiskLevel: RiskSafe,
		Concerns:  []string{"stretches of the route are poorly lit"},
		Positives: []string{"2 emergency phones along the route"},
	}

	first := e.Explain(0, analysis, PrioritySafety)
	for i := 0; i < 3; i++ {
		if again := e.Explain(0, analysis, PrioritySafety); again != first {
			t.Fatalf("explanation varied across calls:\n%q\n%q", first, again)
		}
	}
}

func TestExplainLeadByRankAndPriority(t *testing.T) {
	e := NewExplainer()
	analysis := &SafetyAnalysis{RiskLevel: RiskVerySafe}

	top := e.Explain(0, analysis, PrioritySafety)
	if !strings.Contains(top, "safest") {
		t.Errorf("safety top explanation = %q, want mention of safest", top)
	}

	speed := e.Explain(0, analysis, PrioritySpeed)
	if !strings.Contains(speed, "fastest") {
		t.Errorf("speed top explanation = %q, want mention of fastest", speed)
	}

	alt := e.Explain(2, analysis, PrioritySafety)
	if !strings.Contains(alt, "Alternative #2") {
		t.Errorf("alternative explanation = %q, want rank label", alt)
	}
}

func TestExplainIncludesConcernsAndPositives(t *testing.T) {
	e := NewExplainer()
	analysis := &SafetyAnalysis{
		RiskLevel: RiskModerate,
		Concerns:  []string{"poor lighting along most of the route", "low patrol coverage on this route"},
		Positives: []string{"no recent incidents reported in the area"},
	}

	got := e.Explain(1, analysis, PriorityBalanced)
	for _, want := range append(analysis.Concerns, analysis.Positives...) {
		if !strings.Contains(got, want) {
			t.Errorf("explanation %q missing clause %q", got, want)
		}
	}
}

func TestExplainCapsClausesAtTwo(t *testing.T) {
	e := NewExplainer()
	analysis := &SafetyAnalysis{
		RiskLevel: RiskCaution,
		Concerns: []string{
			"5 incidents reported near this route recently",
			"poor lighting along most of the route",
			"low patrol coverage on this route",
		},
	}

	got := e.Explain(0, analysis, PrioritySafety)
	for _, want := range analysis.Concerns[:2] {
		if !strings.Contains(got, want) {
			t.Errorf("explanation %q missing top concern %q", got, want)
		}
	}
	if strings.Contains(got, analysis.Concerns[2]) {
		t.Errorf("explanation %q includes third concern, want top two only", got)
	}
}

func TestComparison(t *testing.T) {
	e := NewExplainer()

	tests := []struct {
		name        string
		safety      float64
		tradeoff    float64
		wantSnippet string
	}{
		{"safer and slower", 40, 3, "40% safer"},
		{"safer same time", 25, 0, "no extra travel time"},
		{"faster alternative", 0, 5, "saves roughly 5 minutes"},
		{"comparable", 0, 0, "comparable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Comparison(tt.safety, tt.tradeoff)
			if !strings.Contains(got, tt.wantSnippet) {
				t.Errorf("Comparison(%v, %v) = %q, want snippet %q", tt.safety, tt.tradeoff, got, tt.wantSnippet)
			}
		})
	}
}

func TestBuildTips(t *testing.T) {
	e := NewExplainer()

	thefts := func(n int) []Incident {
		out := make([]Incident, n)
		for i := range out {
			out[i] = Incident{Type: IncidentTheft}
		}
		return out
	}

	t.Run("assault warning", func(t *testing.T) {
		tips := e.BuildTips([]Incident{{Type: IncidentAssault}}, false)
		if len(tips) != 1 || tips[0].Type != TipWarning {
			t.Fatalf("tips = %+v, want one warning", tips)
		}
		if tips[0].TriggerCrime != string(IncidentAssault) {
			t.Errorf("TriggerCrime = %q, want %q", tips[0].TriggerCrime, IncidentAssault)
		}
	})

	t.Run("theft advisory needs more than two", func(t *testing.T) {
		if tips := e.BuildTips(thefts(2), false); len(tips) != 0 {
			t.Errorf("two thefts produced tips: %+v", tips)
		}
		tips := e.BuildTips(thefts(3), false)
		if len(tips) != 1 || tips[0].Type != TipAdvisory {
			t.Fatalf("three thefts tips = %+v, want one advisory", tips)
		}
	})

	t.Run("night advisory", func(t *testing.T) {
		tips := e.BuildTips(nil, true)
		if len(tips) != 1 || tips[0].Type != TipAdvisory {
			t.Fatalf("night tips = %+v, want one advisory", tips)
		}
	})

	t.Run("quiet daytime route", func(t *testing.T) {
		if tips := e.BuildTips(nil, false); len(tips) != 0 {
			t.Errorf("tips = %+v, want none", tips)
		}
	})
}
