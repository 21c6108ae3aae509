package tenantconfig

import "testing"

func TestScoringWeights_Valid(t *testing.T) {
	w := ScoringWeights{Relevance: 0.3, Novelty: 0.2, Timeliness: 0.1, Impact: 0.2, Alignment: 0.1, Credibility: 0.1}
	if !w.Valid() {
		t.Errorf("Valid() = false for weights summing to %v, want true", w.Sum())
	}
}

func TestScoringWeights_InvalidSum(t *testing.T) {
	w := ScoringWeights{Relevance: 0.5, Novelty: 0.5, Timeliness: 0.5, Impact: 0, Alignment: 0, Credibility: 0}
	if w.Valid() {
		t.Errorf("Valid() = true for weights summing to %v, want false", w.Sum())
	}
}

func TestScoringWeights_WithinTolerance(t *testing.T) {
	w := ScoringWeights{Relevance: 1.0/6 + 0.0005, Novelty: 1.0 / 6, Timeliness: 1.0 / 6, Impact: 1.0 / 6, Alignment: 1.0 / 6, Credibility: 1.0/6 - 0.0005}
	if !w.Valid() {
		t.Errorf("Valid() = false for near-1.0 sum %v, want true", w.Sum())
	}
}

func TestDefaultScoringWeights_SumsToOne(t *testing.T) {
	if !DefaultScoringWeights().Valid() {
		t.Error("DefaultScoringWeights() is not Valid()")
	}
}
