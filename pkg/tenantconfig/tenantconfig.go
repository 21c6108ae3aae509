// Package tenantconfig implements the tenant signal config CRUD surface
// (§3's Tenant signal config entity): per-tenant weak-signal threshold,
// scoring weights, and webhook delivery URL consumed by the weak-signal
// engine (C16, pkg/scoring).
package tenantconfig

import "github.com/google/uuid"

// DefaultWeakSignalThreshold is used when a tenant has no config row yet
// (§4.10).
const DefaultWeakSignalThreshold = 0.7

// ScoringWeights are the six dimension weights the weak-signal engine
// multiplies against its per-dimension scores. They must sum to 1.0±0.001;
// DefaultScoringWeights is substituted otherwise (§4.10, §8's "Scoring
// weights" invariant).
type ScoringWeights struct {
	Relevance  float64 `json:"relevance"`
	Novelty    float64 `json:"novelty"`
	Timeliness float64 `json:"timeliness"`
	Impact     float64 `json:"impact"`
	Alignment  float64 `json:"alignment"`
	Credibility float64 `json:"credibility"`
}

// DefaultScoringWeights weighs impact and relevance highest, credibility
// lowest.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Relevance:   0.20,
		Novelty:     0.15,
		Timeliness:  0.15,
		Impact:      0.25,
		Alignment:   0.15,
		Credibility: 0.10,
	}
}

// Sum returns the sum of all six weights, used for the ±0.001 validation.
func (w ScoringWeights) Sum() float64 {
	return w.Relevance + w.Novelty + w.Timeliness + w.Impact + w.Alignment + w.Credibility
}

// Valid reports whether w sums to 1.0 within tolerance.
func (w ScoringWeights) Valid() bool {
	const tolerance = 0.001
	d := w.Sum() - 1.0
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

// Config is the §3 Tenant signal config entity.
type Config struct {
	TenantID             uuid.UUID      `json:"tenant_id"`
	WeakSignalThreshold  float64        `json:"weak_signal_threshold"`
	ScoringWeights       ScoringWeights `json:"scoring_weights"`
	WebhookURL           string         `json:"webhook_url,omitempty"`
}

// Default returns the fallback config for a tenant with no stored row.
func Default(tenantID uuid.UUID) Config {
	return Config{
		TenantID:            tenantID,
		WeakSignalThreshold: DefaultWeakSignalThreshold,
		ScoringWeights:      DefaultScoringWeights(),
	}
}
