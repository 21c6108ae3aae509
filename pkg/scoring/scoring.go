// Package scoring implements the weak-signal engine (C16, §4.10): six
// weighted dimension scores and a weighted total per signal, grounded-signal
// storage with an idempotent Store.Upsert, and the
// draft→recommended→actioned state machine that governs grounded signals.
// The package does not compare the total against the tenant's threshold and
// does not create grounded signals from scores by itself.
package scoring

import (
	"time"

	"github.com/google/uuid"
)

// Status is a grounded signal's lifecycle state (§3).
type Status string

const (
	StatusDraft       Status = "draft"
	StatusRecommended Status = "recommended"
	StatusActioned    Status = "actioned"
)

// allowedTransitions enumerates the only legal forward moves; there are no
// automatic back-transitions (§4.10).
var allowedTransitions = map[Status]map[Status]bool{
	StatusDraft:       {StatusRecommended: true},
	StatusRecommended: {StatusActioned: true},
	StatusActioned:    {},
}

// CanTransition reports whether moving from to is a legal state machine
// edge.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// Scores is the §3 six-dimension score breakdown plus the weighted total.
type Scores struct {
	Relevance   float64 `json:"relevance"`
	Novelty     float64 `json:"novelty"`
	Timeliness  float64 `json:"timeliness"`
	Impact      float64 `json:"impact"`
	Alignment   float64 `json:"alignment"`
	Credibility float64 `json:"credibility"`
	Total       float64 `json:"total"`
}

// GroundedSignal is the §3 Grounded signal entity.
type GroundedSignal struct {
	ID             uuid.UUID      `json:"id"`
	SignalID       uuid.UUID      `json:"signal_id"`
	TenantID       uuid.UUID      `json:"tenant_id"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Scores         Scores         `json:"scores"`
	Status         Status         `json:"status"`
	Evidence       map[string]any `json:"evidence,omitempty"`
	Recommendation string         `json:"recommendation,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
