package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/akamaotto/relayhub/pkg/signal"
	"github.com/akamaotto/relayhub/pkg/tenantconfig"
)

// impactfulKinds are canonical kinds treated as carrying outsized impact
// (merges, closures) versus routine chatter (messages).
var impactfulKinds = map[signal.Kind]bool{
	signal.KindPullRequestMerged: true,
	signal.KindIssueClosed:       true,
	signal.KindMeetingScheduled:  true,
}

var noveltyKinds = map[signal.Kind]bool{
	signal.KindIssueOpened:      true,
	signal.KindPullRequestOpened: true,
}

// Engine computes the §4.10 six-dimension score for a signal.
type Engine struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewEngine builds an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Score computes the dimension scores and weighted total for sig using
// cfg's weights, falling back to defaults if cfg's weights don't sum to
// 1.0±0.001 (§8's "Scoring weights" invariant — tenantconfig's Store.Upsert
// already substitutes the defaults before storing config, but Score
// re-checks so callers building cfg by hand get the same guarantee).
func (e *Engine) Score(sig signal.Signal, cfg tenantconfig.Config) Scores {
	weights := cfg.ScoringWeights
	if !weights.Valid() {
		weights = tenantconfig.DefaultScoringWeights()
	}

	s := Scores{
		Relevance:   e.relevance(sig),
		Novelty:     e.novelty(sig),
		Timeliness:  e.timeliness(sig),
		Impact:      e.impact(sig),
		Alignment:   e.alignment(sig),
		Credibility: e.credibility(sig),
	}
	s.Total = s.Relevance*weights.Relevance +
		s.Novelty*weights.Novelty +
		s.Timeliness*weights.Timeliness +
		s.Impact*weights.Impact +
		s.Alignment*weights.Alignment +
		s.Credibility*weights.Credibility
	return s
}

// relevance favors signals whose canonical kind normalized successfully;
// an unrecognized kind (KindUnknown) is presumed off-topic until a human
// extends the taxonomy (§9's Open Question decision).
func (e *Engine) relevance(sig signal.Signal) float64 {
	if sig.Kind == signal.KindUnknown {
		return 0.2
	}
	return 0.8
}

// novelty favors kinds that open new work over kinds that merely report
// routine ongoing activity.
func (e *Engine) novelty(sig signal.Signal) float64 {
	if noveltyKinds[sig.Kind] {
		return 0.9
	}
	if sig.Kind == signal.KindCommentPosted || sig.Kind == signal.KindMessagePosted {
		return 0.3
	}
	return 0.5
}

// timeliness decays linearly from 1.0 at occurred_at = now to 0 at 7 days
// old.
func (e *Engine) timeliness(sig signal.Signal) float64 {
	age := e.now().Sub(sig.OccurredAt)
	if age < 0 {
		age = 0
	}
	const window = 7 * 24 * time.Hour
	score := 1.0 - float64(age)/float64(window)
	return clamp01(score)
}

// impact favors kinds that represent a completed, consequential action.
func (e *Engine) impact(sig signal.Signal) float64 {
	if impactfulKinds[sig.Kind] {
		return 0.85
	}
	return 0.4
}

// alignment is a stand-in for tenant-specific topical alignment; absent a
// configured alignment model it returns a neutral midpoint score, leaving
// the weighted total to be driven by the other five dimensions.
func (e *Engine) alignment(sig signal.Signal) float64 {
	return 0.5
}

// credibility favors signals carrying a dedupe key (meaning the connector
// could derive a stable provider-native identity for them) over ones that
// cannot be deduplicated.
func (e *Engine) credibility(sig signal.Signal) float64 {
	if sig.DedupeKey != "" {
		return 0.75
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClusterKey derives the idempotency key grouping a signal into the
// grounded signal it contributes evidence to, so that re-evaluating the
// same underlying activity upserts the existing row instead of creating a
// duplicate (§4.10). Signals sharing a dedupe key cluster together;
// otherwise, signals of the same kind from the same connection on the same
// UTC day cluster together.
func ClusterKey(sig signal.Signal) string {
	var raw string
	if sig.DedupeKey != "" {
		raw = fmt.Sprintf("%s|%s|dedupe:%s", sig.TenantID, sig.ProviderSlug, sig.DedupeKey)
	} else {
		connID := "none"
		if sig.ConnectionID != nil {
			connID = sig.ConnectionID.String()
		}
		day := sig.OccurredAt.UTC().Format("2006-01-02")
		raw = fmt.Sprintf("%s|%s|%s|%s|%s", sig.TenantID, sig.ProviderSlug, connID, sig.Kind, day)
	}
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Evidence builds the evidence document persisted alongside a grounded
// signal's scores, for operator inspection (§3).
func Evidence(sig signal.Signal, scores Scores) map[string]any {
	return map[string]any{
		"source_signal_id": sig.ID,
		"provider_slug":     sig.ProviderSlug,
		"kind":              string(sig.Kind),
		"occurred_at":       sig.OccurredAt.UTC().Format(time.RFC3339),
	}
}

// Recommendation builds a short human-readable recommendation string from a
// signal and its scores, stored on the grounded signal for operator review.
func Recommendation(sig signal.Signal, scores Scores) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s signal from %s scored %.2f", sig.Kind, sig.ProviderSlug, scores.Total)
	return b.String()
}
