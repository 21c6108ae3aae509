package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/pkg/signal"
	"github.com/akamaotto/relayhub/pkg/tenantconfig"
)

func fixedEngine(now time.Time) *Engine {
	return &Engine{Now: func() time.Time { return now }}
}

func TestEngine_Score_WeightedTotal(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	e := fixedEngine(now)

	sig := signal.Signal{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Kind:       signal.KindPullRequestMerged,
		OccurredAt: now,
		DedupeKey:  "pr-123",
	}
	cfg := tenantconfig.Default(sig.TenantID)

	scores := e.Score(sig, cfg)

	want := scores.Relevance*cfg.ScoringWeights.Relevance +
		scores.Novelty*cfg.ScoringWeights.Novelty +
		scores.Timeliness*cfg.ScoringWeights.Timeliness +
		scores.Impact*cfg.ScoringWeights.Impact +
		scores.Alignment*cfg.ScoringWeights.Alignment +
		scores.Credibility*cfg.ScoringWeights.Credibility
	if diff := scores.Total - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Total = %v, want %v", scores.Total, want)
	}
	if scores.Impact != 0.85 {
		t.Errorf("Impact = %v, want 0.85 for a merged PR", scores.Impact)
	}
	if scores.Credibility != 0.75 {
		t.Errorf("Credibility = %v, want 0.75 with a dedupe key", scores.Credibility)
	}
}

func TestEngine_Score_InvalidWeightsFallBackToDefault(t *testing.T) {
	now := time.Now()
	e := fixedEngine(now)
	sig := signal.Signal{Kind: signal.KindMessagePosted, OccurredAt: now}
	cfg := tenantconfig.Config{
		ScoringWeights: tenantconfig.ScoringWeights{Relevance: 1, Novelty: 1, Timeliness: 1, Impact: 1, Alignment: 1, Credibility: 1},
	}

	scores := e.Score(sig, cfg)

	def := tenantconfig.DefaultScoringWeights()
	want := scores.Relevance*def.Relevance +
		scores.Novelty*def.Novelty +
		scores.Timeliness*def.Timeliness +
		scores.Impact*def.Impact +
		scores.Alignment*def.Alignment +
		scores.Credibility*def.Credibility
	if diff := scores.Total - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Total = %v, want %v computed against default weights", scores.Total, want)
	}
}

func TestEngine_Timeliness_DecaysToZero(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	e := fixedEngine(now)

	fresh := signal.Signal{OccurredAt: now}
	stale := signal.Signal{OccurredAt: now.Add(-14 * 24 * time.Hour)}

	if got := e.timeliness(fresh); got != 1.0 {
		t.Errorf("timeliness(fresh) = %v, want 1.0", got)
	}
	if got := e.timeliness(stale); got != 0.0 {
		t.Errorf("timeliness(stale) = %v, want 0.0 (clamped)", got)
	}
}

func TestClusterKey_SameDedupeKeyClusters(t *testing.T) {
	tenantID := uuid.New()
	a := signal.Signal{TenantID: tenantID, ProviderSlug: "github", DedupeKey: "pr-42", Kind: signal.KindPullRequestOpened, OccurredAt: time.Now()}
	b := a
	b.ID = uuid.New()
	b.Kind = signal.KindPullRequestMerged

	if ClusterKey(a) != ClusterKey(b) {
		t.Error("signals sharing a dedupe key should cluster to the same key")
	}
}

func TestClusterKey_DifferentTenantsNeverCluster(t *testing.T) {
	a := signal.Signal{TenantID: uuid.New(), ProviderSlug: "github", DedupeKey: "pr-42"}
	b := signal.Signal{TenantID: uuid.New(), ProviderSlug: "github", DedupeKey: "pr-42"}

	if ClusterKey(a) == ClusterKey(b) {
		t.Error("signals from different tenants must never cluster together")
	}
}

func TestClusterKey_NoDedupeKeyClustersByConnectionKindDay(t *testing.T) {
	connID := uuid.New()
	tenantID := uuid.New()
	day := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	laterSameDay := time.Date(2026, 7, 30, 23, 0, 0, 0, time.UTC)

	a := signal.Signal{TenantID: tenantID, ProviderSlug: "slack", ConnectionID: &connID, Kind: signal.KindMessagePosted, OccurredAt: day}
	b := signal.Signal{TenantID: tenantID, ProviderSlug: "slack", ConnectionID: &connID, Kind: signal.KindMessagePosted, OccurredAt: laterSameDay}

	if ClusterKey(a) != ClusterKey(b) {
		t.Error("same connection/kind/day signals without a dedupe key should cluster together")
	}
}
