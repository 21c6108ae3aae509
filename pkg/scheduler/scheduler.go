// Package scheduler implements the scheduler tick loop (C9): it enumerates
// active connections and enqueues incremental sync jobs on a jittered
// interval, per §4.6.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/internal/db"
	"github.com/akamaotto/relayhub/pkg/credential"
	"github.com/akamaotto/relayhub/pkg/syncjob"
)

// Config controls interval bounds and jitter.
type Config struct {
	// TickInterval is how often the scheduler loop runs.
	TickInterval time.Duration
	// DefaultIntervalSeconds is used when a connection has no
	// interval_seconds override in its sync metadata.
	DefaultIntervalSeconds int
	// MaxOverriddenIntervalSeconds caps any per-connection override.
	MaxOverriddenIntervalSeconds int
	// JitterPctMin/Max bound the fractional jitter applied to the base
	// interval (§4.6).
	JitterPctMin float64
	JitterPctMax float64
}

const minIntervalSeconds = 60

// Scheduler runs the periodic enqueue loop.
type Scheduler struct {
	dbtx   db.DBTX
	jobs   *syncjob.Store
	creds  *credential.Store
	logger *slog.Logger
	cfg    Config
	rng    *rand.Rand
}

// New builds a Scheduler.
func New(dbtx db.DBTX, jobs *syncjob.Store, creds *credential.Store, logger *slog.Logger, cfg Config) *Scheduler {
	return &Scheduler{
		dbtx:   dbtx,
		jobs:   jobs,
		creds:  creds,
		logger: logger,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// activeConnection is the minimal connection projection the scheduler needs
// to decide whether to enqueue a tick.
type activeConnection struct {
	id               uuid.UUID
	tenantID         uuid.UUID
	providerSlug     string
	intervalSeconds  *int
	nextRunAt        *time.Time
	firstActivatedAt *time.Time
}

// Run blocks, ticking every cfg.TickInterval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	conns, err := s.activeConnections(ctx)
	if err != nil {
		s.logger.Error("scheduler: listing active connections", "error", err)
		return
	}

	now := time.Now()
	for _, c := range conns {
		if c.nextRunAt != nil && c.nextRunAt.After(now) {
			continue
		}
		s.maybeEnqueue(ctx, c, now)
	}
}

func (s *Scheduler) maybeEnqueue(ctx context.Context, c activeConnection, now time.Time) {
	base := s.clampInterval(c.intervalSeconds)
	jitterPct := s.cfg.JitterPctMin + s.rng.Float64()*(s.cfg.JitterPctMax-s.cfg.JitterPctMin)
	jitterSeconds := float64(base) * jitterPct
	intervalWithJitter := time.Duration(float64(base)+jitterSeconds) * time.Second

	_, err := s.jobs.Enqueue(ctx, c.tenantID, c.id, c.providerSlug, syncjob.JobTypeIncremental, 0, now)
	if err == syncjob.ErrJobAlreadyLive {
		// The partial unique index is the race guard (§5(iii)): another
		// tick, or an operator-forced sync, already has one live. Skip
		// this connection for the current tick.
		return
	}
	if err != nil {
		s.logger.Error("scheduler: enqueueing job", "connection_id", c.id, "error", err)
		return
	}

	nextRun := now.Add(intervalWithJitter)
	metadata := map[string]any{
		"sync": map[string]any{
			"interval_seconds":   base,
			"next_run_at":        nextRun,
			"last_jitter_seconds": jitterSeconds,
			"first_activated_at": firstActivatedAt(c, now),
		},
	}
	if err := s.creds.UpdateMetadata(ctx, c.id, metadata); err != nil {
		s.logger.Error("scheduler: updating sync metadata", "connection_id", c.id, "error", err)
	}
}

func firstActivatedAt(c activeConnection, now time.Time) time.Time {
	if c.firstActivatedAt != nil {
		return *c.firstActivatedAt
	}
	return now
}

func (s *Scheduler) clampInterval(override *int) int {
	v := s.cfg.DefaultIntervalSeconds
	if override != nil {
		v = *override
	}
	if v < minIntervalSeconds {
		v = minIntervalSeconds
	}
	if v > s.cfg.MaxOverriddenIntervalSeconds {
		v = s.cfg.MaxOverriddenIntervalSeconds
	}
	return v
}

func (s *Scheduler) activeConnections(ctx context.Context) ([]activeConnection, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT id, tenant_id, provider_slug, metadata
		FROM connections WHERE status = $1`, credential.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("scheduler: querying connections: %w", err)
	}
	defer rows.Close()

	var out []activeConnection
	for rows.Next() {
		var c activeConnection
		var metadataJSON []byte
		if err := rows.Scan(&c.id, &c.tenantID, &c.providerSlug, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scheduler: scanning connection: %w", err)
		}
		applySyncMetadata(&c, metadataJSON)
		out = append(out, c)
	}
	return out, rows.Err()
}
