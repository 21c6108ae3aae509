// Package refresher implements the token refresher (C7): a background loop
// that proactively refreshes connections whose access token is nearing
// expiry, per §4.5.
package refresher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/credential"
)

// Config controls the refresher's timing and concurrency.
type Config struct {
	// Interval is how often the loop scans for connections to refresh.
	Interval time.Duration
	// Window is how far ahead of expiry a connection becomes eligible.
	Window time.Duration
	// MaxAttempts is the failure budget before a connection is marked
	// status=error (§4.5, §7).
	MaxAttempts int
	// RetryCooldown is the minimum time between attempts on the same
	// connection after a failure.
	RetryCooldown time.Duration
	// Concurrency bounds the worker pool size.
	Concurrency int
}

// Refresher runs the proactive token-refresh loop.
type Refresher struct {
	store    *credential.Store
	registry *connector.Registry
	logger   *slog.Logger
	cfg      Config

	// locks is the per-connection in-memory mutex set (§5: a short-lived
	// in-memory lock keyed by connection id, scoped to this process — not
	// a cross-process coordination mechanism; the database remains the
	// sole source of shared truth per §5(iii)).
	locks   map[uuid.UUID]*sync.Mutex
	locksMu sync.Mutex

	failuresMu sync.Mutex
	failures   map[uuid.UUID]attemptState
}

type attemptState struct {
	count       int
	lastAttempt time.Time
}

// Candidate is the minimal connection projection the refresher needs to
// decide eligibility and drive a refresh.
type Candidate struct {
	connector.ConnectionView
	ProviderSlug string
}

// Store abstracts the connection queries the refresher issues, so it can be
// exercised with a fake in tests without the database.
type Store interface {
	DueForRefresh(ctx context.Context, before time.Time) ([]Candidate, error)
}

// New builds a Refresher.
func New(store *credential.Store, registry *connector.Registry, logger *slog.Logger, cfg Config) *Refresher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Refresher{
		store:    store,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
		locks:    make(map[uuid.UUID]*sync.Mutex),
		failures: make(map[uuid.UUID]attemptState),
	}
}

// Run blocks, ticking every cfg.Interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context, store Store) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, store)
		}
	}
}

func (r *Refresher) tick(ctx context.Context, store Store) {
	due, err := store.DueForRefresh(ctx, time.Now().Add(r.cfg.Window))
	if err != nil {
		r.logger.Error("refresher: listing due connections", "error", err)
		return
	}

	sem := make(chan struct{}, r.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, c := range due {
		if r.inCooldown(c.ID) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(c Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			r.refreshOne(ctx, c)
		}(c)
	}
	wg.Wait()
}

func (r *Refresher) inCooldown(id uuid.UUID) bool {
	r.failuresMu.Lock()
	defer r.failuresMu.Unlock()
	st, ok := r.failures[id]
	if !ok {
		return false
	}
	return time.Since(st.lastAttempt) < r.cfg.RetryCooldown
}

func (r *Refresher) lockFor(id uuid.UUID) *sync.Mutex {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()
	m, ok := r.locks[id]
	if !ok {
		m = &sync.Mutex{}
		r.locks[id] = m
	}
	return m
}

func (r *Refresher) refreshOne(ctx context.Context, c Candidate) {
	lock := r.lockFor(c.ID)
	if !lock.TryLock() {
		// Another refresh for this connection is already in flight.
		return
	}
	defer lock.Unlock()

	conn, err := r.registry.MustGet(c.ProviderSlug)
	if err != nil {
		r.logger.Warn("refresher: unknown provider", "provider_slug", c.ProviderSlug, "connection_id", c.ID)
		return
	}

	draft, err := conn.RefreshToken(ctx, c.ConnectionView)
	if errors.Is(err, connector.ErrNotSupported) {
		return
	}
	if err != nil {
		r.recordFailure(ctx, c.ID, err)
		return
	}

	if err := r.store.UpdateTokens(ctx, &credential.Connection{
		ID:           c.ID,
		TenantID:     c.TenantID,
		ProviderSlug: c.ProviderSlug,
		ExternalID:   c.ExternalID,
	}, draft); err != nil {
		r.logger.Error("refresher: persisting refreshed tokens", "connection_id", c.ID, "error", err)
		return
	}

	r.clearFailures(c.ID)
}

func (r *Refresher) recordFailure(ctx context.Context, id uuid.UUID, cause error) {
	r.failuresMu.Lock()
	st := r.failures[id]
	st.count++
	st.lastAttempt = time.Now()
	r.failures[id] = st
	count := st.count
	r.failuresMu.Unlock()

	ce := connector.AsConnectorError(cause)
	r.logger.Warn("refresher: refresh attempt failed", "connection_id", id, "attempt", count, "error_type", ce.Type, "error", cause)

	if ce.Type == connector.ErrorTypeAuthentication || count >= r.cfg.MaxAttempts {
		if err := r.store.UpdateStatus(ctx, id, credential.StatusError); err != nil {
			r.logger.Error("refresher: marking connection error", "connection_id", id, "error", err)
			return
		}
		r.clearFailures(id)
	}
}

func (r *Refresher) clearFailures(id uuid.UUID) {
	r.failuresMu.Lock()
	delete(r.failures, id)
	r.failuresMu.Unlock()
}
