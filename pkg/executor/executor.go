// Package executor implements the executor worker pool (C10): it claims
// queued sync jobs, runs the resolved connector's Sync, persists new
// signals and the advanced cursor, and classifies failures into retry or
// terminal transitions, per §4.7.
package executor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/credential"
	"github.com/akamaotto/relayhub/pkg/signal"
	"github.com/akamaotto/relayhub/pkg/syncjob"
)

// Config controls claim batching, concurrency, and retry backoff.
type Config struct {
	PollInterval time.Duration
	ClaimBatch   int
	Concurrency  int
	MaxAttempts  int
	// BaseBackoff is the unit for exponential backoff: attempt N waits
	// BaseBackoff * 2^(N-1), per §4.7.
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Executor runs the claim/run/persist loop.
type Executor struct {
	jobs       *syncjob.Store
	creds      *credential.Store
	registry   *connector.Registry
	signals    *signal.Store
	normalizer *signal.Normalizer
	logger     *slog.Logger
	cfg        Config
}

// New builds an Executor.
func New(jobs *syncjob.Store, creds *credential.Store, registry *connector.Registry, signals *signal.Store, normalizer *signal.Normalizer, logger *slog.Logger, cfg Config) *Executor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.ClaimBatch <= 0 {
		cfg.ClaimBatch = 16
	}
	return &Executor{jobs: jobs, creds: creds, registry: registry, signals: signals, normalizer: normalizer, logger: logger, cfg: cfg}
}

// Run blocks, polling for claimable jobs every cfg.PollInterval until ctx
// is cancelled. Between polls it lets in-flight jobs drain before checking
// ctx again, giving a graceful shutdown boundary at job edges (§5).
func (e *Executor) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.drainOnce(ctx)
		}
	}
}

func (e *Executor) drainOnce(ctx context.Context) {
	jobs, err := e.jobs.Claim(ctx, e.cfg.ClaimBatch)
	if err != nil {
		e.logger.Error("executor: claiming jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(j syncjob.Job) {
			defer wg.Done()
			defer func() { <-sem }()
			e.runJob(ctx, j)
		}(j)
	}
	wg.Wait()
}

func (e *Executor) runJob(ctx context.Context, job syncjob.Job) {
	logger := e.logger.With("job_id", job.ID, "connection_id", job.ConnectionID, "provider_slug", job.ProviderSlug)

	providerConn, err := e.registry.MustGet(job.ProviderSlug)
	if err != nil {
		e.fail(ctx, job, logger, err, false)
		return
	}

	// A webhook job with no resolved connection (no X-Connection-Id on the
	// inbound request, §4.8) has no credentials to decrypt; the connector's
	// HandleWebhook is invoked with a bare, tokenless view.
	if job.JobType == syncjob.JobTypeWebhook && job.ConnectionID == nil {
		signals, err := providerConn.HandleWebhook(ctx, buildWebhookParams(connector.ConnectionView{TenantID: job.TenantID}, job))
		if err != nil {
			e.fail(ctx, job, logger, err, true)
			return
		}
		e.persistSignals(ctx, job, logger, signals)
		if err := e.jobs.MarkSucceeded(ctx, job.ID, nil); err != nil {
			logger.Error("executor: marking job succeeded", "error", err)
		}
		return
	}

	conn, err := e.creds.Get(ctx, job.TenantID, *job.ConnectionID)
	if err != nil {
		e.fail(ctx, job, logger, err, false)
		return
	}

	access, refresh, err := e.creds.Decrypt(conn)
	if err != nil {
		e.fail(ctx, job, logger, err, false)
		return
	}

	view := connectorView(conn, access, refresh)

	var signals []connector.RawSignal
	var nextCursor map[string]any

	if job.JobType == syncjob.JobTypeWebhook {
		signals, err = providerConn.HandleWebhook(ctx, buildWebhookParams(view, job))
		if err != nil {
			e.fail(ctx, job, logger, err, true)
			return
		}
		// Webhook jobs don't advance a pull cursor; leave the connection's
		// metadata untouched.
		nextCursor = nil
	} else {
		result, err := providerConn.Sync(ctx, buildSyncParams(view, job))
		if err != nil {
			e.fail(ctx, job, logger, err, true)
			return
		}
		signals = result.Signals
		nextCursor = result.NextCursor
	}

	e.persistSignals(ctx, job, logger, signals)

	if err := e.jobs.MarkSucceeded(ctx, job.ID, nextCursor); err != nil {
		logger.Error("executor: marking job succeeded", "error", err)
		return
	}
	if job.JobType != syncjob.JobTypeWebhook {
		if err := e.creds.UpdateMetadata(ctx, *job.ConnectionID, mergeCursor(conn.Metadata, nextCursor)); err != nil {
			logger.Error("executor: persisting cursor", "error", err)
		}
	}
}

func (e *Executor) persistSignals(ctx context.Context, job syncjob.Job, logger *slog.Logger, signals []connector.RawSignal) {
	for _, raw := range signals {
		sig, ok := e.normalizer.Normalize(job.TenantID, job.ConnectionID, job.ProviderSlug, raw)
		if !ok {
			continue
		}
		if _, err := e.signals.Create(ctx, &sig); err != nil {
			logger.Error("executor: persisting signal", "dedupe_key", raw.DedupeKey, "error", err)
		}
	}
}

// fail classifies the failure and either requeues with backoff or
// transitions the job to dead, per §4.7 and §7. connectorCall indicates
// the failure came from invoking the connector (so connector-error
// classification applies) rather than from our own plumbing (credential
// lookup, decrypt, registry resolution), which are always retried with a
// generic classification since they're typically transient infra issues.
func (e *Executor) fail(ctx context.Context, job syncjob.Job, logger *slog.Logger, cause error, connectorCall bool) {
	attempts := job.Attempts + 1
	backoff := e.backoffFor(attempts)

	if connectorCall {
		ce := connector.AsConnectorError(cause)
		logger.Warn("executor: sync failed", "attempt", attempts, "error_type", ce.Type, "error", cause)

		if ce.Type == connector.ErrorTypeAuthentication && job.ConnectionID != nil {
			if err := e.creds.UpdateStatus(ctx, *job.ConnectionID, credential.StatusError); err != nil {
				logger.Error("executor: marking connection error", "error", err)
			}
		}

		if !ce.IsRetryable() {
			if err := e.jobs.MarkFailed(ctx, job.ID, cause.Error(), attempts, attempts, backoff); err != nil {
				logger.Error("executor: marking job dead (non-retryable)", "error", err)
			}
			return
		}
	} else {
		logger.Error("executor: infrastructure failure", "attempt", attempts, "error", cause)
	}

	if err := e.jobs.MarkFailed(ctx, job.ID, cause.Error(), attempts, e.cfg.MaxAttempts, backoff); err != nil {
		logger.Error("executor: recording failure", "error", err)
	}
}

func (e *Executor) backoffFor(attempt int) time.Duration {
	d := time.Duration(float64(e.cfg.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if e.cfg.MaxBackoff > 0 && d > e.cfg.MaxBackoff {
		return e.cfg.MaxBackoff
	}
	return d
}

func connectorView(c *credential.Connection, access, refresh string) connector.ConnectionView {
	return connector.ConnectionView{
		ID:           c.ID,
		TenantID:     c.TenantID,
		ExternalID:   c.ExternalID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    c.ExpiresAt,
		Metadata:     c.Metadata,
	}
}

func buildSyncParams(view connector.ConnectionView, job syncjob.Job) connector.SyncParams {
	cursor := job.Cursor
	if cursor == nil {
		cursor = map[string]any{}
	}
	return connector.SyncParams{
		Connection: view,
		Cursor:     cursor,
		Now:        time.Now(),
	}
}

// buildWebhookParams reconstructs connector.WebhookParams from the
// envelope a webhook job's Cursor carries (§4.8: "invoke handle_webhook,
// passing payload and headers reconstructed from cursor").
func buildWebhookParams(view connector.ConnectionView, job syncjob.Job) connector.WebhookParams {
	payload, _ := job.Cursor["webhook_payload"].(map[string]any)
	authHeader, _ := job.Cursor["auth_header"].(string)
	return connector.WebhookParams{
		Payload:    payload,
		TenantID:   view.TenantID,
		AuthHeader: authHeader,
	}
}

func mergeCursor(metadata map[string]any, nextCursor map[string]any) map[string]any {
	if metadata == nil {
		metadata = map[string]any{}
	}
	sync, _ := metadata["sync"].(map[string]any)
	if sync == nil {
		sync = map[string]any{}
	}
	sync["cursor"] = nextCursor
	metadata["sync"] = sync
	return metadata
}
