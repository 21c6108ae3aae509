// Package syncjob implements the sync job queue (C8): the persisted work
// items the scheduler (C9) enqueues and the executor (C10) claims and
// runs, per §3 and §4.6.
package syncjob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// JobType distinguishes a scheduler-driven periodic sync, an operator- or
// backfill-triggered one-off sync, and a verified inbound webhook deferred
// for asynchronous processing; the at-most-one-live invariant (§3) applies
// to incremental jobs only.
type JobType string

const (
	JobTypeIncremental JobType = "incremental"
	JobTypeBackfill    JobType = "backfill"
	JobTypeWebhook     JobType = "webhook"
)

// Status is a sync job's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusDead      Status = "dead"
)

// Job is the §3 Sync job entity. For JobTypeWebhook jobs, Cursor carries
// the verified webhook envelope ({webhook_headers, webhook_payload,
// received_at, verification_method, auth_header}) rather than a provider
// pull cursor —
// §4.8's ingress workflow enqueues the job with exactly that shape.
// ConnectionID is nil for a webhook job whose inbound request carried no
// X-Connection-Id — §4.8's ingress workflow resolves a connection only
// when that header is present.
type Job struct {
	ID           uuid.UUID      `json:"id"`
	TenantID     uuid.UUID      `json:"tenant_id"`
	ProviderSlug string         `json:"provider_slug"`
	ConnectionID *uuid.UUID     `json:"connection_id,omitempty"`
	JobType      JobType        `json:"job_type"`
	Status       Status         `json:"status"`
	Priority     int            `json:"priority"`
	Attempts     int            `json:"attempts"`
	ScheduledAt  time.Time      `json:"scheduled_at"`
	RetryAfter   *time.Time     `json:"retry_after,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	FinishedAt   *time.Time     `json:"finished_at,omitempty"`
	Cursor       map[string]any `json:"cursor,omitempty"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// ErrNotFound is returned when a job id does not exist.
var ErrNotFound = errors.New("syncjob: not found")

// ErrJobAlreadyLive is returned when Enqueue would violate the at-most-one
// live incremental job per connection invariant (enforced by a partial
// unique index; see migrations).
var ErrJobAlreadyLive = errors.New("syncjob: an incremental job is already queued or running for this connection")

// Store persists sync jobs.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Enqueue inserts a new queued job. For JobTypeIncremental, a concurrent
// insert attempt for the same connection while one is already
// queued/running fails with ErrJobAlreadyLive — the uniqueness is enforced
// at the database via a partial unique index (§5(iii): no in-memory
// coordination), this call simply surfaces that conflict.
func (s *Store) Enqueue(ctx context.Context, tenantID, connectionID uuid.UUID, providerSlug string, jobType JobType, priority int, scheduledAt time.Time) (*Job, error) {
	j := &Job{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ProviderSlug: providerSlug,
		ConnectionID: &connectionID,
		JobType:      jobType,
		Status:       StatusQueued,
		Priority:     priority,
		ScheduledAt:  scheduledAt,
	}

	err := s.dbtx.QueryRow(ctx, `
		INSERT INTO sync_jobs (id, tenant_id, provider_slug, connection_id, job_type, status, priority, attempts, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, now(), now())
		RETURNING created_at, updated_at`,
		j.ID, j.TenantID, j.ProviderSlug, j.ConnectionID, j.JobType, j.Status, j.Priority, j.ScheduledAt,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return nil, ErrJobAlreadyLive
	}
	if err != nil {
		return nil, fmt.Errorf("syncjob: inserting job: %w", err)
	}
	return j, nil
}

// EnqueueWebhook inserts a JobTypeWebhook job, storing the already-verified
// webhook envelope in Cursor for the executor to pass to the connector's
// HandleWebhook (§4.8). connectionID is nil when the inbound request
// carried no X-Connection-Id. Unlike Enqueue, a connection may have any
// number of queued/running webhook jobs concurrently with its incremental
// job — the at-most-one-live invariant applies only to job_type =
// incremental.
func (s *Store) EnqueueWebhook(ctx context.Context, tenantID uuid.UUID, connectionID *uuid.UUID, providerSlug string, envelope map[string]any) (*Job, error) {
	j := &Job{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ProviderSlug: providerSlug,
		ConnectionID: connectionID,
		JobType:      JobTypeWebhook,
		Status:       StatusQueued,
		ScheduledAt:  time.Now(),
		Cursor:       envelope,
	}

	cursorJSON, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("syncjob: marshalling webhook envelope: %w", err)
	}

	err = s.dbtx.QueryRow(ctx, `
		INSERT INTO sync_jobs (id, tenant_id, provider_slug, connection_id, job_type, status, priority, attempts, scheduled_at, cursor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8, now(), now())
		RETURNING created_at, updated_at`,
		j.ID, j.TenantID, j.ProviderSlug, j.ConnectionID, j.JobType, j.Status, j.ScheduledAt, cursorJSON,
	).Scan(&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("syncjob: inserting webhook job: %w", err)
	}
	return j, nil
}

// Claim atomically selects and marks running up to limit queued jobs whose
// scheduled_at has arrived and whose retry_after, if set, has elapsed, ordered by
// priority descending then scheduled_at ascending, skipping rows already
// locked by another claimant (§4.7: "row-locking transaction" claim step).
func (s *Store) Claim(ctx context.Context, limit int) ([]Job, error) {
	rows, err := s.dbtx.Query(ctx, `
		UPDATE sync_jobs SET status = $1, started_at = now(), updated_at = now()
		WHERE id IN (
			SELECT id FROM sync_jobs
			WHERE status = $2
				AND scheduled_at <= now()
				AND (retry_after IS NULL OR retry_after <= now())
			ORDER BY priority DESC, scheduled_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, tenant_id, provider_slug, connection_id, job_type, status, priority, attempts,
			scheduled_at, retry_after, started_at, finished_at, cursor, error, created_at, updated_at`,
		StatusRunning, StatusQueued, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("syncjob: claiming jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// MarkSucceeded transitions a job to succeeded and persists its final
// cursor.
func (s *Store) MarkSucceeded(ctx context.Context, id uuid.UUID, cursor map[string]any) error {
	cursorJSON, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("syncjob: marshalling cursor: %w", err)
	}
	_, err = s.dbtx.Exec(ctx, `
		UPDATE sync_jobs SET status = $1, cursor = $2, finished_at = now(), updated_at = now()
		WHERE id = $3`, StatusSucceeded, cursorJSON, id)
	if err != nil {
		return fmt.Errorf("syncjob: marking succeeded: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt. If attempts (after increment) has
// reached maxAttempts, the job transitions to dead terminal status;
// otherwise it is requeued with an exponential backoff retry_after
// (§4.7).
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause string, attempts, maxAttempts int, backoff time.Duration) error {
	if attempts >= maxAttempts {
		_, err := s.dbtx.Exec(ctx, `
			UPDATE sync_jobs SET status = $1, attempts = $2, error = $3, finished_at = now(), updated_at = now()
			WHERE id = $4`, StatusDead, attempts, cause, id)
		if err != nil {
			return fmt.Errorf("syncjob: marking dead: %w", err)
		}
		return nil
	}

	retryAfter := time.Now().Add(backoff)
	_, err := s.dbtx.Exec(ctx, `
		UPDATE sync_jobs SET status = $1, attempts = $2, error = $3, retry_after = $4, updated_at = now()
		WHERE id = $5`, StatusQueued, attempts, cause, retryAfter, id)
	if err != nil {
		return fmt.Errorf("syncjob: requeuing after failure: %w", err)
	}
	return nil
}

// Get fetches a job by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := s.dbtx.QueryRow(ctx, `
		SELECT id, tenant_id, provider_slug, connection_id, job_type, status, priority, attempts,
			scheduled_at, retry_after, started_at, finished_at, cursor, error, created_at, updated_at
		FROM sync_jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return j, err
}

// List returns jobs, optionally filtered by connection id and status, for
// operator visibility (§6: GET /sync-jobs).
func (s *Store) List(ctx context.Context, connectionID *uuid.UUID, status *Status) ([]Job, error) {
	query := `
		SELECT id, tenant_id, provider_slug, connection_id, job_type, status, priority, attempts,
			scheduled_at, retry_after, started_at, finished_at, cursor, error, created_at, updated_at
		FROM sync_jobs WHERE 1=1`
	var args []any
	argN := 1
	if connectionID != nil {
		query += fmt.Sprintf(" AND connection_id = $%d", argN)
		args = append(args, *connectionID)
		argN++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argN)
		args = append(args, *status)
		argN++
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("syncjob: listing jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// CancelQueued cancels any still-queued jobs for a connection (used when an
// operator revokes a connection; §6's DELETE /connections/{id}).
func (s *Store) CancelQueued(ctx context.Context, connectionID uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `
		UPDATE sync_jobs SET status = $1, error = 'connection revoked', finished_at = now(), updated_at = now()
		WHERE connection_id = $2 AND status = $3`, StatusDead, connectionID, StatusQueued)
	if err != nil {
		return fmt.Errorf("syncjob: cancelling queued jobs: %w", err)
	}
	return nil
}

// HasLiveIncremental reports whether a connection already has a
// queued/running incremental job (used by the operator-forced sync
// endpoint to short-circuit with 400 VALIDATION_FAILED before attempting
// Enqueue).
func (s *Store) HasLiveIncremental(ctx context.Context, connectionID uuid.UUID) (bool, error) {
	var exists bool
	err := s.dbtx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM sync_jobs
			WHERE connection_id = $1 AND job_type = $2 AND status IN ($3, $4)
		)`, connectionID, JobTypeIncremental, StatusQueued, StatusRunning).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("syncjob: checking live incremental: %w", err)
	}
	return exists, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*Job, error) {
	var j Job
	var cursorJSON []byte
	err := row.Scan(&j.ID, &j.TenantID, &j.ProviderSlug, &j.ConnectionID, &j.JobType, &j.Status, &j.Priority,
		&j.Attempts, &j.ScheduledAt, &j.RetryAfter, &j.StartedAt, &j.FinishedAt, &cursorJSON, &j.Error,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("syncjob: scanning job: %w", err)
	}
	if len(cursorJSON) > 0 {
		if err := json.Unmarshal(cursorJSON, &j.Cursor); err != nil {
			return nil, fmt.Errorf("syncjob: unmarshalling cursor: %w", err)
		}
	}
	return &j, nil
}
