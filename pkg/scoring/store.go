package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// ErrNotFound is returned when a grounded signal id does not exist.
var ErrNotFound = errors.New("scoring: not found")

// ErrInvalidTransition is returned when a status update would violate the
// draft→recommended→actioned state machine (§4.10).
var ErrInvalidTransition = errors.New("scoring: invalid status transition")

// Store persists grounded signals.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Upsert inserts a new draft grounded signal, or — if idempotencyKey
// already has a row for this tenant — refreshes its scores and evidence in
// place without touching status, so re-evaluation of the same cluster never
// duplicates a row nor regresses one already promoted past draft (§4.10).
func (s *Store) Upsert(ctx context.Context, gs GroundedSignal) (*GroundedSignal, error) {
	if gs.ID == uuid.Nil {
		gs.ID = uuid.New()
	}

	evidenceJSON, err := json.Marshal(gs.Evidence)
	if err != nil {
		return nil, fmt.Errorf("scoring: marshalling evidence: %w", err)
	}
	if gs.Status == "" {
		gs.Status = StatusDraft
	}

	row := s.dbtx.QueryRow(ctx, `
		INSERT INTO grounded_signals (
			id, signal_id, tenant_id, idempotency_key,
			score_relevance, score_novelty, score_timeliness, score_impact, score_alignment, score_credibility, total_score,
			status, evidence, recommendation, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (tenant_id, idempotency_key) WHERE idempotency_key IS NOT NULL DO UPDATE SET
			score_relevance = EXCLUDED.score_relevance,
			score_novelty = EXCLUDED.score_novelty,
			score_timeliness = EXCLUDED.score_timeliness,
			score_impact = EXCLUDED.score_impact,
			score_alignment = EXCLUDED.score_alignment,
			score_credibility = EXCLUDED.score_credibility,
			total_score = EXCLUDED.total_score,
			evidence = EXCLUDED.evidence,
			recommendation = EXCLUDED.recommendation,
			updated_at = now()
		RETURNING id, status, created_at, updated_at`,
		gs.ID, gs.SignalID, gs.TenantID, nullableString(gs.IdempotencyKey),
		gs.Scores.Relevance, gs.Scores.Novelty, gs.Scores.Timeliness, gs.Scores.Impact, gs.Scores.Alignment, gs.Scores.Credibility, gs.Scores.Total,
		gs.Status, evidenceJSON, nullableString(gs.Recommendation),
	)
	var status string
	if err := row.Scan(&gs.ID, &status, &gs.CreatedAt, &gs.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scoring: upserting grounded signal: %w", err)
	}
	gs.Status = Status(status)
	return &gs, nil
}

// Get fetches a grounded signal by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*GroundedSignal, error) {
	row := s.dbtx.QueryRow(ctx, `
		SELECT id, signal_id, tenant_id, idempotency_key,
			score_relevance, score_novelty, score_timeliness, score_impact, score_alignment, score_credibility, total_score,
			status, evidence, recommendation, created_at, updated_at
		FROM grounded_signals WHERE id = $1`, id)
	gs, err := scanGroundedSignal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return gs, err
}

// List returns grounded signals for a tenant, optionally filtered by
// status, newest first (§6: GET /grounded-signals).
func (s *Store) List(ctx context.Context, tenantID uuid.UUID, status *Status) ([]GroundedSignal, error) {
	query := `
		SELECT id, signal_id, tenant_id, idempotency_key,
			score_relevance, score_novelty, score_timeliness, score_impact, score_alignment, score_credibility, total_score,
			status, evidence, recommendation, created_at, updated_at
		FROM grounded_signals WHERE tenant_id = $1`
	args := []any{tenantID}
	if status != nil {
		query += " AND status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("scoring: listing grounded signals: %w", err)
	}
	defer rows.Close()

	var out []GroundedSignal
	for rows.Next() {
		gs, err := scanGroundedSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gs)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a grounded signal's status, rejecting any move
// that is not a legal forward edge of the state machine (§4.10).
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to Status) (*GroundedSignal, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, ErrInvalidTransition
	}

	_, err = s.dbtx.Exec(ctx, `
		UPDATE grounded_signals SET status = $1, updated_at = now() WHERE id = $2`, to, id)
	if err != nil {
		return nil, fmt.Errorf("scoring: updating status: %w", err)
	}
	current.Status = to
	return current, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanGroundedSignal(row scannable) (*GroundedSignal, error) {
	var gs GroundedSignal
	var idempotencyKey *string
	var status string
	var evidenceJSON []byte
	var recommendation *string

	err := row.Scan(&gs.ID, &gs.SignalID, &gs.TenantID, &idempotencyKey,
		&gs.Scores.Relevance, &gs.Scores.Novelty, &gs.Scores.Timeliness, &gs.Scores.Impact, &gs.Scores.Alignment, &gs.Scores.Credibility, &gs.Scores.Total,
		&status, &evidenceJSON, &recommendation, &gs.CreatedAt, &gs.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("scoring: scanning grounded signal: %w", err)
	}

	gs.Status = Status(status)
	if idempotencyKey != nil {
		gs.IdempotencyKey = *idempotencyKey
	}
	if recommendation != nil {
		gs.Recommendation = *recommendation
	}
	if len(evidenceJSON) > 0 {
		if err := json.Unmarshal(evidenceJSON, &gs.Evidence); err != nil {
			return nil, fmt.Errorf("scoring: unmarshalling evidence: %w", err)
		}
	}
	return &gs, nil
}
