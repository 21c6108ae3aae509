package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
	"github.com/akamaotto/relayhub/pkg/cursor"
)

// DefaultLimit and MaxLimit bound the List endpoint's page size (§6).
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Store persists signals with dedupe enforced by a database unique index
// on (tenant_id, provider_slug, dedupe_key), never in application memory
// (§5(iv)).
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Create inserts a signal. A duplicate (tenant_id, provider_slug,
// dedupe_key) is a silent no-op (ON CONFLICT DO NOTHING): at-least-once
// delivery from a connector's Sync/HandleWebhook is expected, and dedupe
// is the intended absorption point, not an error condition.
func (s *Store) Create(ctx context.Context, sig *Signal) (bool, error) {
	sig.ID = uuid.New()

	payloadJSON, err := json.Marshal(sig.Payload)
	if err != nil {
		return false, fmt.Errorf("signal: marshalling payload: %w", err)
	}

	var insertedID uuid.UUID
	err = s.dbtx.QueryRow(ctx, `
		INSERT INTO signals (id, tenant_id, provider_slug, connection_id, kind, occurred_at, payload, dedupe_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (tenant_id, provider_slug, dedupe_key) DO NOTHING
		RETURNING id`,
		sig.ID, sig.TenantID, sig.ProviderSlug, sig.ConnectionID, sig.Kind, sig.OccurredAt, payloadJSON, sig.DedupeKey,
	).Scan(&insertedID)
	if errors.Is(err, pgx.ErrNoRows) {
		// The ON CONFLICT branch fired — a genuine duplicate, not a
		// failure.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("signal: inserting: %w", err)
	}
	return true, nil
}

// ListParams filters a signal listing.
type ListParams struct {
	TenantID       uuid.UUID
	ProviderSlug   string
	ConnectionID   *uuid.UUID
	Kind           Kind
	OccurredAfter  *time.Time
	OccurredBefore *time.Time
	Cursor         string
	Limit          int
}

// ListResult is a page of signals plus the cursor for the next page, if
// any.
type ListResult struct {
	Signals    []Signal
	NextCursor string
}

// List returns a cursor-paginated, tenant-scoped page of signals ordered
// by occurred_at descending, id descending (for deterministic tie-break
// ordering). It fetches limit+1 rows to detect whether a further page
// exists without a separate count query (§4.9).
func (s *Store) List(ctx context.Context, p ListParams) (*ListResult, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	query := `
		SELECT id, tenant_id, provider_slug, connection_id, kind, occurred_at, payload, dedupe_key, created_at
		FROM signals WHERE tenant_id = $1`
	args := []any{p.TenantID}
	argN := 2

	if p.ProviderSlug != "" {
		query += fmt.Sprintf(" AND provider_slug = $%d", argN)
		args = append(args, p.ProviderSlug)
		argN++
	}
	if p.ConnectionID != nil {
		query += fmt.Sprintf(" AND connection_id = $%d", argN)
		args = append(args, *p.ConnectionID)
		argN++
	}
	if p.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argN)
		args = append(args, p.Kind)
		argN++
	}
	if p.OccurredAfter != nil {
		query += fmt.Sprintf(" AND occurred_at > $%d", argN)
		args = append(args, *p.OccurredAfter)
		argN++
	}
	if p.OccurredBefore != nil {
		query += fmt.Sprintf(" AND occurred_at < $%d", argN)
		args = append(args, *p.OccurredBefore)
		argN++
	}

	if p.Cursor != "" {
		data, err := cursor.Decode(p.Cursor)
		if err != nil {
			return nil, err
		}
		query += fmt.Sprintf(" AND (occurred_at, id) < ($%d, $%d)", argN, argN+1)
		args = append(args, data.OccurredAt, data.ID)
		argN += 2
	}

	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT $%d", argN)
	args = append(args, limit+1)

	rows, err := s.dbtx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("signal: listing: %w", err)
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var sig Signal
		var payloadJSON []byte
		if err := rows.Scan(&sig.ID, &sig.TenantID, &sig.ProviderSlug, &sig.ConnectionID, &sig.Kind,
			&sig.OccurredAt, &payloadJSON, &sig.DedupeKey, &sig.CreatedAt); err != nil {
			return nil, fmt.Errorf("signal: scanning: %w", err)
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &sig.Payload); err != nil {
				return nil, fmt.Errorf("signal: unmarshalling payload: %w", err)
			}
		}
		out = append(out, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{}
	if len(out) > limit {
		last := out[limit-1]
		next, err := cursor.Encode(last.OccurredAt, last.ID)
		if err != nil {
			return nil, err
		}
		result.NextCursor = next
		out = out[:limit]
	}
	result.Signals = out
	return result, nil
}
