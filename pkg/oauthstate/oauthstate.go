// Package oauthstate implements the OAuth state store (C5): short-lived,
// single-use CSRF state tokens for the authorize/callback flow (§4.3).
package oauthstate

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// ErrNotFound is returned when a (provider_slug, state) pair has no
// matching, non-expired row — either it never existed, was already
// consumed, or has expired.
var ErrNotFound = errors.New("oauthstate: missing, expired, or invalid state")

// TTL is the state record lifetime from issuance (§4.3: 15 minutes).
const TTL = 15 * time.Minute

// State is the §3 OAuth state entity.
type State struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	ProviderSlug string
	Value        string
	CodeVerifier string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Store persists OAuth state rows.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// GenerateState returns a 32-byte random, URL-safe base64 state value (43
// chars, no padding), per §4.3(b).
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("oauthstate: generating random state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create inserts a new state record with a 15-minute expiry.
func (s *Store) Create(ctx context.Context, tenantID uuid.UUID, providerSlug, value, codeVerifier string) (*State, error) {
	st := &State{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ProviderSlug: providerSlug,
		Value:        value,
		CodeVerifier: codeVerifier,
		ExpiresAt:    time.Now().Add(TTL),
	}

	err := s.dbtx.QueryRow(ctx, `
		INSERT INTO oauth_states (id, tenant_id, provider_slug, state, code_verifier, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING created_at, updated_at`,
		st.ID, st.TenantID, st.ProviderSlug, st.Value, st.CodeVerifier, st.ExpiresAt,
	).Scan(&st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("oauthstate: inserting state: %w", err)
	}
	return st, nil
}

// Delete removes a state row outright — used to roll back a Create when a
// later step of authorize-start fails (§4.3(f)).
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `DELETE FROM oauth_states WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("oauthstate: deleting state: %w", err)
	}
	return nil
}

// Consume atomically finds and deletes a non-expired state row matching
// (provider_slug, state), returning ErrNotFound if none matches. This is a
// single conditional DELETE ... RETURNING: under concurrent callbacks with
// the same state, exactly one caller observes a non-error result (§8's
// State single-use property).
func (s *Store) Consume(ctx context.Context, providerSlug, value string) (*State, error) {
	var st State
	err := s.dbtx.QueryRow(ctx, `
		DELETE FROM oauth_states
		WHERE provider_slug = $1 AND state = $2 AND expires_at > now()
		RETURNING id, tenant_id, provider_slug, state, code_verifier, expires_at, created_at, updated_at`,
		providerSlug, value,
	).Scan(&st.ID, &st.TenantID, &st.ProviderSlug, &st.Value, &st.CodeVerifier, &st.ExpiresAt, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("oauthstate: consuming state: %w", err)
	}
	return &st, nil
}

// GCExpired deletes every state row past its expiry, returning the count
// removed. Intended to run periodically from the worker mode alongside the
// scheduler and refresher loops.
func (s *Store) GCExpired(ctx context.Context) (int64, error) {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM oauth_states WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("oauthstate: gc: %w", err)
	}
	return tag.RowsAffected(), nil
}
