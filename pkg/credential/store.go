package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/crypto"
	"github.com/akamaotto/relayhub/internal/db"
	"github.com/akamaotto/relayhub/pkg/connector"
)

// ErrNotFound is returned when a connection row does not exist.
var ErrNotFound = errors.New("credential: not found")

// ErrDuplicateConnection is returned when (tenant_id, provider_slug,
// external_id) already exists (§3's uniqueness invariant).
var ErrDuplicateConnection = errors.New("credential: connection already exists")

// Store persists Connection rows and handles envelope encryption on write.
// Decryption is a separate, explicit call (Decrypt) so a Connection can be
// passed around with ciphertext only until plaintext is actually needed
// (§4.4).
type Store struct {
	dbtx     db.DBTX
	envelope *crypto.Envelope
}

// NewStore builds a Store over the given executor and crypto envelope.
func NewStore(dbtx db.DBTX, envelope *crypto.Envelope) *Store {
	return &Store{dbtx: dbtx, envelope: envelope}
}

// Create persists a new connection from a connector's exchange/refresh
// draft, encrypting tokens with AAD bound to (tenant_id, provider_slug,
// external_id).
func (s *Store) Create(ctx context.Context, tenantID uuid.UUID, providerSlug string, draft *connector.ConnectionDraft) (*Connection, error) {
	c := &Connection{
		ID:           uuid.New(),
		TenantID:     tenantID,
		ProviderSlug: providerSlug,
		ExternalID:   draft.ExternalID,
		DisplayName:  draft.DisplayName,
		Status:       StatusActive,
		ExpiresAt:    draft.ExpiresAt,
		Scopes:       draft.Scopes,
		Metadata:     draft.Metadata,
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}

	aad := c.AAD()
	accessCT, err := s.envelope.Encrypt(aad, []byte(draft.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("credential: encrypting access token: %w", err)
	}
	var refreshCT []byte
	if draft.RefreshToken != "" {
		refreshCT, err = s.envelope.Encrypt(aad, []byte(draft.RefreshToken))
		if err != nil {
			return nil, fmt.Errorf("credential: encrypting refresh token: %w", err)
		}
	}

	metadataJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("credential: marshalling metadata: %w", err)
	}

	err = s.dbtx.QueryRow(ctx, `
		INSERT INTO connections (id, tenant_id, provider_slug, external_id, display_name, status,
			access_token_ct, refresh_token_ct, expires_at, scopes, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING created_at, updated_at`,
		c.ID, c.TenantID, c.ProviderSlug, c.ExternalID, c.DisplayName, c.Status,
		accessCT, refreshCT, c.ExpiresAt, c.Scopes, metadataJSON,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return nil, ErrDuplicateConnection
	}
	if err != nil {
		return nil, fmt.Errorf("credential: inserting connection: %w", err)
	}

	c.AccessTokenCT = accessCT
	c.RefreshTokenCT = refreshCT
	return c, nil
}

// Get fetches a connection by ID, scoped to tenant. Tokens remain
// ciphertext; call Decrypt to obtain plaintext.
func (s *Store) Get(ctx context.Context, tenantID, id uuid.UUID) (*Connection, error) {
	row := s.dbtx.QueryRow(ctx, `
		SELECT id, tenant_id, provider_slug, external_id, display_name, status,
			access_token_ct, refresh_token_ct, expires_at, scopes, metadata, created_at, updated_at
		FROM connections WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return scanConnection(row)
}

// List returns connections for a tenant, optionally filtered by provider
// slug, ordered by id ascending (§6: GET /connections).
func (s *Store) List(ctx context.Context, tenantID uuid.UUID, providerSlug string) ([]Connection, error) {
	var rows pgx.Rows
	var err error
	if providerSlug != "" {
		rows, err = s.dbtx.Query(ctx, `
			SELECT id, tenant_id, provider_slug, external_id, display_name, status,
				access_token_ct, refresh_token_ct, expires_at, scopes, metadata, created_at, updated_at
			FROM connections WHERE tenant_id = $1 AND provider_slug = $2 ORDER BY id ASC`, tenantID, providerSlug)
	} else {
		rows, err = s.dbtx.Query(ctx, `
			SELECT id, tenant_id, provider_slug, external_id, display_name, status,
				access_token_ct, refresh_token_ct, expires_at, scopes, metadata, created_at, updated_at
			FROM connections WHERE tenant_id = $1 ORDER BY id ASC`, tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("credential: listing connections: %w", err)
	}
	defer rows.Close()

	var out []Connection
	for rows.Next() {
		c, err := scanConnectionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Decrypt returns the plaintext access and refresh tokens for a connection.
func (s *Store) Decrypt(c *Connection) (accessToken, refreshToken string, err error) {
	aad := c.AAD()

	access, err := s.envelope.Decrypt(aad, c.AccessTokenCT)
	if err != nil {
		return "", "", fmt.Errorf("credential: decrypting access token: %w", err)
	}

	var refresh []byte
	if len(c.RefreshTokenCT) > 0 {
		refresh, err = s.envelope.Decrypt(aad, c.RefreshTokenCT)
		if err != nil {
			return "", "", fmt.Errorf("credential: decrypting refresh token: %w", err)
		}
	}

	return string(access), string(refresh), nil
}

// UpdateTokens re-encrypts and stores refreshed tokens (used by the C7
// refresher).
func (s *Store) UpdateTokens(ctx context.Context, c *Connection, draft *connector.ConnectionDraft) error {
	aad := c.AAD()

	accessCT, err := s.envelope.Encrypt(aad, []byte(draft.AccessToken))
	if err != nil {
		return fmt.Errorf("credential: encrypting access token: %w", err)
	}
	var refreshCT []byte
	if draft.RefreshToken != "" {
		refreshCT, err = s.envelope.Encrypt(aad, []byte(draft.RefreshToken))
		if err != nil {
			return fmt.Errorf("credential: encrypting refresh token: %w", err)
		}
	} else {
		refreshCT = c.RefreshTokenCT
	}

	_, err = s.dbtx.Exec(ctx, `
		UPDATE connections SET access_token_ct = $1, refresh_token_ct = $2, expires_at = $3,
			status = $4, updated_at = now()
		WHERE id = $5`,
		accessCT, refreshCT, draft.ExpiresAt, StatusActive, c.ID,
	)
	if err != nil {
		return fmt.Errorf("credential: updating tokens: %w", err)
	}
	return nil
}

// UpdateStatus transitions a connection's status (e.g. to "error" after a
// refresh failure budget is exhausted, or "revoked" on operator request).
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE connections SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("credential: updating status: %w", err)
	}
	return nil
}

// UpdateMetadata replaces the connection's metadata JSONB column (used to
// persist scheduler state and sync cursor).
func (s *Store) UpdateMetadata(ctx context.Context, id uuid.UUID, metadata map[string]any) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("credential: marshalling metadata: %w", err)
	}
	_, err = s.dbtx.Exec(ctx, `UPDATE connections SET metadata = $1, updated_at = now() WHERE id = $2`, metadataJSON, id)
	if err != nil {
		return fmt.Errorf("credential: updating metadata: %w", err)
	}
	return nil
}

// DueConnection is a decrypted connection eligible for proactive token
// refresh, the projection (internal/app) adapts into a refresher.Candidate
// without credential importing the refresher package.
type DueConnection struct {
	ProviderSlug string
	View         connector.ConnectionView
}

// DueForRefresh returns active connections with a refresh token whose
// access token expires before the given time, decrypted and ready to hand
// to a connector's RefreshToken (C7, §4.5).
func (s *Store) DueForRefresh(ctx context.Context, before time.Time) ([]DueConnection, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT id, tenant_id, provider_slug, external_id, display_name, status,
			access_token_ct, refresh_token_ct, expires_at, scopes, metadata, created_at, updated_at
		FROM connections
		WHERE status = $1 AND expires_at IS NOT NULL AND expires_at < $2 AND refresh_token_ct IS NOT NULL
		ORDER BY expires_at ASC`, StatusActive, before)
	if err != nil {
		return nil, fmt.Errorf("credential: listing connections due for refresh: %w", err)
	}
	defer rows.Close()

	var out []DueConnection
	for rows.Next() {
		c, err := scanConnectionRow(rows)
		if err != nil {
			return nil, err
		}
		access, refresh, err := s.Decrypt(c)
		if err != nil {
			return nil, fmt.Errorf("credential: decrypting connection %s for refresh: %w", c.ID, err)
		}
		out = append(out, DueConnection{
			ProviderSlug: c.ProviderSlug,
			View: connector.ConnectionView{
				ID:           c.ID,
				TenantID:     c.TenantID,
				ExternalID:   c.ExternalID,
				AccessToken:  access,
				RefreshToken: refresh,
				ExpiresAt:    c.ExpiresAt,
				Metadata:     c.Metadata,
			},
		})
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConnection(row pgx.Row) (*Connection, error) {
	c, err := scanConnectionRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

func scanConnectionRow(row scannable) (*Connection, error) {
	var c Connection
	var metadataJSON []byte
	err := row.Scan(&c.ID, &c.TenantID, &c.ProviderSlug, &c.ExternalID, &c.DisplayName, &c.Status,
		&c.AccessTokenCT, &c.RefreshTokenCT, &c.ExpiresAt, &c.Scopes, &metadataJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("credential: scanning connection: %w", err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("credential: unmarshalling metadata: %w", err)
		}
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return &c, nil
}
