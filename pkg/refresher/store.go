package refresher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akamaotto/relayhub/internal/db"
	"github.com/akamaotto/relayhub/pkg/connector"
	"github.com/akamaotto/relayhub/pkg/credential"
)

// PostgresStore is the production Store backing DueForRefresh queries.
type PostgresStore struct {
	dbtx  db.DBTX
	creds *credential.Store
}

// NewPostgresStore builds a PostgresStore.
func NewPostgresStore(dbtx db.DBTX, creds *credential.Store) *PostgresStore {
	return &PostgresStore{dbtx: dbtx, creds: creds}
}

// DueForRefresh returns active connections with a refresh token whose
// expires_at falls before the given cutoff (i.e. within the refresh
// window), decrypted and ready to hand to a connector's RefreshToken.
func (s *PostgresStore) DueForRefresh(ctx context.Context, before time.Time) ([]Candidate, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT id, tenant_id, provider_slug, external_id, access_token_ct, refresh_token_ct, expires_at, metadata
		FROM connections
		WHERE status = $1 AND refresh_token_ct IS NOT NULL AND expires_at IS NOT NULL AND expires_at < $2`,
		credential.StatusActive, before,
	)
	if err != nil {
		return nil, fmt.Errorf("refresher: querying due connections: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c credential.Connection
		var metadataJSON []byte
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ProviderSlug, &c.ExternalID, &c.AccessTokenCT, &c.RefreshTokenCT, &c.ExpiresAt, &metadataJSON); err != nil {
			return nil, fmt.Errorf("refresher: scanning connection: %w", err)
		}
		if len(metadataJSON) > 0 {
			_ = json.Unmarshal(metadataJSON, &c.Metadata)
		}

		access, refresh, err := s.creds.Decrypt(&c)
		if err != nil {
			// Skip connections we can't decrypt rather than aborting the
			// whole scan; the next tick will retry.
			continue
		}

		out = append(out, Candidate{
			ProviderSlug: c.ProviderSlug,
			ConnectionView: connector.ConnectionView{
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
