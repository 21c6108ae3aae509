package credential

import (
	"context"
	"fmt"

	"github.com/akamaotto/relayhub/internal/crypto"
	"github.com/akamaotto/relayhub/internal/db"
)

// ReencryptLegacyPlaintext is the one-shot migration job: it scans every
// connection row and re-encrypts any access/refresh token still stored as
// legacy plaintext (no envelope version prefix), per §4.4 and §9. It
// returns the number of connections updated.
func ReencryptLegacyPlaintext(ctx context.Context, dbtx db.DBTX, envelope *crypto.Envelope) (int, error) {
	rows, err := dbtx.Query(ctx, `
		SELECT id, tenant_id, provider_slug, external_id, access_token_ct, refresh_token_ct
		FROM connections`)
	if err != nil {
		return 0, fmt.Errorf("credential: querying connections: %w", err)
	}

	type row struct {
		conn      Connection
		accessCT  []byte
		refreshCT []byte
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.conn.ID, &r.conn.TenantID, &r.conn.ProviderSlug, &r.conn.ExternalID, &r.accessCT, &r.refreshCT); err != nil {
			rows.Close()
			return 0, fmt.Errorf("credential: scanning connection: %w", err)
		}
		pending = append(pending, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	updated := 0
	for _, r := range pending {
		aad := r.conn.AAD()

		var newAccess, newRefresh []byte
		changed := false

		if len(r.accessCT) > 0 && !crypto.IsEncrypted(r.accessCT) {
			ct, err := envelope.Encrypt(aad, r.accessCT)
			if err != nil {
				return updated, fmt.Errorf("credential: re-encrypting access token for %s: %w", r.conn.ID, err)
			}
			newAccess = ct
			changed = true
		} else {
			newAccess = r.accessCT
		}

		if len(r.refreshCT) > 0 && !crypto.IsEncrypted(r.refreshCT) {
			ct, err := envelope.Encrypt(aad, r.refreshCT)
			if err != nil {
				return updated, fmt.Errorf("credential: re-encrypting refresh token for %s: %w", r.conn.ID, err)
			}
			newRefresh = ct
			changed = true
		} else {
			newRefresh = r.refreshCT
		}

		if !changed {
			continue
		}

		_, err := dbtx.Exec(ctx, `
			UPDATE connections SET access_token_ct = $1, refresh_token_ct = $2, updated_at = now()
			WHERE id = $3`, newAccess, newRefresh, r.conn.ID)
		if err != nil {
			return updated, fmt.Errorf("credential: updating connection %s: %w", r.conn.ID, err)
		}
		updated++
	}

	return updated, nil
}
