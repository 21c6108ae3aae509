// Package credential implements the credential store (C4): persisted,
// encrypted connection records scoped per tenant (§3's Connection entity).
package credential

import (
	"time"

	"github.com/google/uuid"
)

// Status enumerates a connection's lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
	StatusError   Status = "error"
)

// SyncMetadata is the scheduler state held in connection.metadata.sync
// (§3).
type SyncMetadata struct {
	IntervalSeconds  *int           `json:"interval_seconds,omitempty"`
	NextRunAt        *time.Time     `json:"next_run_at,omitempty"`
	LastJitterSecs   *float64       `json:"last_jitter_seconds,omitempty"`
	FirstActivatedAt *time.Time     `json:"first_activated_at,omitempty"`
	Cursor           map[string]any `json:"cursor,omitempty"`
}

// Connection is the §3 Connection entity. AccessTokenCT/RefreshTokenCT hold
// ciphertext; callers must call Store.Decrypt to obtain plaintext.
type Connection struct {
	ID              uuid.UUID      `json:"id"`
	TenantID        uuid.UUID      `json:"tenant_id"`
	ProviderSlug    string         `json:"provider_slug"`
	ExternalID      string         `json:"external_id"`
	DisplayName     string         `json:"display_name,omitempty"`
	Status          Status         `json:"status"`
	AccessTokenCT   []byte         `json:"-"`
	RefreshTokenCT  []byte         `json:"-"`
	ExpiresAt       *time.Time     `json:"expires_at,omitempty"`
	Scopes          []string       `json:"scopes,omitempty"`
	Metadata        map[string]any `json:"metadata"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// AAD returns the associated data the crypto envelope (C1) binds this
// connection's ciphertext to: "{tenant_id}|{provider_slug}|{external_id}".
// Changing any component of the tuple breaks authentication on decrypt.
func (c *Connection) AAD() []byte {
	return []byte(c.TenantID.String() + "|" + c.ProviderSlug + "|" + c.ExternalID)
}

// SyncMetadataValue reads interval_seconds and cursor from the
// connection.metadata.sync sub-object; other keys are ignored.
func (c *Connection) SyncMetadataValue() SyncMetadata {
	raw, ok := c.Metadata["sync"].(map[string]any)
	if !ok {
		return SyncMetadata{}
	}
	var sm SyncMetadata
	if v, ok := raw["interval_seconds"].(float64); ok {
		iv := int(v)
		sm.IntervalSeconds = &iv
	}
	if v, ok := raw["cursor"].(map[string]any); ok {
		sm.Cursor = v
	}
	return sm
}
