package tenantconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// Store persists tenant signal config rows.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Get returns the tenant's config, or the package default if no row has
// been written yet.
func (s *Store) Get(ctx context.Context, tenantID uuid.UUID) (Config, error) {
	var threshold float64
	var weightsJSON []byte
	var webhookURL *string

	err := s.dbtx.QueryRow(ctx, `
		SELECT weak_signal_threshold, scoring_weights, webhook_url
		FROM tenant_signal_configs WHERE tenant_id = $1`, tenantID,
	).Scan(&threshold, &weightsJSON, &webhookURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return Default(tenantID), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("tenantconfig: get: %w", err)
	}

	cfg := Config{TenantID: tenantID, WeakSignalThreshold: threshold}
	if webhookURL != nil {
		cfg.WebhookURL = *webhookURL
	}
	if err := json.Unmarshal(weightsJSON, &cfg.ScoringWeights); err != nil {
		return Config{}, fmt.Errorf("tenantconfig: unmarshalling scoring weights: %w", err)
	}
	return cfg, nil
}

// Upsert validates weights (substituting defaults when invalid) and writes
// the tenant's config row, keyed by tenant_id (§4.10's "falls back to
// defaults" invariant; §6's PUT /tenants/{id}/signal-config).
func (s *Store) Upsert(ctx context.Context, cfg Config) (Config, error) {
	if !cfg.ScoringWeights.Valid() {
		cfg.ScoringWeights = DefaultScoringWeights()
	}
	if cfg.WeakSignalThreshold <= 0 {
		cfg.WeakSignalThreshold = DefaultWeakSignalThreshold
	}

	weightsJSON, err := json.Marshal(cfg.ScoringWeights)
	if err != nil {
		return Config{}, fmt.Errorf("tenantconfig: marshalling scoring weights: %w", err)
	}

	var webhookURL *string
	if cfg.WebhookURL != "" {
		webhookURL = &cfg.WebhookURL
	}

	_, err = s.dbtx.Exec(ctx, `
		INSERT INTO tenant_signal_configs (tenant_id, weak_signal_threshold, scoring_weights, webhook_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (tenant_id) DO UPDATE SET
			weak_signal_threshold = EXCLUDED.weak_signal_threshold,
			scoring_weights = EXCLUDED.scoring_weights,
			webhook_url = EXCLUDED.webhook_url,
			updated_at = now()`,
		cfg.TenantID, cfg.WeakSignalThreshold, weightsJSON, webhookURL,
	)
	if err != nil {
		return Config{}, fmt.Errorf("tenantconfig: upsert: %w", err)
	}
	return cfg, nil
}
