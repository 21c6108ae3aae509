package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// ErrNotFound is returned when a provider slug is not registered.
var ErrNotFound = errors.New("provider: not found")

// Store persists the global provider catalog.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Upsert inserts or updates a provider's catalog entry, keyed by slug.
func (s *Store) Upsert(ctx context.Context, p Provider) error {
	_, err := s.dbtx.Exec(ctx, `
		INSERT INTO providers (slug, display_name, auth_type, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (slug) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			auth_type = EXCLUDED.auth_type,
			updated_at = now()`,
		p.Slug, p.DisplayName, string(p.AuthType),
	)
	if err != nil {
		return fmt.Errorf("provider: upsert: %w", err)
	}
	return nil
}

// Get fetches a provider by slug.
func (s *Store) Get(ctx context.Context, slug string) (*Provider, error) {
	var p Provider
	var authType string
	err := s.dbtx.QueryRow(ctx, `
		SELECT slug, display_name, auth_type, created_at, updated_at
		FROM providers WHERE slug = $1`, slug,
	).Scan(&p.Slug, &p.DisplayName, &authType, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("provider: get: %w", err)
	}
	p.AuthType = AuthType(authType)
	return &p, nil
}

// List returns the full catalog sorted by slug (§6: GET /providers).
func (s *Store) List(ctx context.Context) ([]Provider, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT slug, display_name, auth_type, created_at, updated_at
		FROM providers ORDER BY slug ASC`)
	if err != nil {
		return nil, fmt.Errorf("provider: list: %w", err)
	}
	defer rows.Close()

	var out []Provider
	for rows.Next() {
		var p Provider
		var authType string
		if err := rows.Scan(&p.Slug, &p.DisplayName, &authType, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("provider: scanning row: %w", err)
		}
		p.AuthType = AuthType(authType)
		out = append(out, p)
	}
	return out, rows.Err()
}
