package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/akamaotto/relayhub/internal/db"
)

// ErrNotFound is returned when a tenant row does not exist.
var ErrNotFound = errors.New("tenant: not found")

// Store persists Tenant rows.
type Store struct {
	dbtx db.DBTX
}

// NewStore builds a Store over the given executor (pool or transaction).
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

// Create inserts a new tenant.
func (s *Store) Create(ctx context.Context, name string) (*Tenant, error) {
	var t Tenant
	err := s.dbtx.QueryRow(ctx, `
		INSERT INTO tenants (id, name, created_at)
		VALUES ($1, $2, now())
		RETURNING id, name, created_at`,
		uuid.New(), name,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("tenant: create: %w", err)
	}
	return &t, nil
}

// Get fetches a tenant by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := s.dbtx.QueryRow(ctx, `
		SELECT id, name, created_at FROM tenants WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("tenant: get: %w", err)
	}
	return &t, nil
}

// Exists reports whether a tenant with the given ID exists, without
// fetching the full row.
func (s *Store) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := s.dbtx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("tenant: exists: %w", err)
	}
	return exists, nil
}
