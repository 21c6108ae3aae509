// Package tenant implements the root isolation boundary (§3): tenant
// creation and lookup. Every other tenant-scoped row carries tenant_id and
// is read only with a tenant predicate; cascade deletes are declared at the
// schema level (migrations/0001_init.sql).
package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the root entity of the multi-tenancy tree.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
