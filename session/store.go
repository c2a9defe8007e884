package session

import (
	"context"

	"github.com/jrsteele09/go-admin-console/tenants"
)

// Store persists the active tenant and the tenant-scoped credential across
// process restarts. The Manager is its sole writer.
type Store interface {
	// Save overwrites the persisted tenant record (id, slug and the full
	// serialized tenant) in a single transaction.
	Save(ctx context.Context, tenant *tenants.Tenant) error

	// Load returns the persisted tenant, or nil when nothing is persisted or
	// the record is malformed. Malformed data is never an error.
	Load(ctx context.Context) (*tenants.Tenant, error)

	// SaveCredential overwrites the persisted session credential.
	SaveCredential(ctx context.Context, token string) error

	// LoadCredential returns the persisted session credential, empty when
	// none is held.
	LoadCredential(ctx context.Context) (string, error)

	// Clear removes the tenant record and the credential together. Used on
	// logout and when rolling back a switch that had no prior tenant.
	Clear(ctx context.Context) error
}
