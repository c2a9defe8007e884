// Package directory talks to the remote tenant directory: the service that
// enumerates the tenants visible to a credential and performs tenant
// selection, minting a credential scoped to the selected tenant.
package directory

import (
	"context"

	"github.com/jrsteele09/go-admin-console/tenants"
)

// Client is the tenant directory boundary.
type Client interface {
	// ListTenants returns the tenants accessible to the current credential,
	// in the directory's own order. The order is stable and is used as the
	// auto-selection tie-break downstream.
	ListTenants(ctx context.Context) ([]tenants.Tenant, error)

	// CurrentTenant returns the tenant the directory considers active for the
	// current credential, or nil when the directory reports none.
	CurrentTenant(ctx context.Context) (*tenants.Tenant, error)

	// SelectTenant activates tenantID at the directory and returns the
	// normalized selection result. The returned Selection always carries a
	// non-nil Tenant; AccessToken may be empty when the directory did not
	// mint a fresh credential.
	SelectTenant(ctx context.Context, tenantID string) (*Selection, error)
}
