package tenants_test

import (
	"testing"

	"github.com/jrsteele09/go-admin-console/tenants"
	"github.com/stretchr/testify/require"
)

func TestDisplayNameFallsBackToSlug(t *testing.T) {
	withName := tenants.Tenant{ID: "t1", Slug: "acme", Name: "Acme Corp"}
	require.Equal(t, "Acme Corp", withName.DisplayName())

	withoutName := tenants.Tenant{ID: "t1", Slug: "acme"}
	require.Equal(t, "acme", withoutName.DisplayName())
}

func TestMinimalTenant(t *testing.T) {
	tenant := tenants.Minimal("t-42")
	require.Equal(t, "t-42", tenant.ID)
	require.Empty(t, tenant.Slug)
	require.Empty(t, tenant.Domain)
	require.False(t, tenant.CreatedAt.IsZero())
}
