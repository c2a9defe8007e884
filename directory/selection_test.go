package directory_test

import (
	"testing"

	"github.com/jrsteele09/go-admin-console/directory"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSelectionNestedEnvelope(t *testing.T) {
	raw := []byte(`{"data": {"tenant": {"id": "t1", "slug": "s1"}, "accessToken": "tok"}}`)

	selection, err := directory.NormalizeSelection(raw, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", selection.Tenant.ID)
	require.Equal(t, "s1", selection.Tenant.Slug)
	require.Equal(t, "tok", selection.AccessToken)
}

func TestNormalizeSelectionTopLevelWithLegacyTokenKey(t *testing.T) {
	raw := []byte(`{"tenant": {"id": "t1", "slug": "s1"}, "token": "tok"}`)

	selection, err := directory.NormalizeSelection(raw, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", selection.Tenant.ID)
	require.Equal(t, "tok", selection.AccessToken)
}

func TestNormalizeSelectionMissingTenantEchoBuildsMinimalTenant(t *testing.T) {
	raw := []byte(`{"tenantId": "t1"}`)

	selection, err := directory.NormalizeSelection(raw, "t1")
	require.NoError(t, err)
	require.Equal(t, "t1", selection.Tenant.ID)
	require.Empty(t, selection.Tenant.Slug)
	require.Empty(t, selection.AccessToken)
	require.False(t, selection.Tenant.CreatedAt.IsZero())
}

func TestNormalizeSelectionAccessTokenWinsOverLegacyToken(t *testing.T) {
	raw := []byte(`{"tenant": {"id": "t1"}, "accessToken": "new", "token": "old"}`)

	selection, err := directory.NormalizeSelection(raw, "t1")
	require.NoError(t, err)
	require.Equal(t, "new", selection.AccessToken)
}

func TestNormalizeSelectionNestedCredentialOnly(t *testing.T) {
	raw := []byte(`{"data": {"token": "tok"}}`)

	selection, err := directory.NormalizeSelection(raw, "t9")
	require.NoError(t, err)
	require.Equal(t, "t9", selection.Tenant.ID)
	require.Equal(t, "tok", selection.AccessToken)
}

func TestNormalizeSelectionRejectsMalformedBody(t *testing.T) {
	_, err := directory.NormalizeSelection([]byte(`not json`), "t1")
	require.Error(t, err)
}
