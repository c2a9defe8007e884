package directory

import (
	"encoding/json"

	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
	"github.com/jrsteele09/go-admin-console/tenants"
)

// Selection is the canonical result of a tenant-selection call. Historically
// the select-tenant endpoint has returned several payload shapes; everything
// the rest of the application sees goes through this one type.
type Selection struct {
	Tenant      *tenants.Tenant
	AccessToken string
}

// selectionPayload matches every select-tenant response shape observed in
// production: the pair at the top level or nested one level under "data",
// the credential under "accessToken" or the older "token" key, and the
// tenant echo optionally absent altogether.
type selectionPayload struct {
	Data        *selectionPayload `json:"data,omitempty"`
	Tenant      *tenants.Tenant   `json:"tenant,omitempty"`
	AccessToken string            `json:"accessToken,omitempty"`
	Token       string            `json:"token,omitempty"`
}

// NormalizeSelection parses a raw select-tenant response body into a
// Selection. requestedID is the tenant ID the caller asked for; when the
// response omits the tenant echo, a minimal tenant is built from it so that
// selection never fails on missing echo data alone.
func NormalizeSelection(raw []byte, requestedID string) (*Selection, error) {
	var payload selectionPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrDirectoryUnavailable, "malformed selection response: %v", err)
	}

	// Unwrap a single result envelope.
	if payload.Data != nil {
		payload = *payload.Data
	}

	selection := &Selection{
		Tenant:      payload.Tenant,
		AccessToken: payload.AccessToken,
	}
	if selection.AccessToken == "" {
		selection.AccessToken = payload.Token
	}
	if selection.Tenant == nil {
		minimal := tenants.Minimal(requestedID)
		selection.Tenant = &minimal
	}
	return selection, nil
}
