package tenants

import (
	"encoding/json"
	"time"
)

// Tenant represents an organizational scope a user account can act within.
// Each tenant has its own data partition in the content-management API; the
// console only ever operates against one tenant at a time.
type Tenant struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`               // Unique short name, used in URLs and display
	Domain    string          `json:"domain,omitempty"`   // Optional routing/display hint
	Name      string          `json:"name,omitempty"`     // Optional display label, falls back to Slug
	Settings  json.RawMessage `json:"settings,omitempty"` // Tenant-specific configuration, opaque to the console
	CreatedAt time.Time       `json:"createdAt"`
}

// DisplayName returns the tenant's display label, falling back to the slug
// when no name has been set.
func (t Tenant) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Slug
}

// Minimal constructs a placeholder tenant from an ID alone. It is used when a
// tenant-selection response omits the tenant echo: the caller already knows
// the ID it asked for, so selection must not fail on the missing echo.
func Minimal(id string) Tenant {
	return Tenant{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}
}
