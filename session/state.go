package session

import "github.com/jrsteele09/go-admin-console/tenants"

// State is a point-in-time snapshot of the tenant session. Consumers receive
// copies; all mutation funnels through the Manager's operations.
type State struct {
	// CurrentTenant is the active tenant, nil before initialization or when
	// the user has no tenant selected yet. At most one tenant is active.
	CurrentTenant *tenants.Tenant `json:"currentTenant"`

	// AvailableTenants are the tenants visible to the current credential, in
	// the directory's order. The order is the auto-selection tie-break.
	AvailableTenants []tenants.Tenant `json:"availableTenants"`

	// Loading is true for the whole duration of initialization or an
	// in-flight switch.
	Loading bool `json:"isLoading"`

	// Err holds the last operation's failure message, cleared at the start
	// of each new operation.
	Err string `json:"error,omitempty"`
}

// TenantChange is broadcast to subscribers after a completed switch. Every
// tenant-scoped subsystem must discard its cached state on receipt; nothing
// may continue operating against the previous tenant.
type TenantChange struct {
	Tenant   tenants.Tenant
	Previous *tenants.Tenant
}

func (s State) clone() State {
	out := s
	if s.CurrentTenant != nil {
		current := *s.CurrentTenant
		out.CurrentTenant = &current
	}
	if s.AvailableTenants != nil {
		out.AvailableTenants = make([]tenants.Tenant, len(s.AvailableTenants))
		copy(out.AvailableTenants, s.AvailableTenants)
	}
	return out
}
