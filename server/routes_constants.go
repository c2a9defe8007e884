package server

const (
	RouteSession        = "/api/session"
	RouteTenants        = "/api/tenants"
	RouteSelectTenant   = "/api/tenants/select"
	RouteRefreshTenants = "/api/tenants/refresh"
	RouteLogout         = "/api/session/logout"
)
