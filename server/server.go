// Package server exposes the tenant session core over a small JSON API for
// the console's UI surfaces. Rendering is out of scope here; consumers read
// session state and trigger switches through these endpoints only.
package server

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-console/session"
)

// Server routes session API requests to the manager.
type Server struct {
	mux     *http.ServeMux
	manager *session.Manager
	log     zerolog.Logger
}

// ServerOption modifies a Server during construction.
type ServerOption func(*Server)

// WithLogger sets the server's logger.
func WithLogger(log zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithMetricsHandler mounts a Prometheus scrape endpoint backed by gatherer.
func WithMetricsHandler(gatherer prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// New creates the session API server.
func New(manager *session.Manager, options ...ServerOption) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("[server.New] session manager is required")
	}

	s := &Server{
		mux:     http.NewServeMux(),
		manager: manager,
		log:     zerolog.Nop(),
	}
	s.initRoutes()
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	s.mux.HandleFunc("GET "+RouteSession, s.ChainMiddleware(s.SessionHandler()))
	s.mux.HandleFunc("GET "+RouteTenants, s.ChainMiddleware(s.TenantsHandler()))
	s.mux.HandleFunc("POST "+RouteSelectTenant, s.ChainMiddleware(s.SelectTenantHandler()))
	s.mux.HandleFunc("POST "+RouteRefreshTenants, s.ChainMiddleware(s.RefreshTenantsHandler()))
	s.mux.HandleFunc("POST "+RouteLogout, s.ChainMiddleware(s.LogoutHandler()))
}
