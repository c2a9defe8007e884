package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-admin-console/internal/errors"
)

type selectTenantRequest struct {
	TenantID string `json:"tenantId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// SessionHandler returns the current session state snapshot.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.manager.Snapshot())
	}
}

// TenantsHandler returns the tenants available to the current credential.
func (s *Server) TenantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, s.manager.Snapshot().AvailableTenants)
	}
}

// SelectTenantHandler switches the active tenant and returns the resulting
// session state.
func (s *Server) SelectTenantHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectTenantRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == "" {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenantId is required"})
			return
		}

		if err := s.manager.SwitchTenant(r.Context(), req.TenantID); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.manager.Snapshot())
	}
}

// RefreshTenantsHandler re-fetches the directory listing.
func (s *Server) RefreshTenantsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.RefreshTenants(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, s.manager.Snapshot())
	}
}

// LogoutHandler clears the persisted session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.manager.Logout(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.Is(err, apperrors.ErrTenantNotFound):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrDirectoryUnavailable):
		status = http.StatusBadGateway
	case apperrors.Is(err, apperrors.ErrCredentialPropagation):
		status = http.StatusBadGateway
	case apperrors.Is(err, apperrors.ErrNotInitialized):
		status = http.StatusConflict
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Err(err).Msg("failed to encode response")
	}
}
