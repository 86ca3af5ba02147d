package web

import (
	"net/http"

	"github.com/prodair/fieldinstall/internal/domain"
)

type loginRequest struct {
	Name       string `json:"name"`
	RememberMe bool   `json:"rememberMe"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.sessions.Login(r.Context(), req.Name, req.RememberMe)
	if err != nil {
		s.writeServiceError(w, "log in", err)
		return
	}
	writeJSON(w, http.StatusOK, user, s.logger)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.sessions.Current(r.Context())
	if err != nil {
		s.writeServiceError(w, "read session", err)
		return
	}
	if user == nil {
		s.writeError(w, http.StatusNotFound, "no user logged in")
		return
	}
	writeJSON(w, http.StatusOK, user, s.logger)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	if err := s.sessions.Logout(r.Context()); err != nil {
		s.writeServiceError(w, "log out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
