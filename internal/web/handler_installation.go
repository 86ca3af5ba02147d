package web

import (
	"net/http"

	"github.com/prodair/fieldinstall/internal/domain"
)

// submitRequest is the form body: text fields at the top level, materials
// nested as in stored records.
type submitRequest struct {
	domain.Form
	MaterialUsed domain.MaterialUsage `json:"materialUsed"`
}

type shareResponse struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, user *domain.User) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.installations.Submit(r.Context(), req.Form, req.MaterialUsed, user)
	if err != nil {
		s.writeServiceError(w, "save installation", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec, s.logger)
}

func (s *Server) handleListInstallations(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	records, err := s.installations.List(r.Context())
	if err != nil {
		s.writeServiceError(w, "list installations", err)
		return
	}
	if records == nil {
		records = []*domain.Installation{}
	}
	writeJSON(w, http.StatusOK, records, s.logger)
}

func (s *Server) handleShareInstallation(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	rec, err := s.installations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, "load installation", err)
		return
	}
	if rec == nil {
		s.writeError(w, http.StatusNotFound, "installation not found")
		return
	}
	s.writeShare(w, rec)
}

// handleShareDraft shares the form as currently filled, before submission.
func (s *Server) handleShareDraft(w http.ResponseWriter, r *http.Request, user *domain.User) {
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.installations.Preview(req.Form, req.MaterialUsed, user)
	if err != nil {
		s.writeServiceError(w, "share installation", err)
		return
	}
	s.writeShare(w, rec)
}

func (s *Server) writeShare(w http.ResponseWriter, rec *domain.Installation) {
	writeJSON(w, http.StatusOK, shareResponse{
		URL:     s.formatter.ShareURL(rec),
		Message: s.formatter.ShareMessage(rec),
	}, s.logger)
}
