package web

import (
	"net/http"

	"github.com/prodair/fieldinstall/internal/domain"
	"github.com/prodair/fieldinstall/internal/geo"
)

type locationResponse struct {
	Location      *domain.Location `json:"location,omitempty"`
	LocationError string           `json:"locationError,omitempty"`
	Kind          string           `json:"kind,omitempty"`
}

func (s *Server) handleDraft(w http.ResponseWriter, _ *http.Request, _ *domain.User) {
	writeJSON(w, http.StatusOK, s.installations.Draft(), s.logger)
}

// handleRefreshLocation is the manual retry. A failed lookup is not an HTTP
// error: the form shows the message and stays usable.
func (s *Server) handleRefreshLocation(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	loc, err := s.installations.RefreshLocation(r.Context())
	if err != nil {
		kind := geo.KindOf(err)
		writeJSON(w, http.StatusOK, locationResponse{
			LocationError: kind.Message(),
			Kind:          kind.String(),
		}, s.logger)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{Location: loc}, s.logger)
}

func (s *Server) handleReportLocation(w http.ResponseWriter, r *http.Request, _ *domain.User) {
	var loc domain.Location
	if err := decodeJSON(w, r, &loc); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.installations.ReportLocation(loc); err != nil {
		s.writeServiceError(w, "report location", err)
		return
	}
	writeJSON(w, http.StatusOK, locationResponse{Location: s.installations.Draft().Location}, s.logger)
}
