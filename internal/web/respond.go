package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prodair/fieldinstall/internal/capture"
	"github.com/prodair/fieldinstall/internal/domain"
	"github.com/prodair/fieldinstall/internal/photostore"
	"github.com/prodair/fieldinstall/internal/service"
	"github.com/prodair/fieldinstall/internal/store"
)

const maxJSONBody = 1 << 20

type errorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg}, s.logger)
}

// writeServiceError maps a service error to its HTTP status.
func (s *Server) writeServiceError(w http.ResponseWriter, op string, err error) {
	var (
		verr *service.ValidationError
		serr *store.StorageError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid fields", Fields: verr.Fields}, s.logger)
	case errors.Is(err, service.ErrNoUser):
		s.writeError(w, http.StatusUnauthorized, "login required")
	case errors.Is(err, capture.ErrNoSuchPhoto), errors.Is(err, photostore.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "photo not found")
	case errors.Is(err, photostore.ErrInvalidKey):
		s.writeError(w, http.StatusBadRequest, "invalid photo name")
	case errors.As(err, &serr):
		s.logger.Error(op+" failed", "op", serr.Op, "key", serr.Key, "error", err)
		s.writeError(w, http.StatusInternalServerError, "storage unavailable, please retry")
	default:
		s.logger.Error(op+" failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

type userHandler func(w http.ResponseWriter, r *http.Request, user *domain.User)

// requireUser rejects requests with 401 until someone has logged in.
func (s *Server) requireUser(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessions.Current(r.Context())
		if err != nil {
			s.writeServiceError(w, "read session", err)
			return
		}
		if user == nil {
			s.writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		h(w, r, user)
	}
}

func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
