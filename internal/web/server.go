package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prodair/fieldinstall/internal/export"
	"github.com/prodair/fieldinstall/internal/metrics"
	"github.com/prodair/fieldinstall/internal/service"
)

type Server struct {
	installations *service.InstallationService
	sessions      *service.SessionService
	formatter     *export.Formatter
	metrics       *metrics.Metrics
	mux           *http.ServeMux
	logger        *slog.Logger
	now           func() time.Time
}

func NewServer(
	installations *service.InstallationService,
	sessions *service.SessionService,
	formatter *export.Formatter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Server {
	s := &Server{
		installations: installations,
		sessions:      sessions,
		formatter:     formatter,
		metrics:       m,
		mux:           http.NewServeMux(),
		logger:        logger,
		now:           time.Now,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", s.metrics.Handler())

	s.mux.HandleFunc("POST /session", s.handleLogin)
	s.mux.HandleFunc("GET /session", s.handleCurrentUser)
	s.mux.HandleFunc("DELETE /session", s.requireUser(s.handleLogout))

	s.mux.HandleFunc("GET /draft", s.requireUser(s.handleDraft))
	s.mux.HandleFunc("POST /location/refresh", s.requireUser(s.handleRefreshLocation))
	s.mux.HandleFunc("PUT /location", s.requireUser(s.handleReportLocation))
	s.mux.HandleFunc("POST /photos", s.requireUser(s.handleAddPhotos))
	s.mux.HandleFunc("GET /photos/{name}", s.requireUser(s.handleGetDevicePhoto))
	s.mux.HandleFunc("DELETE /photos/{index}", s.requireUser(s.handleRemovePhoto))
	s.mux.HandleFunc("DELETE /photos", s.requireUser(s.handleClearPhotos))

	s.mux.HandleFunc("POST /installations", s.requireUser(s.handleSubmit))
	s.mux.HandleFunc("GET /installations", s.requireUser(s.handleListInstallations))
	s.mux.HandleFunc("GET /installations/{id}/share", s.requireUser(s.handleShareInstallation))
	s.mux.HandleFunc("POST /share", s.requireUser(s.handleShareDraft))

	s.mux.HandleFunc("GET /export.csv", s.requireUser(s.handleExport(formatCSV)))
	s.mux.HandleFunc("GET /export.xlsx", s.requireUser(s.handleExport(formatXLSX)))
	s.mux.HandleFunc("GET /export.pdf", s.requireUser(s.handleExport(formatPDF)))
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, m *metrics.Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, rec.status, elapsed)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, s.metrics, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains open requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}
