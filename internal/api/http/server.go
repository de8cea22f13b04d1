// Package apihttp is the translation service's HTTP surface: job
// create/status/cancel, journal inspection, job history, a progress
// websocket stream, and the standard health/metrics endpoints, built
// the way the teacher's internal/api/http server assembles a mux and
// middleware chain (services/torrent-engine/internal/api/http/server.go).
package apihttp

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"subtrans/internal/backend"
	"subtrans/internal/domain"
	"subtrans/internal/history"
	"subtrans/internal/journal"
	"subtrans/internal/orchestrator"
	"subtrans/internal/progress"
)

// Server wires the translation orchestrator, journal, history store and
// progress hub into an HTTP handler, styled after the teacher's
// options-pattern Server.
type Server struct {
	orch     *orchestrator.Orchestrator
	registry *backend.Registry
	hub      *progress.Hub
	journal  *journal.Journal
	history  *history.Store
	jobs     *jobManager

	corsOrigins []string
	rateRPS     float64
	rateBurst   int

	logger  *slog.Logger
	handler http.Handler
	wsHub   *progressHub
}

// ServerOption configures a Server at construction time.
type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

func WithCORSAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) { s.corsOrigins = origins }
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) { s.rateRPS = rps; s.rateBurst = burst }
}

func WithHistory(h *history.Store) ServerOption {
	return func(s *Server) { s.history = h }
}

// NewServer builds a Server. orch drives job pipelines, registry
// resolves requested backend-name chains, hub fans out live progress,
// j is the bounded error journal.
func NewServer(orch *orchestrator.Orchestrator, registry *backend.Registry, hub *progress.Hub, j *journal.Journal, opts ...ServerOption) *Server {
	s := &Server{
		orch:     orch,
		registry: registry,
		hub:      hub,
		journal:  j,
		rateRPS:  50,
		rateBurst: 100,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.jobs = newJobManager(orch, hub, j, s.history)

	s.wsHub = newProgressHub(s.logger)
	go s.wsHub.run()
	hub.SetBroadcaster(s.wsHub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobByID)
	mux.HandleFunc("/journal", s.handleJournal)
	mux.HandleFunc("/journal/export", s.handleJournalExport)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "subtrans",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger,
		rateLimitMiddleware(s.rateRPS, s.rateBurst,
			metricsMiddleware(
				corsMiddleware(s.corsOrigins, traced))))

	return s
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.serveWS(w, r)
}

func jobIDFromPath(path, prefix string) domain.JobID {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	return domain.JobID(rest)
}
