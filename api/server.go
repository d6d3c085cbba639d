// Package api exposes the activity store, heart-rate merge and exports over
// HTTP.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ttu-dot/fitanalysis/config"
	"github.com/ttu-dot/fitanalysis/internal/service"
	"github.com/ttu-dot/fitanalysis/store"
)

// Options wires a Server.
type Options struct {
	Service *service.Service
	Config  config.Config
	Logger  *zap.Logger
	// Registry receives the API metrics and backs /metrics. Nil uses the
	// Prometheus default registry.
	Registry *prometheus.Registry
}

// Server handles the HTTP API.
type Server struct {
	svc      *service.Service
	store    *store.Store
	cfg      config.Config
	log      *zap.Logger
	metrics  *Metrics
	gatherer prometheus.Gatherer
}

// NewServer builds a Server.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}
	return &Server{
		svc:      opts.Service,
		store:    opts.Service.Store(),
		cfg:      opts.Config,
		log:      log,
		metrics:  NewMetrics(reg),
		gatherer: gatherer,
	}
}

// Handler returns the routed and instrumented API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes wires endpoints to the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /api/upload", s.upload},
		{"GET /api/activities", s.listActivities},
		{"GET /api/activities/search", s.searchActivities},
		{"DELETE /api/activities/all", s.deleteAllActivities},
		{"GET /api/activity/{id}", s.getActivity},
		{"DELETE /api/activity/{id}", s.deleteActivity},
		{"GET /api/activity/{id}/notes", s.activityNotes},
		{"POST /api/activity/{id}/merge/hr_csv", s.mergeHRCSV},
		{"POST /api/compare", s.compare},
		{"GET /api/export/{id}", s.exportActivity},
		{"GET /api/version", s.version},
		{"GET /api/sports", s.sports},
		{"GET /api/statistics", s.statistics},
		{"GET /api/device-mappings", s.deviceMappings},
	}
	for _, rt := range routes {
		mux.Handle(rt.pattern, s.instrument(rt.pattern, rt.handler))
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", healthz)
}

func (s *Server) instrument(route string, h http.Handler) http.Handler {
	obs := s.metrics.requests.MustCurryWith(prometheus.Labels{"route": route})
	return promhttp.InstrumentHandlerDuration(obs, h)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

func (s *Server) deviceMappings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Registry().Export())
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"error": detail})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
