// Package server exposes the audit engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kluth/chainsaw/internal/audit"
	"github.com/kluth/chainsaw/internal/telemetry"
)

// Version is reported by the health endpoint. Overridden at build time
// via -ldflags.
var Version = "dev"

// Auditor is the engine surface the server needs.
type Auditor interface {
	Audit(ctx context.Context, id audit.PackageIdentity) (*audit.Report, error)
	Compare(ctx context.Context, name, versionA, versionB string) (*audit.ComparisonReport, error)
}

// Server is the HTTP API over the auditor.
type Server struct {
	auditor Auditor
	metrics *telemetry.Metrics
	log     *slog.Logger
	mux     *http.ServeMux
}

// New assembles the routing table. metrics may be nil.
func New(auditor Auditor, metrics *telemetry.Metrics, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		auditor: auditor,
		metrics: metrics,
		log:     log,
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /audit", s.handleAudit)
	s.mux.HandleFunc("POST /audit/compare", s.handleCompare)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if metrics != nil {
		s.mux.Handle("GET /metrics", metrics.Handler())
	}

	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.metrics != nil {
		h = s.metrics.RequestTracking(h)
	}
	return s.logRequests(h)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

type auditRequest struct {
	PackageName string `json:"package_name"`
	Version     string `json:"version"`
}

type compareRequest struct {
	PackageName string `json:"package_name"`
	VersionA    string `json:"version_a"`
	VersionB    string `json:"version_b"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &audit.ValidationError{Message: "invalid request body"})
		return
	}

	id, err := audit.ParseIdentity(req.PackageName, req.Version)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.auditor.Audit(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &audit.ValidationError{Message: "invalid request body"})
		return
	}

	cmp, err := s.auditor.Compare(r.Context(), req.PackageName, req.VersionA, req.VersionB)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type errorBody struct {
	Detail errorDetail `json:"detail"`
}

type errorDetail struct {
	Message string `json:"message"`
}

// writeError maps the audit error taxonomy onto HTTP statuses.
// Unclassified errors become opaque 500s so internals never leak.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		ve *audit.ValidationError
		nf *audit.NotFoundError
		ue *audit.UnavailableError
	)

	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.As(err, &ve):
		status = http.StatusUnprocessableEntity
		message = ve.Message
	case errors.As(err, &nf):
		status = http.StatusNotFound
		message = nf.Error()
	case errors.As(err, &ue):
		status = http.StatusBadGateway
		message = ue.Error()
	default:
		s.log.Error("unhandled audit error", "error", err)
	}

	s.writeJSON(w, status, errorBody{Detail: errorDetail{Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encoding response", "error", err)
	}
}
