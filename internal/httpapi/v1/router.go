// Package v1 wires the HTTP surface of the payment tracking service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/paytrace/internal/auxtag"
	"github.com/tinoosan/paytrace/internal/classify"
	"github.com/tinoosan/paytrace/internal/service/report"
	"github.com/tinoosan/paytrace/internal/service/tracker"
)

// Options configures per-deployment behavior of the API.
type Options struct {
	// VoucherPrefix filters CSV uploads to matching voucher numbers,
	// e.g. 银付 keeps only bank payment vouchers. Empty keeps everything.
	VoucherPrefix string
	// Workers bounds the allocation fan-out per batch.
	Workers int
}

// Server wires handlers and middleware using Chi.
// It composes read and write dependencies through services.
type Server struct {
	svc     tracker.Service
	reports report.Service
	records RecordReader
	parser  *auxtag.Parser
	prefix  string
	stores  []any
	log     *slog.Logger
	rt      *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by basic request/response logging and panic recovery.
func New(repo tracker.Repo, writer tracker.Writer, records RecordReader, classifier classify.Classifier, parser *auxtag.Parser, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)

	if parser == nil {
		parser = auxtag.NewParser(0)
	}
	s := &Server{
		svc:     tracker.New(repo, writer, classifier, logger, opts.Workers),
		reports: report.New(records),
		records: records,
		parser:  parser,
		prefix:  opts.VoucherPrefix,
		stores:  []any{repo, writer, records},
		rt:      r,
		log:     logger,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Batches (v1)
	s.rt.Post("/v1/batches", s.postBatch)
	s.rt.Post("/v1/batches/csv", s.postBatchCSV)
	s.rt.Get("/v1/batches", s.listBatches)
	s.rt.Get("/v1/batches/{id}", s.getBatch)
	s.rt.Get("/v1/batches/{id}/records", s.getBatchRecords)
	s.rt.Get("/v1/batches/{id}/stats", s.getBatchStats)
	s.rt.Get("/v1/batches/{id}/analysis", s.getBatchAnalysis)
	s.rt.Get("/v1/batches/{id}/top", s.getBatchTop)
	// Records (v1)
	s.rt.Get("/v1/records/{id}", s.getRecord)
	// Auxiliary tag utilities (v1)
	s.rt.Post("/v1/tags/parse", s.parseTags)
	s.rt.Get("/v1/aliases", s.getAliases)
	// Health (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Method(http.MethodGet, "/metrics", metricsHandler())
}
