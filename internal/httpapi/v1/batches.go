package v1

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/paytrace/internal/dictionary"
	"github.com/tinoosan/paytrace/internal/ingest"
	"github.com/tinoosan/paytrace/internal/service/report"
	"github.com/tinoosan/paytrace/internal/voucher"
)

// postBatch handles POST /v1/batches: journal rows as JSON.
func (s *Server) postBatch(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req postBatchRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	rows, err := toRows(req.Rows)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	source := req.Source
	if source == "" {
		source = "api"
	}
	groups := ingest.Group(rows, s.parser)
	b, err := s.svc.Process(r.Context(), source, groups)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBatchResponse(b))
}

// postBatchCSV handles POST /v1/batches/csv: a raw journal export as the body.
func (s *Server) postBatchCSV(w http.ResponseWriter, r *http.Request) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
	if ct != "text/csv" {
		writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
		return
	}
	rows, err := ingest.ReadJournal(r.Body, ingest.Options{VoucherPrefix: s.prefix})
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		source = "upload.csv"
	}
	groups := ingest.Group(rows, s.parser)
	b, err := s.svc.Process(r.Context(), source, groups)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toBatchResponse(b))
}

// listBatches handles GET /v1/batches.
func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.svc.Batches(r.Context())
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	out := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		out = append(out, toBatchResponse(b))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) batchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, "invalid batch id")
		return uuid.Nil, false
	}
	return id, true
}

// getBatch handles GET /v1/batches/{id}.
func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.batchID(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Batch(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toBatchResponse(b))
}

// getBatchRecords handles GET /v1/batches/{id}/records, returning records in
// the Chinese report format the downstream tooling consumes.
func (s *Server) getBatchRecords(w http.ResponseWriter, r *http.Request) {
	id, ok := s.batchID(w, r)
	if !ok {
		return
	}
	recs, err := s.records.RecordsByBatch(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, recordsResponse{Records: voucher.ExportAll(recs)})
}

// getBatchStats handles GET /v1/batches/{id}/stats.
func (s *Server) getBatchStats(w http.ResponseWriter, r *http.Request) {
	id, ok := s.batchID(w, r)
	if !ok {
		return
	}
	stats, err := s.reports.Stats(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, stats)
}

// getBatchAnalysis handles GET /v1/batches/{id}/analysis.
func (s *Server) getBatchAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := s.batchID(w, r)
	if !ok {
		return
	}
	analysis, err := s.reports.Analysis(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, analysis)
}

// getBatchTop handles GET /v1/batches/{id}/top?n=10, the largest payments of
// the batch by credit amount.
func (s *Server) getBatchTop(w http.ResponseWriter, r *http.Request) {
	id, ok := s.batchID(w, r)
	if !ok {
		return
	}
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			badRequest(w, "n must be a positive integer")
			return
		}
		n = v
	}
	top, err := s.reports.Top(r.Context(), id, n)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, struct {
		Payments []report.TopPayment `json:"最大付款"`
	}{Payments: top})
}

// getRecord handles GET /v1/records/{id}; the id is the voucher-derived form,
// e.g. 3月15日-银付0012-分录2 (URL-encoded by the caller).
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	if id == "" {
		badRequest(w, "record id is required")
		return
	}
	rec, err := s.records.RecordByID(r.Context(), id)
	if err != nil {
		writeDomainErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, rec.Export())
}

/// parseTags handles POST /v1/tags/parse: ad-hoc parsing for one auxiliary string.
func (s *Server) parseTags(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var req parseTagsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(w, "invalid JSON: "+err.Error())
		return
	}
	tags := s.parser.Parse(req.Text)
	valid, problems := s.parser.ValidateFormat(req.Text)
	resp := parseTagsResponse{Tags: make([]tagResponse, 0, len(tags)), Valid: valid, Problems: problems}
	for _, t := range tags {
		resp.Tags = append(resp.Tags, tagResponse{
			RawType:   t.RawType,
			Canonical: t.CanonicalType,
			Display:   t.Display(),
			Value:     t.Value,
			Truncated: t.Truncated,
			Warning:   t.Warning,
		})
	}
	toJSON(w, http.StatusOK, resp)
}

// getAliases handles GET /v1/aliases, exposing the built-in alias dictionary.
func (s *Server) getAliases(w http.ResponseWriter, r *http.Request) {
	toJSON(w, http.StatusOK, struct {
		Aliases map[string]string `json:"aliases"`
	}{Aliases: dictionary.Aliases()})
}
