package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/config"
	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
	"idslab-dashboard/internal/report"
)

// ReportHandler handles report endpoints
type ReportHandler struct {
	client   *client.Client
	poller   *poller.Service
	exporter *report.Exporter
	cfg      *config.Config
}

// NewReportHandler creates a new report handler
func NewReportHandler(c *client.Client, p *poller.Service, exporter *report.Exporter, cfg *config.Config) *ReportHandler {
	return &ReportHandler{
		client:   c,
		poller:   p,
		exporter: exporter,
		cfg:      cfg,
	}
}

// RegisterRoutes registers the report routes
func (h *ReportHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/reports", h.getReports).Methods("GET")
	r.HandleFunc("/api/reports/generate", h.generateReport).Methods("POST")
	r.HandleFunc("/api/reports/{id}", h.getReport).Methods("GET")
	r.HandleFunc("/api/reports/{id}", h.deleteReport).Methods("DELETE")
	r.HandleFunc("/api/reports/{id}/export", h.exportReport).Methods("GET")
}

// getReports returns the reports snapshot
func (h *ReportHandler) getReports(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getReports").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Reports.Snapshot())
}

// getReport returns a single report record
func (h *ReportHandler) getReport(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getReport").Logger()

	id := mux.Vars(r)["id"]
	rep, err := h.client.GetReport(r.Context(), id)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve report")
		return
	}

	respondJSON(w, logger, http.StatusOK, rep)
}

// generateReport asks the backend to generate a report
func (h *ReportHandler) generateReport(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "generateReport").Logger()

	// Parse request body
	var req models.ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error().Err(err).Msg("Failed to parse report request")
		http.Error(w, "Invalid report request", http.StatusBadRequest)
		return
	}

	// Apply defaults
	req.Name = strings.TrimSpace(req.Name)
	if req.Type == "" {
		req.Type = "summary"
	}
	if req.Format == "" {
		req.Format = h.cfg.Reporting.DefaultFormat
	}
	if req.DateRange == "" {
		req.DateRange = "30"
	}

	// Validate input
	switch {
	case req.Name == "":
		http.Error(w, "Report name is required", http.StatusBadRequest)
		return
	case !models.ValidReportType(req.Type):
		http.Error(w, "Invalid report type", http.StatusBadRequest)
		return
	case !models.ValidReportFormat(req.Format):
		http.Error(w, "Invalid report format", http.StatusBadRequest)
		return
	}
	if _, err := analytics.ParseDateRange(req.DateRange); err != nil {
		http.Error(w, "Invalid date range", http.StatusBadRequest)
		return
	}

	logger.Info().
		Str("name", req.Name).
		Str("type", req.Type).
		Str("format", req.Format).
		Str("dateRange", req.DateRange).
		Bool("includeCharts", req.IncludeCharts).
		Bool("includeRawData", req.IncludeRawData).
		Msg("Report requested")

	rep, err := h.client.GenerateReport(r.Context(), req)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to generate report")
		return
	}

	// Show the new report before the next poll
	h.poller.PrependReport(rep)
	respondJSON(w, logger, http.StatusCreated, rep)
}

// deleteReport deletes a report on the backend
func (h *ReportHandler) deleteReport(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "deleteReport").Logger()

	id := mux.Vars(r)["id"]
	if err := h.client.DeleteReport(r.Context(), id); err != nil {
		respondBackendError(w, logger, err, "Failed to delete report")
		return
	}

	h.poller.RemoveReport(id)
	logger.Info().Str("id", id).Msg("Report deleted")
	w.WriteHeader(http.StatusNoContent)
}

// exportReport renders a report as a downloadable document. The format
// defaults to the report's own format; raw and charts select optional sections.
func (h *ReportHandler) exportReport(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "exportReport").Logger()

	// Get report from backend
	id := mux.Vars(r)["id"]
	rep, err := h.client.GetReport(r.Context(), id)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve report")
		return
	}

	// Resolve export format
	format := r.URL.Query().Get("format")
	if format == "" {
		format = rep.Format
	}
	if format == "" {
		format = h.cfg.Reporting.DefaultFormat
	}
	if !models.ValidReportFormat(format) {
		logger.Warn().Str("format", format).Msg("Unsupported export format")
		http.Error(w, "Invalid export format", http.StatusBadRequest)
		return
	}

	// Get tests from backend
	tests, err := h.client.ListTests(r.Context())
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve tests")
		return
	}

	loc, err := h.cfg.GetLocation()
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid timezone, using UTC")
		loc = time.UTC
	}

	// Build and render the document
	opts := report.Options{
		IncludeCharts:  queryBool(r, "charts", true),
		IncludeRawData: queryBool(r, "raw", false),
	}
	data := report.NewData(rep, tests, h.poller.Analytics.Data().ROC, loc, time.Now(), opts)

	var buf bytes.Buffer
	if err := h.exporter.Export(&buf, format, data); err != nil {
		logger.Error().Err(err).Str("id", id).Msg("Failed to export report")
		http.Error(w, "Failed to export report", http.StatusInternalServerError)
		return
	}

	// Send as attachment
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName(rep, format)))
	w.Header().Set("Content-Length", fmt.Sprint(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logger.Error().Err(err).Msg("Failed to write export")
	}
}
