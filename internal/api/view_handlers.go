package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/poller"
)

// ViewHandler serves the dashboard and analytics pages and manual refreshes
type ViewHandler struct {
	poller *poller.Service
}

// NewViewHandler creates a new view handler
func NewViewHandler(p *poller.Service) *ViewHandler {
	return &ViewHandler{
		poller: p,
	}
}

// RegisterRoutes registers the view routes
func (h *ViewHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/dashboard", h.getDashboard).Methods("GET")
	r.HandleFunc("/api/analytics", h.getAnalytics).Methods("GET")
	r.HandleFunc("/api/analytics/rates", h.getRates).Methods("GET")
	r.HandleFunc("/api/analytics/hourly", h.getHourly).Methods("GET")
	r.HandleFunc("/api/analytics/roc", h.getROC).Methods("GET")
	r.HandleFunc("/api/views/{view}/refresh", h.refreshView).Methods("POST")
}

// getDashboard returns the dashboard snapshot
func (h *ViewHandler) getDashboard(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getDashboard").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Dashboard.Snapshot())
}

// getAnalytics returns the analytics snapshot
func (h *ViewHandler) getAnalytics(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getAnalytics").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Analytics.Snapshot())
}

// getRates returns the aggregate detection rates
func (h *ViewHandler) getRates(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getRates").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Analytics.Data().Rates)
}

// getHourly returns the detection-by-hour series
func (h *ViewHandler) getHourly(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHourly").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Analytics.Data().Hourly)
}

// getROC returns the ROC curve and its AUC
func (h *ViewHandler) getROC(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getROC").Logger()
	respondJSON(w, logger, http.StatusOK, h.poller.Analytics.Data().ROC)
}

// refreshView polls a view immediately and returns its polling state.
// A poll overtaken by another poll or edit is reported as accepted.
func (h *ViewHandler) refreshView(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "refreshView").Logger()

	name := mux.Vars(r)["view"]
	err := h.poller.Refresh(r.Context(), name)
	if errors.Is(err, poller.ErrUnknownView) {
		logger.Warn().Str("view", name).Msg("Refresh requested for unknown view")
		http.Error(w, "Unknown view", http.StatusNotFound)
		return
	}

	// Map the poll outcome to a status code
	status, _ := h.poller.ViewStatus(name)
	switch {
	case err == nil:
		respondJSON(w, logger, http.StatusOK, status)
	case errors.Is(err, poller.ErrSuperseded):
		respondJSON(w, logger, http.StatusAccepted, status)
	default:
		logger.Error().Err(err).Str("view", name).Msg("Refresh failed")
		respondJSON(w, logger, http.StatusBadGateway, status)
	}
}
