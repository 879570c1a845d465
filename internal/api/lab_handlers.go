package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
)

// LabHandler handles the lab monitor endpoints
type LabHandler struct {
	client *client.Client
	poller *poller.Service
}

// NewLabHandler creates a new lab handler
func NewLabHandler(c *client.Client, p *poller.Service) *LabHandler {
	return &LabHandler{
		client: c,
		poller: p,
	}
}

// RegisterRoutes registers the lab routes
func (h *LabHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/lab", h.getLab).Methods("GET")
	r.HandleFunc("/api/lab/ids-configs/{id}/status", h.updateIDSStatus).Methods("PUT")
	r.HandleFunc("/api/lab/ids-configs/{id}/rules", h.updateIDSRules).Methods("PUT")
}

// labOverview is the lab monitor payload
type labOverview struct {
	Environments []models.LabEnvironment   `json:"environments"`
	IDSConfigs   []models.IDSConfiguration `json:"idsConfigs"`
	Summary      models.LabSummary         `json:"summary"`
	Generation   uint64                    `json:"generation"`
	FetchedAt    time.Time                 `json:"fetchedAt"`
	Error        string                    `json:"error,omitempty"`
	Stale        bool                      `json:"stale"`
}

// getLab returns the lab hosts, detectors and their summary
func (h *LabHandler) getLab(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getLab").Logger()

	snap := h.poller.Lab.Snapshot()
	respondJSON(w, logger, http.StatusOK, labOverview{
		Environments: snap.Data.Environments,
		IDSConfigs:   snap.Data.IDSConfigs,
		Summary:      analytics.SummarizeLab(snap.Data.Environments, snap.Data.IDSConfigs),
		Generation:   snap.Generation,
		FetchedAt:    snap.FetchedAt,
		Error:        snap.Error,
		Stale:        snap.Stale,
	})
}

// updateIDSStatus activates or deactivates a detector
func (h *LabHandler) updateIDSStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "updateIDSStatus").Logger()

	// Parse request body
	id := mux.Vars(r)["id"]
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Error().Err(err).Msg("Failed to parse IDS status")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !models.ValidIDSStatus(body.Status) {
		logger.Warn().Str("status", body.Status).Msg("Invalid IDS status")
		http.Error(w, "Status must be active or inactive", http.StatusBadRequest)
		return
	}

	// Forward to backend
	cfg, err := h.client.UpdateIDSStatus(r.Context(), id, body.Status)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to update IDS status")
		return
	}

	// Mirror the change in the lab snapshot
	h.poller.PatchIDSConfig(id, func(c *models.IDSConfiguration) {
		c.Status = body.Status
	})
	logger.Info().Str("id", id).Str("status", body.Status).Msg("IDS status updated")
	respondJSON(w, logger, http.StatusOK, cfg)
}

// updateIDSRules sets the rule count of a detector
func (h *LabHandler) updateIDSRules(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "updateIDSRules").Logger()

	// Parse request body
	id := mux.Vars(r)["id"]
	var body struct {
		Rules *int `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Error().Err(err).Msg("Failed to parse IDS rules")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.Rules == nil || *body.Rules < 0 {
		logger.Warn().Msg("Invalid IDS rule count")
		http.Error(w, "Rules must be a non-negative number", http.StatusBadRequest)
		return
	}
	rules := *body.Rules

	// Forward to backend
	cfg, err := h.client.UpdateIDSRules(r.Context(), id, rules)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to update IDS rules")
		return
	}

	h.poller.PatchIDSConfig(id, func(c *models.IDSConfiguration) {
		c.Rules = rules
	})
	logger.Info().Str("id", id).Int("rules", rules).Msg("IDS rules updated")
	respondJSON(w, logger, http.StatusOK, cfg)
}
