package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
)

// ScenarioHandler handles attack scenario endpoints
type ScenarioHandler struct {
	client *client.Client
	poller *poller.Service
}

// NewScenarioHandler creates a new scenario handler
func NewScenarioHandler(c *client.Client, p *poller.Service) *ScenarioHandler {
	return &ScenarioHandler{
		client: c,
		poller: p,
	}
}

// RegisterRoutes registers the scenario routes
func (h *ScenarioHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/scenarios", h.getScenarios).Methods("GET")
	r.HandleFunc("/api/scenarios", h.createScenario).Methods("POST")
	r.HandleFunc("/api/scenarios/{id}", h.updateScenario).Methods("PUT")
	r.HandleFunc("/api/scenarios/{id}", h.deleteScenario).Methods("DELETE")
	r.HandleFunc("/api/scenarios/{id}/run", h.runScenario).Methods("POST")
}

// scenarioList is the scenarios page payload
type scenarioList struct {
	Scenarios  []models.AttackScenario `json:"scenarios"`
	Counts     models.ScenarioCounts   `json:"counts"`
	Status     string                  `json:"status"`
	Generation uint64                  `json:"generation"`
	FetchedAt  time.Time               `json:"fetchedAt"`
	Error      string                  `json:"error,omitempty"`
	Stale      bool                    `json:"stale"`
}

// getScenarios returns the cached scenarios filtered by status, with per-status counts
func (h *ScenarioHandler) getScenarios(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getScenarios").Logger()

	// Parse query parameters
	status := r.URL.Query().Get("status")
	if status == "" {
		status = "all"
	}
	if status != "all" && !models.ValidScenarioStatus(status) {
		logger.Warn().Str("status", status).Msg("Invalid scenario status filter")
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}

	// Filter the cached scenarios
	snap := h.poller.Scenarios.Snapshot()
	respondJSON(w, logger, http.StatusOK, scenarioList{
		Scenarios:  analytics.FilterScenarios(snap.Data.Scenarios, status),
		Counts:     analytics.CountScenarios(snap.Data.Scenarios),
		Status:     status,
		Generation: snap.Generation,
		FetchedAt:  snap.FetchedAt,
		Error:      snap.Error,
		Stale:      snap.Stale,
	})
}

// decodeScenario reads and validates a scenario body
func decodeScenario(r *http.Request) (models.AttackScenario, string) {
	var s models.AttackScenario
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return s, "Invalid scenario data"
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return s, "Scenario name is required"
	}
	if s.Status == "" {
		s.Status = models.ScenarioDraft
	}
	if !models.ValidScenarioStatus(s.Status) {
		return s, "Invalid scenario status"
	}
	if s.TargetPort < 0 || s.TargetPort > 65535 {
		return s, "Invalid target port"
	}
	return s, ""
}

// createScenario creates a scenario on the backend
func (h *ScenarioHandler) createScenario(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "createScenario").Logger()

	scenario, problem := decodeScenario(r)
	if problem != "" {
		logger.Warn().Str("problem", problem).Msg("Rejected scenario")
		http.Error(w, problem, http.StatusBadRequest)
		return
	}

	// Forward to backend
	created, err := h.client.CreateScenario(r.Context(), scenario)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to create scenario")
		return
	}

	// Apply local edit
	h.poller.AddScenario(created)
	logger.Info().Str("id", created.ID).Str("name", created.Name).Msg("Scenario created")
	respondJSON(w, logger, http.StatusCreated, created)
}

// updateScenario replaces a scenario on the backend
func (h *ScenarioHandler) updateScenario(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "updateScenario").Logger()

	id := mux.Vars(r)["id"]
	scenario, problem := decodeScenario(r)
	if problem != "" {
		logger.Warn().Str("id", id).Str("problem", problem).Msg("Rejected scenario update")
		http.Error(w, problem, http.StatusBadRequest)
		return
	}
	scenario.ID = id

	// Forward to backend
	updated, err := h.client.UpdateScenario(r.Context(), id, scenario)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to update scenario")
		return
	}
	if updated.ID == "" {
		updated.ID = id
	}

	// Apply local edit
	h.poller.ReplaceScenario(updated)
	logger.Info().Str("id", id).Msg("Scenario updated")
	respondJSON(w, logger, http.StatusOK, updated)
}

// deleteScenario deletes a scenario on the backend
func (h *ScenarioHandler) deleteScenario(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "deleteScenario").Logger()

	id := mux.Vars(r)["id"]
	if err := h.client.DeleteScenario(r.Context(), id); err != nil {
		respondBackendError(w, logger, err, "Failed to delete scenario")
		return
	}

	h.poller.RemoveScenario(id)
	logger.Info().Str("id", id).Msg("Scenario deleted")
	w.WriteHeader(http.StatusNoContent)
}

// runScenario starts a test run and returns the backend's response unchanged
func (h *ScenarioHandler) runScenario(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "runScenario").Logger()

	id := mux.Vars(r)["id"]
	raw, err := h.client.RunScenario(r.Context(), id)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to run scenario")
		return
	}

	h.poller.MarkScenarioRunning(id)
	logger.Info().Str("id", id).Msg("Scenario run started")

	// Empty backend response, answer with our own acknowledgement
	if len(raw) == 0 {
		respondJSON(w, logger, http.StatusAccepted, map[string]interface{}{
			"message":   "Scenario started",
			"id":        id,
			"timestamp": time.Now(),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	w.Write(raw)
}
