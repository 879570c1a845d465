package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/client"
)

// TestHandler exposes test runs and their results from the backend
type TestHandler struct {
	client *client.Client
}

// NewTestHandler creates a new test handler
func NewTestHandler(c *client.Client) *TestHandler {
	return &TestHandler{
		client: c,
	}
}

// RegisterRoutes registers the test routes
func (h *TestHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/tests", h.getTests).Methods("GET")
	r.HandleFunc("/api/tests/{id}", h.getTest).Methods("GET")
	r.HandleFunc("/api/tests/{id}/results", h.getTestResults).Methods("GET")
}

// getTests returns tests newest first, limited by the optional limit parameter
func (h *TestHandler) getTests(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getTests").Logger()

	// Get tests from backend
	limit := queryInt(r, "limit", 0)
	tests, err := h.client.RecentTests(r.Context(), limit)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve tests")
		return
	}

	respondJSON(w, logger, http.StatusOK, tests)
}

// getTest returns a single test
func (h *TestHandler) getTest(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getTest").Logger()

	id := mux.Vars(r)["id"]
	test, err := h.client.GetTest(r.Context(), id)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve test")
		return
	}

	respondJSON(w, logger, http.StatusOK, test)
}

// getTestResults returns the attack events of a test
func (h *TestHandler) getTestResults(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getTestResults").Logger()

	id := mux.Vars(r)["id"]
	results, err := h.client.GetTestResults(r.Context(), id)
	if err != nil {
		respondBackendError(w, logger, err, "Failed to retrieve test results")
		return
	}

	respondJSON(w, logger, http.StatusOK, results)
}
