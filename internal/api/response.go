// Package api provides HTTP handlers for the IDS lab dashboard REST API.
// Page views are served from the pollers' snapshots; writes are forwarded to
// the testing backend and applied locally once the backend accepts them.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"idslab-dashboard/internal/client"
)

// respondJSON writes v as a JSON response with the given status code
func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error().Err(err).Msg("Failed to encode response")
	}
}

// respondBackendError maps a failed backend call to an HTTP error. A backend
// 404 stays a 404; everything else is a 502 carrying the backend message.
func respondBackendError(w http.ResponseWriter, logger zerolog.Logger, err error, msg string) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		logger.Error().Err(err).Int("statusCode", apiErr.StatusCode).Msg(msg)
		if apiErr.StatusCode == http.StatusNotFound {
			http.Error(w, apiErr.Message, http.StatusNotFound)
			return
		}
		http.Error(w, apiErr.Message, http.StatusBadGateway)
		return
	}

	logger.Error().Err(err).Msg(msg)
	http.Error(w, msg+": "+err.Error(), http.StatusBadGateway)
}

// queryInt parses a non-negative integer query parameter, falling back to def
func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// queryBool parses a boolean query parameter, falling back to def
func queryBool(r *http.Request, name string, def bool) bool {
	if v := r.URL.Query().Get(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
