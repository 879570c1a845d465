// internal/api/status_handlers.go
package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/config"
	"idslab-dashboard/internal/database"
	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
)

// StatusHandler handles system status-related API endpoints
type StatusHandler struct {
	db        *database.DB
	poller    *poller.Service
	client    *client.Client
	cfg       *config.Config
	startTime time.Time
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(db *database.DB, p *poller.Service, c *client.Client, cfg *config.Config) *StatusHandler {
	return &StatusHandler{
		db:        db,
		poller:    p,
		client:    c,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/status", h.getSystemStatus).Methods("GET")
	r.HandleFunc("/api/status/health", h.getHealthCheck).Methods("GET")
	r.HandleFunc("/api/status/polls", h.getPollLog).Methods("GET")
	r.HandleFunc("/api/status/backup", h.createBackup).Methods("POST")
}

// getSystemStatus returns the overall system status
func (h *StatusHandler) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getSystemStatus").Logger()

	// Get database statistics
	dbStats, err := h.db.GetDatabaseStats()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve database stats")
	}

	// Get memory statistics
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Any view with a failed poll degrades the status
	views := h.poller.GetStatus()
	status := "healthy"
	for _, v := range views {
		if v.Error != "" {
			status = "degraded"
			break
		}
	}

	response := map[string]interface{}{
		"status":    status,
		"uptime":    time.Since(h.startTime).String(),
		"startTime": h.startTime,
		"system": map[string]interface{}{
			"goVersion":    runtime.Version(),
			"goArch":       runtime.GOARCH,
			"goOS":         runtime.GOOS,
			"numCPU":       runtime.NumCPU(),
			"numGoroutine": runtime.NumGoroutine(),
		},
		"memory": map[string]interface{}{
			"alloc":       memStats.Alloc / 1024 / 1024, // MB
			"sys":         memStats.Sys / 1024 / 1024,   // MB
			"numGC":       memStats.NumGC,
			"heapObjects": memStats.HeapObjects,
		},
		"config": map[string]interface{}{
			"serverPort":     h.cfg.Server.Port,
			"backendURL":     h.client.BaseURL(),
			"pollingEnabled": h.cfg.Polling.Enabled,
			"timezone":       h.cfg.Polling.Timezone,
			"loggingLevel":   h.cfg.Logging.Level,
		},
		"polling": map[string]interface{}{
			"running": h.poller.IsRunning(),
			"views":   views,
		},
		"database": map[string]interface{}{
			"path":          h.cfg.Database.Path,
			"size":          dbStats["sizeBytes"],
			"snapshotCount": dbStats["snapshotCount"],
			"pollCount":     dbStats["pollCount"],
			"pollOutcomes":  dbStats["pollOutcomes"],
			"retentionDays": h.cfg.Database.DataRetentionDays,
		},
		"timestamp": time.Now(),
	}

	respondJSON(w, logger, http.StatusOK, response)
}

// getHealthCheck reports the health of the local database and the backend
func (h *StatusHandler) getHealthCheck(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getHealthCheck").Logger()

	// Check local database
	status := "healthy"
	dbStatus := "ok"
	if err := h.db.Ping(); err != nil {
		logger.Error().Err(err).Msg("Database ping failed")
		dbStatus = "error"
		status = "unhealthy"
	}

	// Check backend
	backend := h.client.Health(r.Context())
	if backend.Status == "error" && status == "healthy" {
		status = "degraded"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, logger, code, map[string]interface{}{
		"status":    status,
		"database":  dbStatus,
		"backend":   backend,
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startTime).String(),
	})
}

// getPollLog returns recent poll outcomes, optionally filtered by view and outcome
func (h *StatusHandler) getPollLog(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "getPollLog").Logger()

	// Parse query parameters
	limit := queryInt(r, "limit", 100)
	view := r.URL.Query().Get("view")
	outcome := r.URL.Query().Get("outcome")

	if view != "" {
		if _, err := h.poller.ViewStatus(view); err != nil {
			http.Error(w, "Unknown view", http.StatusBadRequest)
			return
		}
	}

	// Get poll log from database
	entries, err := h.db.GetPollLog(limit, view, outcome)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to retrieve poll log")
		http.Error(w, "Failed to retrieve poll log", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []*models.PollLog{}
	}

	respondJSON(w, logger, http.StatusOK, entries)
}

// createBackup writes a copy of the snapshot database into the configured backup directory
func (h *StatusHandler) createBackup(w http.ResponseWriter, r *http.Request) {
	logger := log.With().Str("handler", "createBackup").Logger()

	path, err := h.db.BackupDatabase(h.cfg.Database.BackupDir)
	if err != nil {
		logger.Error().Err(err).Msg("Database backup failed")
		http.Error(w, "Failed to back up database", http.StatusInternalServerError)
		return
	}

	logger.Info().Str("path", path).Msg("Database backed up")
	respondJSON(w, logger, http.StatusCreated, map[string]interface{}{
		"path":      path,
		"timestamp": time.Now(),
	})
}
