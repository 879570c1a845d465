// Command idslabd is the main executable for the IDS lab dashboard service.
// It initializes the database, the backend client and the view pollers, serves
// the dashboard REST API, and handles graceful shutdown when terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/api"
	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/config"
	"idslab-dashboard/internal/database"
	"idslab-dashboard/internal/metrics"
	"idslab-dashboard/internal/poller"
	"idslab-dashboard/internal/report"
)

// Global variables for command line flags
var logLevelFlag string

// parseFlags parses command line flags and returns the config path
func parseFlags() string {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flag.Parse()
	return *configPath
}

// setupLogging configures the global logger. Format "json" writes structured
// lines; anything else writes colored console output.
func setupLogging(w io.Writer, level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "json" {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
}

// newRouter registers every API handler and wraps the router in CORS
func newRouter(cfg *config.Config, db *database.DB, c *client.Client, p *poller.Service, m *metrics.Metrics) http.Handler {
	router := mux.NewRouter()

	api.NewViewHandler(p).RegisterRoutes(router)
	api.NewScenarioHandler(c, p).RegisterRoutes(router)
	api.NewTestHandler(c).RegisterRoutes(router)
	api.NewLabHandler(c, p).RegisterRoutes(router)
	api.NewReportHandler(c, p, report.New(cfg.Reporting.Author), cfg).RegisterRoutes(router)
	api.NewStatusHandler(db, p, c, cfg).RegisterRoutes(router)

	if cfg.Advanced.MetricsEnabled && m != nil {
		router.Handle(cfg.Advanced.MetricsEndpoint, m.Handler()).Methods("GET")
	}

	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return corsMiddleware(router)
}

// runRetention backs up the database and prunes the poll log on every tick
// until ctx is cancelled. An empty backupDir skips the backup.
func runRetention(ctx context.Context, db *database.DB, days int, backupDir string, every time.Duration) {
	if days <= 0 && backupDir == "" {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Back up before pruning so the copy still holds the old entries
			if backupDir != "" {
				if _, err := db.BackupDatabase(backupDir); err != nil {
					log.Error().Err(err).Msg("Scheduled database backup failed")
				}
			}

			if days <= 0 {
				continue
			}
			removed, err := db.CleanOldData(days)
			if err != nil {
				log.Error().Err(err).Msg("Poll log cleanup failed")
				continue
			}
			log.Info().Int("removed", removed).Int("retentionDays", days).Msg("Poll log cleaned")
		}
	}
}

func main() {
	// Parse command line flags
	configPath := parseFlags()

	// Bootstrap logging until the configuration says otherwise
	setupLogging(os.Stderr, logLevelFlag, "console")

	log.Info().Msg("Starting IDS lab dashboard")

	// Load configuration
	cfg := config.GetConfig()
	if err := cfg.LoadConfig(configPath); err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load configuration")
	}

	level := cfg.Logging.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	setupLogging(os.Stderr, level, cfg.Logging.Format)

	// Initialize database
	log.Info().Str("path", cfg.Database.Path).Msg("Initializing database")
	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	var m *metrics.Metrics
	if cfg.Advanced.MetricsEnabled {
		m = metrics.New()
	}

	timeout, err := cfg.GetBackendTimeout()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid backend timeout")
	}

	// Initialize backend client
	log.Info().Str("baseURL", cfg.Backend.BaseURL).Msg("Initializing backend client")
	backend := client.New(client.Options{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		UserAgent:         cfg.Backend.UserAgent,
		Metrics:           m,
	})

	// Initialize view pollers
	log.Info().Msg("Initializing view pollers")
	pollService, err := poller.New(cfg, backend, db, m)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create poller")
	}
	if err := pollService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start poller")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runRetention(ctx, db, cfg.Database.DataRetentionDays, cfg.Database.BackupDir, 24*time.Hour)

	// Set up HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      newRouter(cfg, db, backend, pollService, m),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Set up signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for termination signal
	sig := <-signalChan
	log.Info().Str("signal", sig.String()).Msg("Received termination signal")

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("Shutting down HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Stopping view pollers")
	if err := pollService.Stop(); err != nil {
		log.Error().Err(err).Msg("Poller shutdown failed")
	}

	// Optimize database before exit
	log.Info().Msg("Optimizing database before exit")
	if err := db.OptimizeDatabase(); err != nil {
		log.Error().Err(err).Msg("Database optimization failed")
	}

	log.Info().Msg("IDS lab dashboard has been shut down gracefully")
}
