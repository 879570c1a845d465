// Package database provides database operations for the IDS lab dashboard.
// It persists the latest snapshot of every dashboard view together with a log
// of poll outcomes in SQLite, so the last-known data survives restarts.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// DB represents the database connection
type DB struct {
	*sql.DB
	Path   string // Exported for integration tests
	logger *zerolog.Logger
	sync.Mutex
}

// New creates a new database connection
func New(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	logger := log.With().Str("component", "database").Logger()

	dbInstance := &DB{
		DB:     db,
		Path:   path,
		logger: &logger,
	}

	if err := dbInstance.initializeDB(); err != nil {
		db.Close()
		return nil, err
	}

	if err := dbInstance.optimizeDB(); err != nil {
		logger.Warn().Err(err).Msg("Failed to set some database optimization parameters")
	}

	return dbInstance, nil
}

// Initialize database schema
func (db *DB) initializeDB() error {
	db.logger.Info().Msg("Initializing database schema")

	schema := `
	-- Latest snapshot per dashboard view
	CREATE TABLE IF NOT EXISTS snapshots (
		view TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		generation INTEGER NOT NULL DEFAULT 0,
		fetched_at TIMESTAMP,
		error TEXT,
		updated_at TIMESTAMP NOT NULL
	);

	-- Poll outcomes
	CREATE TABLE IF NOT EXISTS poll_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		view TEXT NOT NULL,
		outcome TEXT NOT NULL,
		duration_ms INTEGER DEFAULT 0,
		error TEXT,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_poll_log_view_outcome ON poll_log(view, outcome);
	CREATE INDEX IF NOT EXISTS idx_poll_log_timestamp ON poll_log(timestamp);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return nil
}

// optimizeDB sets SQLite optimization parameters
func (db *DB) optimizeDB() error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA cache_size=-8000"); err != nil { // Approx 8MB cache
		db.logger.Warn().Err(err).Msg("Failed to set cache_size PRAGMA")
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to set busy_timeout PRAGMA")
	}

	return nil
}

// ExecuteWithRetry runs operation, retrying transient lock errors with
// exponential backoff. Other errors are returned immediately.
func (db *DB) ExecuteWithRetry(maxRetries int, initialDelay time.Duration, operation func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialDelay
	bo.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithMaxRetries(bo, uint64(maxRetries)), func(err error, next time.Duration) {
		db.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("maxRetries", maxRetries).
			Dur("next", next).
			Msg("Retrying database operation")
	})
	if err != nil {
		return fmt.Errorf("database operation failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func isRetryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// SaveSnapshot stores the latest snapshot of a view, replacing the previous one
func (db *DB) SaveSnapshot(rec models.SnapshotRecord) error {
	db.Lock()
	defer db.Unlock()

	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}

	return db.ExecuteWithRetry(3, 50*time.Millisecond, func() error {
		_, err := db.Exec(
			`INSERT INTO snapshots (view, payload, generation, fetched_at, error, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(view) DO UPDATE SET
				payload = excluded.payload,
				generation = excluded.generation,
				fetched_at = excluded.fetched_at,
				error = excluded.error,
				updated_at = excluded.updated_at`,
			rec.View, string(rec.Payload), int64(rec.Generation), rec.FetchedAt, rec.Error, rec.UpdatedAt,
		)
		return err
	})
}

// LoadSnapshot returns the stored snapshot of a view or ErrNotFound
func (db *DB) LoadSnapshot(view string) (*models.SnapshotRecord, error) {
	var rec models.SnapshotRecord
	var payload string
	var generation int64
	var fetchedAt sql.NullTime
	var errMsg sql.NullString

	err := db.QueryRow(
		"SELECT view, payload, generation, fetched_at, error, updated_at FROM snapshots WHERE view = ?",
		view,
	).Scan(&rec.View, &payload, &generation, &fetchedAt, &errMsg, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot %s: %w", view, err)
	}

	rec.Payload = []byte(payload)
	rec.Generation = uint64(generation)
	if fetchedAt.Valid {
		rec.FetchedAt = fetchedAt.Time
	}
	rec.Error = errMsg.String
	return &rec, nil
}

// AddPollLog records the outcome of a view poll
func (db *DB) AddPollLog(entry models.PollLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	return db.ExecuteWithRetry(3, 50*time.Millisecond, func() error {
		_, err := db.Exec(
			"INSERT INTO poll_log (view, outcome, duration_ms, error, timestamp) VALUES (?, ?, ?, ?, ?)",
			entry.View, entry.Outcome, entry.Duration, entry.Error, entry.Timestamp,
		)
		return err
	})
}

// GetPollLog retrieves poll log entries, newest first, with optional filters
func (db *DB) GetPollLog(limit int, view, outcome string) ([]*models.PollLog, error) {
	query := "SELECT id, view, outcome, duration_ms, COALESCE(error, ''), timestamp FROM poll_log"
	var args []interface{}
	var conditions []string

	if view != "" {
		conditions = append(conditions, "view = ?")
		args = append(args, view)
	}

	if outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, outcome)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll log: %w", err)
	}
	defer rows.Close()

	var entries []*models.PollLog
	for rows.Next() {
		var entry models.PollLog
		if err := rows.Scan(
			&entry.ID,
			&entry.View,
			&entry.Outcome,
			&entry.Duration,
			&entry.Error,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan poll log row: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll log rows: %w", err)
	}

	return entries, nil
}

// CleanOldData deletes poll log entries older than retentionDays
func (db *DB) CleanOldData(retentionDays int) (int, error) {
	db.Lock()
	defer db.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	res, err := db.Exec("DELETE FROM poll_log WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old poll log entries: %w", err)
	}
	deleted, _ := res.RowsAffected()

	db.logger.Info().
		Int("pollLog", int(deleted)).
		Int("retentionDays", retentionDays).
		Msg("Cleaned old data")

	return int(deleted), nil
}

// OptimizeDatabase performs database maintenance operations
func (db *DB) OptimizeDatabase() error {
	db.Lock()
	defer db.Unlock()

	db.logger.Info().Msg("Optimizing database")

	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("failed to vacuum database: %w", err)
	}

	if _, err := db.Exec("ANALYZE"); err != nil {
		return fmt.Errorf("failed to analyze database: %w", err)
	}

	// PRAGMA settings may reset after VACUUM
	if err := db.optimizeDB(); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to reset optimization parameters after vacuum")
	}

	return nil
}

// BackupDatabase writes a consistent copy of the database into backupDir
func (db *DB) BackupDatabase(backupDir string) (string, error) {
	db.Lock()
	defer db.Unlock()

	if backupDir == "" {
		backupDir = filepath.Join(filepath.Dir(db.Path), "backups")
	}
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	base := filepath.Base(db.Path)
	ext := filepath.Ext(base)
	name := fmt.Sprintf("%s_%s%s", strings.TrimSuffix(base, ext), time.Now().Format("20060102_150405"), ext)
	backupPath := filepath.Join(backupDir, name)

	if _, err := db.Exec("PRAGMA wal_checkpoint(FULL)"); err != nil {
		db.logger.Warn().Err(err).Msg("Failed to checkpoint WAL before backup")
	}

	if _, err := db.Exec("VACUUM INTO ?", backupPath); err != nil {
		return "", fmt.Errorf("failed to backup database: %w", err)
	}

	db.logger.Info().Str("path", backupPath).Msg("Database backup created")
	return backupPath, nil
}

// GetDatabaseStats returns statistics about the database
func (db *DB) GetDatabaseStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var snapshotCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&snapshotCount); err != nil {
		return nil, fmt.Errorf("failed to get snapshot count: %w", err)
	}
	stats["snapshotCount"] = snapshotCount

	var pollCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM poll_log").Scan(&pollCount); err != nil {
		return nil, fmt.Errorf("failed to get poll count: %w", err)
	}
	stats["pollCount"] = pollCount

	outcomes := make(map[string]int)
	rows, err := db.Query("SELECT outcome, COUNT(*) FROM poll_log GROUP BY outcome")
	if err != nil {
		db.logger.Warn().Err(err).Msg("Failed to get poll outcome distribution")
	} else {
		defer rows.Close()
		for rows.Next() {
			var outcome string
			var count int
			if err := rows.Scan(&outcome, &count); err != nil {
				db.logger.Warn().Err(err).Msg("Failed to scan poll outcome row")
				continue
			}
			outcomes[outcome] = count
		}
		if err = rows.Err(); err != nil {
			db.logger.Warn().Err(err).Msg("Error iterating poll outcome rows")
		}
	}
	stats["pollOutcomes"] = outcomes

	fileInfo, err := os.Stat(db.Path)
	if err != nil {
		db.logger.Warn().Err(err).Msg("Failed to get database file size")
		stats["sizeBytes"] = int64(0)
	} else {
		stats["sizeBytes"] = fileInfo.Size()
	}

	return stats, nil
}
