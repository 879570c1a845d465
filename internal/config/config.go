// Package config manages the IDS lab dashboard configuration.
// It handles loading, validating, and providing access to configuration settings
// from YAML files. It includes defaults for all settings and implements thread-safe
// access to configuration values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// APIURLEnv overrides Backend.BaseURL when set
const APIURLEnv = "IDSLAB_API_URL"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port            int      `yaml:"port"`
		Host            string   `yaml:"host"`
		AllowedOrigins  []string `yaml:"allowedOrigins"`
		ReadTimeout     int      `yaml:"readTimeout"`
		WriteTimeout    int      `yaml:"writeTimeout"`
		ShutdownTimeout int      `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Backend struct {
		BaseURL           string  `yaml:"baseURL"`
		Timeout           string  `yaml:"timeout"`
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		UserAgent         string  `yaml:"userAgent"`
	} `yaml:"backend"`

	Polling struct {
		Enabled          bool   `yaml:"enabled"`
		Dashboard        string `yaml:"dashboard"`
		Analytics        string `yaml:"analytics"`
		Scenarios        string `yaml:"scenarios"`
		Lab              string `yaml:"lab"`
		Reports          string `yaml:"reports"`
		Timezone         string `yaml:"timezone"`
		RecentTestsLimit int    `yaml:"recentTestsLimit"`
		FeedLimit        int    `yaml:"feedLimit"`
	} `yaml:"polling"`

	Database struct {
		Path              string `yaml:"path"`
		BackupDir         string `yaml:"backupDir"`
		DataRetentionDays int    `yaml:"dataRetentionDays"`
		MaxConnections    int    `yaml:"maxConnections"`
		JournalMode       string `yaml:"journalMode"`
		SynchronousMode   string `yaml:"synchronousMode"`
	} `yaml:"database"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Reporting struct {
		DefaultFormat string `yaml:"defaultFormat"`
		Author        string `yaml:"author"`
	} `yaml:"reporting"`

	Advanced struct {
		MetricsEnabled  bool   `yaml:"metricsEnabled"`
		MetricsEndpoint string `yaml:"metricsEndpoint"`
	} `yaml:"advanced"`

	path string
	mu   sync.RWMutex
}

var (
	instance *Config
	once     sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		instance = &Config{}
		setDefaults(instance)
	})
	return instance
}

// New returns a standalone configuration populated with defaults
func New() *Config {
	c := &Config{}
	setDefaults(c)
	return c
}

// LoadConfig loads configuration from a YAML file
func (c *Config) LoadConfig(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Save path for potential reloading
	c.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("configuration file does not exist: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}

	c.applyEnv()

	dirs := []string{
		c.Database.BackupDir,
		filepath.Dir(c.Database.Path),
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Info().Str("path", path).Msg("Configuration loaded successfully")
	return nil
}

// applyEnv applies environment overrides. Callers must hold the lock.
func (c *Config) applyEnv() {
	if url := os.Getenv(APIURLEnv); url != "" {
		c.Backend.BaseURL = url
	}
}

// Reload reloads the configuration from the file
func (c *Config) Reload() error {
	if c.path == "" {
		return errors.New("configuration was not loaded from a file")
	}
	return c.LoadConfig(c.path)
}

// SaveConfig saves the current configuration to a file
func (c *Config) SaveConfig(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	return nil
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.validate()
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Backend.BaseURL == "" {
		return errors.New("backend base URL is required")
	}

	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		return fmt.Errorf("invalid backend timeout: %s", c.Backend.Timeout)
	}

	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests per second: %v", c.Backend.RequestsPerSecond)
	}

	intervals := map[string]string{
		"dashboard": c.Polling.Dashboard,
		"analytics": c.Polling.Analytics,
		"scenarios": c.Polling.Scenarios,
		"lab":       c.Polling.Lab,
		"reports":   c.Polling.Reports,
	}
	for view, value := range intervals {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s polling interval: %s", view, value)
		}
		if d <= 0 {
			return fmt.Errorf("%s polling interval must be positive: %s", view, value)
		}
	}

	if _, err := time.LoadLocation(c.Polling.Timezone); err != nil {
		return fmt.Errorf("invalid polling timezone: %s", c.Polling.Timezone)
	}

	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch c.Reporting.DefaultFormat {
	case "pdf", "csv", "json":
	default:
		return fmt.Errorf("invalid default report format: %s", c.Reporting.DefaultFormat)
	}

	return nil
}

// GetBackendTimeout returns the backend request timeout as a parsed duration
func (c *Config) GetBackendTimeout() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.ParseDuration(c.Backend.Timeout)
}

// GetPollInterval returns the polling interval configured for a view
func (c *Config) GetPollInterval(view string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var value string
	switch view {
	case "dashboard":
		value = c.Polling.Dashboard
	case "analytics":
		value = c.Polling.Analytics
	case "scenarios":
		value = c.Polling.Scenarios
	case "lab":
		value = c.Polling.Lab
	case "reports":
		value = c.Polling.Reports
	default:
		return 0, fmt.Errorf("unknown view: %s", view)
	}
	return time.ParseDuration(value)
}

// GetLocation returns the timezone used for hour-of-day bucketing
func (c *Config) GetLocation() (*time.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return time.LoadLocation(c.Polling.Timezone)
}

// setDefaults initializes the configuration with default values
func setDefaults(c *Config) {
	// Server defaults
	c.Server.Port = 8080
	c.Server.Host = "127.0.0.1"
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ReadTimeout = 30
	c.Server.WriteTimeout = 30
	c.Server.ShutdownTimeout = 10

	// Backend defaults
	c.Backend.BaseURL = "http://localhost:3001/api"
	c.Backend.Timeout = "10s"
	c.Backend.RequestsPerSecond = 20
	c.Backend.UserAgent = "idslab-dashboard/1.0"

	// Polling defaults
	c.Polling.Enabled = true
	c.Polling.Dashboard = "5s"
	c.Polling.Analytics = "30s"
	c.Polling.Scenarios = "15s"
	c.Polling.Lab = "10s"
	c.Polling.Reports = "30s"
	c.Polling.Timezone = "Local"
	c.Polling.RecentTestsLimit = 5
	c.Polling.FeedLimit = 10

	// Database defaults
	c.Database.Path = "./data/idslab.db"
	c.Database.BackupDir = "./data/backups"
	c.Database.DataRetentionDays = 30
	c.Database.MaxConnections = 1
	c.Database.JournalMode = "WAL"
	c.Database.SynchronousMode = "NORMAL"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "console"

	// Reporting defaults
	c.Reporting.DefaultFormat = "pdf"
	c.Reporting.Author = "IDS Lab"

	// Advanced defaults
	c.Advanced.MetricsEnabled = true
	c.Advanced.MetricsEndpoint = "/metrics"
}
