// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "config.yaml")
	testConfig := `
server:
  port: 9090
  host: "127.0.0.1"

backend:
  baseURL: "http://backend.lab:3001/api"
  timeout: "5s"
  requestsPerSecond: 4

polling:
  dashboard: "7s"
  analytics: "20s"
  timezone: "UTC"

database:
  path: "` + filepath.Join(tempDir, "data", "test.db") + `"
  backupDir: "` + filepath.Join(tempDir, "backups") + `"
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Backend.BaseURL != "http://backend.lab:3001/api" {
		t.Errorf("Expected backend URL http://backend.lab:3001/api, got %s", cfg.Backend.BaseURL)
	}

	if cfg.Backend.RequestsPerSecond != 4 {
		t.Errorf("Expected 4 requests per second, got %v", cfg.Backend.RequestsPerSecond)
	}

	// Unset keys keep their defaults
	if cfg.Polling.Scenarios != "15s" {
		t.Errorf("Expected default scenarios interval 15s, got %s", cfg.Polling.Scenarios)
	}

	if _, err := os.Stat(filepath.Join(tempDir, "data")); err != nil {
		t.Errorf("Expected database directory to be created: %v", err)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg := New()
	if err := cfg.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Expected error for missing configuration file, got nil")
	}
}

func TestAPIURLEnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	testConfig := `
backend:
  baseURL: "http://from-file:3001/api"
database:
  path: "` + filepath.Join(tempDir, "test.db") + `"
  backupDir: ""
`
	if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	t.Setenv(APIURLEnv, "http://from-env:4000/api")

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Backend.BaseURL != "http://from-env:4000/api" {
		t.Errorf("Expected env override, got %s", cfg.Backend.BaseURL)
	}
}

func TestReload(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	dbLine := "database:\n  path: \"" + filepath.Join(tempDir, "test.db") + "\"\n  backupDir: \"\"\n"

	if err := os.WriteFile(configPath, []byte("server:\n  port: 9090\n"+dbLine), 0644); err != nil {
		t.Fatalf("Failed to write initial config: %v", err)
	}

	cfg := New()
	if err := cfg.LoadConfig(configPath); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected initial port 9090, got %d", cfg.Server.Port)
	}

	if err := os.WriteFile(configPath, []byte("server:\n  port: 8181\n"+dbLine), 0644); err != nil {
		t.Fatalf("Failed to write updated config: %v", err)
	}

	if err := cfg.Reload(); err != nil {
		t.Errorf("Reload returned error: %v", err)
	}

	if cfg.Server.Port != 8181 {
		t.Errorf("Expected updated port 8181, got %d", cfg.Server.Port)
	}
}

func TestReloadWithoutFile(t *testing.T) {
	if err := New().Reload(); err == nil {
		t.Errorf("Expected error reloading a config that was never loaded")
	}
}

func TestGetPollInterval(t *testing.T) {
	cfg := New()
	cfg.Polling.Lab = "12s"

	d, err := cfg.GetPollInterval("lab")
	if err != nil {
		t.Fatalf("GetPollInterval returned error: %v", err)
	}
	if d != 12*time.Second {
		t.Errorf("Expected 12s, got %v", d)
	}

	d, err = cfg.GetPollInterval("dashboard")
	if err != nil || d != 5*time.Second {
		t.Errorf("Expected default dashboard interval 5s, got %v (err %v)", d, err)
	}

	if _, err := cfg.GetPollInterval("settings"); err == nil {
		t.Errorf("Expected error for unknown view, got nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate returned error for default config: %v", err)
	}

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for invalid port, got nil")
	}
	cfg.Server.Port = 8080

	cfg.Backend.BaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for missing backend URL, got nil")
	}
	cfg.Backend.BaseURL = "http://localhost:3001/api"

	cfg.Backend.Timeout = "soon"
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for invalid backend timeout, got nil")
	}
	cfg.Backend.Timeout = "10s"

	cfg.Polling.Analytics = "0s"
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for zero polling interval, got nil")
	}
	cfg.Polling.Analytics = "30s"

	cfg.Polling.Timezone = "Mars/Olympus"
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for invalid timezone, got nil")
	}
	cfg.Polling.Timezone = "UTC"

	cfg.Reporting.DefaultFormat = "docx"
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for invalid report format, got nil")
	}
	cfg.Reporting.DefaultFormat = "pdf"

	cfg.Database.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("Expected error for missing database path, got nil")
	}
}

func TestSaveConfig(t *testing.T) {
	tempDir := t.TempDir()

	cfg := New()
	cfg.Database.Path = filepath.Join(tempDir, "test.db")
	cfg.Database.BackupDir = ""
	cfg.Server.Port = 9999
	cfg.Polling.Reports = "25s"

	savePath := filepath.Join(tempDir, "saved-config.yaml")
	if err := cfg.SaveConfig(savePath); err != nil {
		t.Fatalf("SaveConfig returned error: %v", err)
	}

	if _, err := os.Stat(savePath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", savePath)
	}

	newCfg := New()
	if err := newCfg.LoadConfig(savePath); err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}

	if newCfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", newCfg.Server.Port)
	}

	if newCfg.Polling.Reports != "25s" {
		t.Errorf("Expected reports interval 25s, got %s", newCfg.Polling.Reports)
	}
}

func TestGetConfigSingleton(t *testing.T) {
	if GetConfig() != GetConfig() {
		t.Errorf("Expected GetConfig to return the same instance")
	}
}
