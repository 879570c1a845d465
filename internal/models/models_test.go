// internal/models/models_test.go
package models

import (
	"encoding/json"
	"testing"
	"time"
)

// TestTestDecodeBackendPayload tests decoding a test record as the backend emits it
func TestTestDecodeBackendPayload(t *testing.T) {
	payload := `{
		"id": "t1",
		"scenarioId": "1",
		"scenarioName": "EternalBlue (MS17-010)",
		"startedAt": "2024-12-01T10:15:00.000Z",
		"status": "running",
		"totalAttacks": 50,
		"detectedAttacks": 47,
		"missedAttacks": 3,
		"falsePositives": 2
	}`

	var test Test
	if err := json.Unmarshal([]byte(payload), &test); err != nil {
		t.Fatalf("Failed to unmarshal Test: %v", err)
	}

	if test.ScenarioID != "1" {
		t.Errorf("ScenarioID mismatch: got %s, expected 1", test.ScenarioID)
	}
	if test.StartedAt.Hour() != 10 || test.StartedAt.Minute() != 15 {
		t.Errorf("StartedAt parsed incorrectly: %v", test.StartedAt)
	}
	if test.FinishedAt != nil {
		t.Errorf("Expected nil FinishedAt for a running test, got %v", test.FinishedAt)
	}
	if test.DetectedAttacks != 47 || test.FalsePositives != 2 {
		t.Errorf("Counters mismatch: %+v", test)
	}
}

// TestTestResultOptionalDetectionTime tests that a missing detection time stays nil
func TestTestResultOptionalDetectionTime(t *testing.T) {
	var missed TestResult
	if err := json.Unmarshal([]byte(`{"id":"r1","idsDetected":false,"severity":"high"}`), &missed); err != nil {
		t.Fatalf("Failed to unmarshal TestResult: %v", err)
	}
	if missed.DetectionTime != nil {
		t.Errorf("Expected nil DetectionTime, got %d", *missed.DetectionTime)
	}

	ms := 1247
	detected := TestResult{ID: "r2", IDSDetected: true, DetectionTime: &ms, Timestamp: time.Now()}
	data, err := json.Marshal(detected)
	if err != nil {
		t.Fatalf("Failed to marshal TestResult: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal into map: %v", err)
	}
	if fields["detectionTime"] != float64(1247) {
		t.Errorf("Expected detectionTime 1247, got %v", fields["detectionTime"])
	}
	if _, ok := fields["idsDetected"]; !ok {
		t.Errorf("Expected idsDetected field in JSON output")
	}
}

// TestValidators tests the enum membership helpers
func TestValidators(t *testing.T) {
	for _, s := range []string{"draft", "ready", "running", "completed"} {
		if !ValidScenarioStatus(s) {
			t.Errorf("Expected %q to be a valid scenario status", s)
		}
	}
	if ValidScenarioStatus("failed") {
		t.Errorf("Expected failed to be rejected as a scenario status")
	}

	if !ValidIDSStatus("active") || !ValidIDSStatus("inactive") || ValidIDSStatus("paused") {
		t.Errorf("IDS status validation mismatch")
	}

	if !ValidReportType("comparative") || ValidReportType("weekly") {
		t.Errorf("Report type validation mismatch")
	}

	if !ValidReportFormat("csv") || ValidReportFormat("xlsx") {
		t.Errorf("Report format validation mismatch")
	}
}
