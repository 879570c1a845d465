// internal/api/test_handlers_test.go
package api

import (
	"net/http"
	"testing"

	"idslab-dashboard/internal/models"
)

func TestGetTests(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/tests", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var tests []models.Test
	decodeBody(t, rr, &tests)
	if len(tests) != 2 || tests[0].ID != "t2" {
		t.Errorf("Expected 2 tests newest first, got %+v", tests)
	}

	tests = nil
	decodeBody(t, env.do(t, "GET", "/api/tests?limit=1", nil), &tests)
	if len(tests) != 1 || tests[0].ID != "t2" {
		t.Errorf("Expected only the newest test, got %+v", tests)
	}
}

func TestGetTest(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/tests/t1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var test models.Test
	decodeBody(t, rr, &test)
	if test.ScenarioID != "s1" || test.DetectedAttacks != 93 {
		t.Errorf("Unexpected test: %+v", test)
	}

	rr = env.do(t, "GET", "/api/tests/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

func TestGetTestResults(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/tests/t1/results", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var results []models.TestResult
	decodeBody(t, rr, &results)
	if len(results) != 1 || !results[0].IDSDetected {
		t.Errorf("Unexpected results: %+v", results)
	}
	if results[0].DetectionTime == nil || *results[0].DetectionTime != 150 {
		t.Errorf("Expected detection time 150ms, got %v", results[0].DetectionTime)
	}
}
