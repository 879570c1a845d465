// internal/api/report_handlers_test.go
package api

import (
	"bytes"
	"net/http"
	"strings"
	"testing"

	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
)

func getReportsSnapshot(t *testing.T, env *testEnv) poller.Snapshot[models.ReportsView] {
	t.Helper()
	rr := env.do(t, "GET", "/api/reports", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	var snap poller.Snapshot[models.ReportsView]
	decodeBody(t, rr, &snap)
	return snap
}

func TestGenerateReport(t *testing.T) {
	env := setupTestEnvironment(t)
	env.refresh(t, poller.ViewReports)

	rr := env.do(t, "POST", "/api/reports/generate", models.ReportRequest{Name: "Q3 Review", Format: "csv"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Handler returned wrong status code: got %v want %v: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var rep models.Report
	decodeBody(t, rr, &rep)
	if rep.Type != "summary" || rep.DateRange != "30" {
		t.Errorf("Expected defaults to be applied, got %+v", rep)
	}

	snap := getReportsSnapshot(t, env)
	if len(snap.Data.Reports) != 2 || snap.Data.Reports[0].Name != "Q3 Review" {
		t.Errorf("Expected the new report first, got %+v", snap.Data.Reports)
	}
}

func TestGenerateReportValidation(t *testing.T) {
	env := setupTestEnvironment(t)

	tests := []struct {
		name string
		req  models.ReportRequest
	}{
		{"missing name", models.ReportRequest{}},
		{"bad type", models.ReportRequest{Name: "x", Type: "weekly"}},
		{"bad format", models.ReportRequest{Name: "x", Format: "docx"}},
		{"bad range", models.ReportRequest{Name: "x", DateRange: "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, "POST", "/api/reports/generate", tt.req)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestGetReport(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/reports/rep1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}

	rr = env.do(t, "GET", "/api/reports/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

func TestExportReportCSV(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/reports/rep1/export?raw=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") || !strings.Contains(cd, ".csv") {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}

	body := rr.Body.String()
	for _, want := range []string{"Weekly Summary", "Total Attacks,120", "Test ID", "t1", "Threshold"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected export to contain %q", want)
		}
	}
}

func TestExportReportFormats(t *testing.T) {
	env := setupTestEnvironment(t)

	rr := env.do(t, "GET", "/api/reports/rep1/export?format=pdf", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF-")) {
		t.Error("Expected a PDF document")
	}

	rr = env.do(t, "GET", "/api/reports/rep1/export?format=json&charts=false", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if strings.Contains(rr.Body.String(), `"hourly"`) {
		t.Error("Expected charts to be omitted")
	}

	rr = env.do(t, "GET", "/api/reports/rep1/export?format=docx", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusBadRequest)
	}

	rr = env.do(t, "GET", "/api/reports/missing/export", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusNotFound)
	}
}

func TestDeleteReport(t *testing.T) {
	env := setupTestEnvironment(t)
	env.refresh(t, poller.ViewReports)

	rr := env.do(t, "DELETE", "/api/reports/rep1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Handler returned wrong status code: got %v want %v", rr.Code, http.StatusNoContent)
	}

	snap := getReportsSnapshot(t, env)
	if len(snap.Data.Reports) != 0 {
		t.Errorf("Expected no reports, got %+v", snap.Data.Reports)
	}
}
