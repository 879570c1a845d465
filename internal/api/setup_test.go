// internal/api/setup_test.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/config"
	"idslab-dashboard/internal/database"
	"idslab-dashboard/internal/models"
	"idslab-dashboard/internal/poller"
	"idslab-dashboard/internal/report"
)

// fakeBackend is an in-memory stand-in for the testing backend API
type fakeBackend struct {
	mu        sync.Mutex
	fail      bool
	nextID    int
	scenarios []models.AttackScenario
	tests     []models.Test
	results   map[string][]models.TestResult
	envs      []models.LabEnvironment
	configs   []models.IDSConfiguration
	reports   []models.Report
}

func newFakeBackend() *fakeBackend {
	base := time.Now().UTC().Add(-3 * time.Hour).Truncate(time.Minute)
	finished := base.Add(20 * time.Minute)
	detection := 150

	return &fakeBackend{
		nextID: 100,
		scenarios: []models.AttackScenario{
			{ID: "s1", Name: "EternalBlue (MS17-010)", ExploitType: "SMB", TargetIP: "192.168.56.101", TargetPort: 445, Status: models.ScenarioReady},
			{ID: "s2", Name: "Log4Shell (CVE-2021-44228)", ExploitType: "RCE", TargetIP: "192.168.56.102", TargetPort: 8080, Status: models.ScenarioDraft},
		},
		tests: []models.Test{
			{ID: "t1", ScenarioID: "s1", ScenarioName: "EternalBlue (MS17-010)", StartedAt: base, FinishedAt: &finished,
				Status: models.TestCompleted, TotalAttacks: 100, DetectedAttacks: 93, MissedAttacks: 7, FalsePositives: 2},
			{ID: "t2", ScenarioID: "s2", ScenarioName: "Log4Shell (CVE-2021-44228)", StartedAt: base.Add(time.Hour),
				Status: models.TestRunning, TotalAttacks: 20, DetectedAttacks: 15, MissedAttacks: 5},
		},
		results: map[string][]models.TestResult{
			"t1": {
				{ID: "r1", TestID: "t1", AttackType: "SMB", ExploitName: "EternalBlue", IDSDetected: true, DetectionTime: &detection,
					Severity: "critical", Timestamp: base.Add(time.Minute), SourceIP: "192.168.56.10"},
			},
			"t2": {
				{ID: "r2", TestID: "t2", AttackType: "RCE", ExploitName: "Log4Shell", Severity: "high", Timestamp: base.Add(61 * time.Minute)},
			},
		},
		envs: []models.LabEnvironment{
			{ID: "e1", Name: "Kali Attacker", Type: "attacker", Status: "online", CPU: 20, Memory: 40, Network: 10},
			{ID: "e2", Name: "Snort Sensor", Type: "ids", Status: "busy", CPU: 60, Memory: 70, Network: 50},
		},
		configs: []models.IDSConfiguration{
			{ID: "ids1", Name: "Snort", Type: "snort", Version: "3.1", Rules: 30000, Sensitivity: "high", Status: "active"},
		},
		reports: []models.Report{
			{ID: "rep1", Name: "Weekly Summary", Type: "summary", Format: "csv", DateRange: "7", TestsIncluded: 2},
		},
	}
}

func writeBackendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, what string) {
	writeBackendJSON(w, http.StatusNotFound, map[string]string{"message": what + " not found"})
}

// handler routes backend requests under /api
func (f *fakeBackend) handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			fail := f.fail
			f.mu.Unlock()
			if fail {
				writeBackendJSON(w, http.StatusInternalServerError, map[string]string{"message": "Backend unavailable"})
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeBackendJSON(w, http.StatusOK, models.HealthStatus{Status: "ok", Timestamp: time.Now()})
	})

	api.HandleFunc("/scenarios", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, f.scenarios)
	}).Methods("GET")

	api.HandleFunc("/scenarios", func(w http.ResponseWriter, r *http.Request) {
		var s models.AttackScenario
		json.NewDecoder(r.Body).Decode(&s)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		s.ID = fmt.Sprintf("s%d", f.nextID)
		s.CreatedAt = time.Now().UTC()
		f.scenarios = append(f.scenarios, s)
		writeBackendJSON(w, http.StatusCreated, s)
	}).Methods("POST")

	api.HandleFunc("/scenarios/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var s models.AttackScenario
		json.NewDecoder(r.Body).Decode(&s)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.scenarios {
			if f.scenarios[i].ID == id {
				s.ID = id
				f.scenarios[i] = s
				writeBackendJSON(w, http.StatusOK, s)
				return
			}
		}
		notFound(w, "Scenario")
	}).Methods("PUT")

	api.HandleFunc("/scenarios/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.scenarios {
			if f.scenarios[i].ID == id {
				f.scenarios = append(f.scenarios[:i], f.scenarios[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		notFound(w, "Scenario")
	}).Methods("DELETE")

	api.HandleFunc("/scenarios/{id}/run", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		writeBackendJSON(w, http.StatusOK, map[string]string{"testId": "t-" + id, "status": "running"})
	}).Methods("POST")

	api.HandleFunc("/tests", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, f.tests)
	}).Methods("GET")

	api.HandleFunc("/tests/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, t := range f.tests {
			if t.ID == id {
				writeBackendJSON(w, http.StatusOK, t)
				return
			}
		}
		notFound(w, "Test")
	}).Methods("GET")

	api.HandleFunc("/tests/{id}/results", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		results, ok := f.results[mux.Vars(r)["id"]]
		if !ok {
			notFound(w, "Test")
			return
		}
		writeBackendJSON(w, http.StatusOK, results)
	}).Methods("GET")

	api.HandleFunc("/lab/environments", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, f.envs)
	}).Methods("GET")

	api.HandleFunc("/lab/ids-configs", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, f.configs)
	}).Methods("GET")

	api.HandleFunc("/lab/ids-configs/{id}/{field}", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		var body struct {
			Status string `json:"status"`
			Rules  int    `json:"rules"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.configs {
			if f.configs[i].ID == vars["id"] {
				if vars["field"] == "status" {
					f.configs[i].Status = body.Status
				} else {
					f.configs[i].Rules = body.Rules
				}
				writeBackendJSON(w, http.StatusOK, f.configs[i])
				return
			}
		}
		notFound(w, "IDS configuration")
	}).Methods("PUT")

	api.HandleFunc("/reports", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeBackendJSON(w, http.StatusOK, f.reports)
	}).Methods("GET")

	api.HandleFunc("/reports/generate", func(w http.ResponseWriter, r *http.Request) {
		var req models.ReportRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		rep := models.Report{
			ID:            fmt.Sprintf("rep%d", f.nextID),
			Name:          req.Name,
			Type:          req.Type,
			Format:        req.Format,
			DateRange:     req.DateRange,
			DateGenerated: time.Now().UTC(),
			TestsIncluded: len(f.tests),
			Size:          "1.2 MB",
		}
		f.reports = append([]models.Report{rep}, f.reports...)
		writeBackendJSON(w, http.StatusCreated, rep)
	}).Methods("POST")

	api.HandleFunc("/reports/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, rep := range f.reports {
			if rep.ID != id {
				continue
			}
			if r.Method == http.MethodDelete {
				f.reports = append(f.reports[:i], f.reports[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeBackendJSON(w, http.StatusOK, rep)
			return
		}
		notFound(w, "Report")
	}).Methods("GET", "DELETE")

	return r
}

func (f *fakeBackend) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fail
}

// testEnv wires the handlers against a fake backend and a temporary database
type testEnv struct {
	backend *fakeBackend
	db      *database.DB
	poller  *poller.Service
	router  *mux.Router
}

// setupTestEnvironment creates a test environment for the API tests
func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	cfg := config.New()
	cfg.Polling.Enabled = false
	cfg.Polling.Timezone = "UTC"
	dataDir := t.TempDir()
	cfg.Database.Path = filepath.Join(dataDir, "test.db")
	cfg.Database.BackupDir = filepath.Join(dataDir, "backups")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	c := client.New(client.Options{BaseURL: srv.URL + "/api", Timeout: 5 * time.Second})

	p, err := poller.New(cfg, c, db, nil)
	if err != nil {
		t.Fatalf("Failed to create poller: %v", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("Failed to start poller: %v", err)
	}
	t.Cleanup(func() { p.Stop() })

	router := mux.NewRouter()
	NewViewHandler(p).RegisterRoutes(router)
	NewScenarioHandler(c, p).RegisterRoutes(router)
	NewTestHandler(c).RegisterRoutes(router)
	NewLabHandler(c, p).RegisterRoutes(router)
	NewReportHandler(c, p, report.New("IDS Lab"), cfg).RegisterRoutes(router)
	NewStatusHandler(db, p, c, cfg).RegisterRoutes(router)

	return &testEnv{backend: backend, db: db, poller: p, router: router}
}

// do sends a request through the router and returns the recorded response
func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// refresh polls a view and fails the test if the poll did not commit
func (e *testEnv) refresh(t *testing.T, view string) {
	t.Helper()
	if rr := e.do(t, "POST", "/api/views/"+view+"/refresh", nil); rr.Code != http.StatusOK {
		t.Fatalf("Refresh of %s returned %d: %s", view, rr.Code, rr.Body.String())
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to parse response %q: %v", rr.Body.String(), err)
	}
}
