package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/models"
)

// ListScenarios fetches scenarios, optionally filtered by status on the backend
func (c *Client) ListScenarios(ctx context.Context, status string) ([]models.AttackScenario, error) {
	endpoint := "/scenarios"
	if status != "" {
		endpoint += "?status=" + url.QueryEscape(status)
	}
	var scenarios []models.AttackScenario
	err := c.do(ctx, http.MethodGet, endpoint, nil, &scenarios)
	return scenarios, err
}

// GetScenario fetches a single scenario
func (c *Client) GetScenario(ctx context.Context, id string) (models.AttackScenario, error) {
	var scenario models.AttackScenario
	err := c.do(ctx, http.MethodGet, "/scenarios/"+url.PathEscape(id), nil, &scenario)
	return scenario, err
}

// CreateScenario creates a scenario and returns the stored record
func (c *Client) CreateScenario(ctx context.Context, scenario models.AttackScenario) (models.AttackScenario, error) {
	var created models.AttackScenario
	err := c.do(ctx, http.MethodPost, "/scenarios", scenario, &created)
	return created, err
}

// UpdateScenario replaces a scenario and returns the stored record
func (c *Client) UpdateScenario(ctx context.Context, id string, scenario models.AttackScenario) (models.AttackScenario, error) {
	var updated models.AttackScenario
	err := c.do(ctx, http.MethodPut, "/scenarios/"+url.PathEscape(id), scenario, &updated)
	return updated, err
}

// DeleteScenario deletes a scenario
func (c *Client) DeleteScenario(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/scenarios/"+url.PathEscape(id), nil, nil)
}

// RunScenario starts a test run of a scenario. The backend response is returned verbatim.
func (c *Client) RunScenario(ctx context.Context, id string) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.do(ctx, http.MethodPost, "/scenarios/"+url.PathEscape(id)+"/run", nil, &raw)
	return raw, err
}

// ListTests fetches all tests
func (c *Client) ListTests(ctx context.Context) ([]models.Test, error) {
	var tests []models.Test
	err := c.do(ctx, http.MethodGet, "/tests", nil, &tests)
	return tests, err
}

// RecentTests fetches all tests and returns the newest limit of them
func (c *Client) RecentTests(ctx context.Context, limit int) ([]models.Test, error) {
	tests, err := c.ListTests(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.RecentTests(tests, limit), nil
}

// GetTest fetches a single test
func (c *Client) GetTest(ctx context.Context, id string) (models.Test, error) {
	var test models.Test
	err := c.do(ctx, http.MethodGet, "/tests/"+url.PathEscape(id), nil, &test)
	return test, err
}

// GetTestResults fetches the attack events of a test
func (c *Client) GetTestResults(ctx context.Context, id string) ([]models.TestResult, error) {
	var results []models.TestResult
	err := c.do(ctx, http.MethodGet, "/tests/"+url.PathEscape(id)+"/results", nil, &results)
	return results, err
}

// ListEnvironments fetches the lab hosts
func (c *Client) ListEnvironments(ctx context.Context) ([]models.LabEnvironment, error) {
	var envs []models.LabEnvironment
	err := c.do(ctx, http.MethodGet, "/lab/environments", nil, &envs)
	return envs, err
}

// ListIDSConfigs fetches the lab detector configurations
func (c *Client) ListIDSConfigs(ctx context.Context) ([]models.IDSConfiguration, error) {
	var configs []models.IDSConfiguration
	err := c.do(ctx, http.MethodGet, "/lab/ids-configs", nil, &configs)
	return configs, err
}

// UpdateIDSStatus activates or deactivates a detector
func (c *Client) UpdateIDSStatus(ctx context.Context, id, status string) (models.IDSConfiguration, error) {
	var cfg models.IDSConfiguration
	body := map[string]string{"status": status}
	err := c.do(ctx, http.MethodPut, "/lab/ids-configs/"+url.PathEscape(id)+"/status", body, &cfg)
	return cfg, err
}

// UpdateIDSRules sets the rule count of a detector
func (c *Client) UpdateIDSRules(ctx context.Context, id string, rules int) (models.IDSConfiguration, error) {
	var cfg models.IDSConfiguration
	body := map[string]int{"rules": rules}
	err := c.do(ctx, http.MethodPut, "/lab/ids-configs/"+url.PathEscape(id)+"/rules", body, &cfg)
	return cfg, err
}

// ListReports fetches the generated reports
func (c *Client) ListReports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	err := c.do(ctx, http.MethodGet, "/reports", nil, &reports)
	return reports, err
}

// GetReport fetches a single report
func (c *Client) GetReport(ctx context.Context, id string) (models.Report, error) {
	var report models.Report
	err := c.do(ctx, http.MethodGet, "/reports/"+url.PathEscape(id), nil, &report)
	return report, err
}

// GenerateReport asks the backend to generate a report
func (c *Client) GenerateReport(ctx context.Context, req models.ReportRequest) (models.Report, error) {
	var report models.Report
	err := c.do(ctx, http.MethodPost, "/reports/generate", req, &report)
	return report, err
}

// DeleteReport deletes a report
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/reports/"+url.PathEscape(id), nil, nil)
}

// Health checks the backend. It never fails: an unreachable or unhealthy
// backend yields status "error" stamped with the current time.
func (c *Client) Health(ctx context.Context) models.HealthStatus {
	var health models.HealthStatus
	if err := c.do(ctx, http.MethodGet, "/health", nil, &health); err != nil {
		c.logger.Warn().Err(err).Msg("Backend health check failed")
		return models.HealthStatus{Status: "error", Timestamp: time.Now().UTC()}
	}
	return health
}
