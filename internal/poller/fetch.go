package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"idslab-dashboard/internal/analytics"
	"idslab-dashboard/internal/client"
	"idslab-dashboard/internal/models"
)

// Backend is the subset of the remote data client used by the pollers
type Backend interface {
	ListTests(ctx context.Context) ([]models.Test, error)
	GetTestResults(ctx context.Context, id string) ([]models.TestResult, error)
	ListScenarios(ctx context.Context, status string) ([]models.AttackScenario, error)
	ListEnvironments(ctx context.Context) ([]models.LabEnvironment, error)
	ListIDSConfigs(ctx context.Context) ([]models.IDSConfiguration, error)
	ListReports(ctx context.Context) ([]models.Report, error)
}

var _ Backend = (*client.Client)(nil)

// collectResults fetches the results of each test in order. A failing test
// is logged and skipped; only cancellation aborts the walk.
func collectResults(ctx context.Context, backend Backend, tests []models.Test, logger zerolog.Logger) ([]models.TestResult, error) {
	var all []models.TestResult
	for _, t := range tests {
		results, err := backend.GetTestResults(ctx, t.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Str("testID", t.ID).Msg("Failed to fetch test results, skipping")
			continue
		}
		all = append(all, results...)
	}
	return all, nil
}

// dashboardFetcher builds the dashboard page: headline stats over all tests,
// the most recent tests and the live feed of their events
func dashboardFetcher(backend Backend, recentLimit, feedLimit int, logger zerolog.Logger) FetchFunc[models.DashboardView] {
	return func(ctx context.Context) (models.DashboardView, error) {
		tests, err := backend.ListTests(ctx)
		if err != nil {
			return models.DashboardView{}, fmt.Errorf("failed to list tests: %w", err)
		}

		recent := analytics.RecentTests(tests, recentLimit)
		results, err := collectResults(ctx, backend, recent, logger)
		if err != nil {
			return models.DashboardView{}, err
		}

		return models.DashboardView{
			Stats:       analytics.DashboardStats(tests, results),
			RecentTests: recent,
			Feed:        analytics.LiveFeed(recent, results, feedLimit),
		}, nil
	}
}

// analyticsFetcher builds the analytics page from every test and its results
func analyticsFetcher(backend Backend, loc *time.Location, logger zerolog.Logger) FetchFunc[models.AnalyticsView] {
	return func(ctx context.Context) (models.AnalyticsView, error) {
		tests, err := backend.ListTests(ctx)
		if err != nil {
			return models.AnalyticsView{}, fmt.Errorf("failed to list tests: %w", err)
		}

		results, err := collectResults(ctx, backend, tests, logger)
		if err != nil {
			return models.AnalyticsView{}, err
		}

		return models.AnalyticsView{
			Rates:      analytics.ComputeRates(tests),
			Hourly:     analytics.HourlyBuckets(tests, loc),
			ROC:        analytics.ROCCurve(results),
			Exploits:   analytics.ExploitBreakdown(results),
			Severities: analytics.SeverityBreakdown(results),
			TestCount:  len(tests),
		}, nil
	}
}

func scenariosFetcher(backend Backend) FetchFunc[models.ScenariosView] {
	return func(ctx context.Context) (models.ScenariosView, error) {
		scenarios, err := backend.ListScenarios(ctx, "")
		if err != nil {
			return models.ScenariosView{}, fmt.Errorf("failed to list scenarios: %w", err)
		}
		if scenarios == nil {
			scenarios = []models.AttackScenario{}
		}
		return models.ScenariosView{Scenarios: scenarios}, nil
	}
}

func labFetcher(backend Backend) FetchFunc[models.LabView] {
	return func(ctx context.Context) (models.LabView, error) {
		envs, err := backend.ListEnvironments(ctx)
		if err != nil {
			return models.LabView{}, fmt.Errorf("failed to list lab environments: %w", err)
		}
		configs, err := backend.ListIDSConfigs(ctx)
		if err != nil {
			return models.LabView{}, fmt.Errorf("failed to list IDS configurations: %w", err)
		}
		if envs == nil {
			envs = []models.LabEnvironment{}
		}
		if configs == nil {
			configs = []models.IDSConfiguration{}
		}
		return models.LabView{Environments: envs, IDSConfigs: configs}, nil
	}
}

func reportsFetcher(backend Backend) FetchFunc[models.ReportsView] {
	return func(ctx context.Context) (models.ReportsView, error) {
		reports, err := backend.ListReports(ctx)
		if err != nil {
			return models.ReportsView{}, fmt.Errorf("failed to list reports: %w", err)
		}
		if reports == nil {
			reports = []models.Report{}
		}
		return models.ReportsView{Reports: reports}, nil
	}
}

// Fallback payloads served before a view's first successful poll

func emptyDashboard() models.DashboardView {
	return models.DashboardView{RecentTests: []models.Test{}, Feed: []models.FeedItem{}}
}

func emptyAnalytics() models.AnalyticsView {
	return models.AnalyticsView{
		Rates:      analytics.ZeroRates(),
		Hourly:     analytics.ZeroHourly(),
		ROC:        analytics.FallbackROC(),
		Exploits:   []models.ExploitCategory{},
		Severities: []models.SeverityCount{},
	}
}

func emptyScenarios() models.ScenariosView {
	return models.ScenariosView{Scenarios: []models.AttackScenario{}}
}

func emptyLab() models.LabView {
	return models.LabView{Environments: []models.LabEnvironment{}, IDSConfigs: []models.IDSConfiguration{}}
}

func emptyReports() models.ReportsView {
	return models.ReportsView{Reports: []models.Report{}}
}
