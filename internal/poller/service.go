// Package poller keeps the dashboard's page views current. Each view is
// re-fetched from the testing backend on its own schedule, aggregated, held
// in memory for the HTTP API and persisted to the snapshot store.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"idslab-dashboard/internal/config"
	"idslab-dashboard/internal/metrics"
	"idslab-dashboard/internal/models"
)

// View names
const (
	ViewDashboard = "dashboard"
	ViewAnalytics = "analytics"
	ViewScenarios = "scenarios"
	ViewLab       = "lab"
	ViewReports   = "reports"
)

// ErrUnknownView is returned when a view name does not match any poller
var ErrUnknownView = errors.New("unknown view")

// poller is the type-independent surface of a View
type poller interface {
	Name() string
	Interval() time.Duration
	Poll(ctx context.Context) error
	Status() ViewStatus
	Hydrate() error
	Abort()
}

// Service schedules the view pollers
type Service struct {
	config *config.Config
	logger zerolog.Logger

	Dashboard *View[models.DashboardView]
	Analytics *View[models.AnalyticsView]
	Scenarios *View[models.ScenariosView]
	Lab       *View[models.LabView]
	Reports   *View[models.ReportsView]

	views    []poller
	lock     sync.Mutex
	running  bool
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates the poller service. store may be nil, in which case snapshots
// are only kept in memory.
func New(cfg *config.Config, backend Backend, store Store, m *metrics.Metrics) (*Service, error) {
	logger := log.With().Str("component", "poller").Logger()

	intervals := make(map[string]time.Duration)
	for _, name := range []string{ViewDashboard, ViewAnalytics, ViewScenarios, ViewLab, ViewReports} {
		d, err := cfg.GetPollInterval(name)
		if err != nil {
			return nil, fmt.Errorf("invalid %s poll interval: %w", name, err)
		}
		intervals[name] = d
	}

	timeout, err := cfg.GetBackendTimeout()
	if err != nil {
		return nil, fmt.Errorf("invalid backend timeout: %w", err)
	}

	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, fmt.Errorf("invalid polling timezone: %w", err)
	}

	s := &Service{
		config:   cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	// The per-poll timeout covers a whole view fetch, which may issue
	// one request per test, so it is a multiple of the request timeout.
	pollTimeout := 4 * timeout

	s.Dashboard = NewView(ViewDashboard, intervals[ViewDashboard], pollTimeout,
		dashboardFetcher(backend, cfg.Polling.RecentTestsLimit, cfg.Polling.FeedLimit, logger),
		emptyDashboard, store, m, logger)
	s.Analytics = NewView(ViewAnalytics, intervals[ViewAnalytics], pollTimeout,
		analyticsFetcher(backend, loc, logger),
		emptyAnalytics, store, m, logger)
	// Gauges follow committed analytics only
	s.Analytics.OnCommit(m.SetAnalytics)
	s.Scenarios = NewView(ViewScenarios, intervals[ViewScenarios], pollTimeout,
		scenariosFetcher(backend), emptyScenarios, store, m, logger)
	s.Lab = NewView(ViewLab, intervals[ViewLab], pollTimeout,
		labFetcher(backend), emptyLab, store, m, logger)
	s.Reports = NewView(ViewReports, intervals[ViewReports], pollTimeout,
		reportsFetcher(backend), emptyReports, store, m, logger)

	s.views = []poller{s.Dashboard, s.Analytics, s.Scenarios, s.Lab, s.Reports}
	return s, nil
}

// Start restores persisted snapshots and, when polling is enabled, starts
// one scheduler per view
func (s *Service) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.running {
		return fmt.Errorf("poller service already running")
	}

	s.logger.Info().Msg("Starting poller service")

	// Restore persisted snapshots
	for _, v := range s.views {
		if err := v.Hydrate(); err != nil {
			s.logger.Warn().Err(err).Str("view", v.Name()).Msg("Failed to restore snapshot, starting empty")
		}
	}

	s.stopChan = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if !s.config.Polling.Enabled {
		s.logger.Info().Msg("Polling disabled, views refresh on demand only")
		s.running = true
		return nil
	}

	// Start view schedulers
	for _, v := range s.views {
		s.wg.Add(1)
		go s.schedule(ctx, v)
	}

	s.running = true
	return nil
}

// Stop stops the schedulers and discards any in-flight polls
func (s *Service) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if !s.running {
		return nil
	}

	s.logger.Info().Msg("Stopping poller service")

	// Signal schedulers and cancel in-flight fetches
	close(s.stopChan)
	s.cancel()
	for _, v := range s.views {
		v.Abort()
	}
	s.wg.Wait()

	s.running = false
	return nil
}

// schedule polls a view immediately and then on every tick until stopped
func (s *Service) schedule(ctx context.Context, v poller) {
	defer s.wg.Done()

	ticker := time.NewTicker(v.Interval())
	defer ticker.Stop()

	s.logger.Info().Str("view", v.Name()).Str("interval", v.Interval().String()).Msg("Starting view scheduler")

	// Errors are already logged and recorded by the view
	v.Poll(ctx)

	for {
		select {
		case <-ticker.C:
			v.Poll(ctx)
		case <-s.stopChan:
			s.logger.Debug().Str("view", v.Name()).Msg("View scheduler stopped")
			return
		}
	}
}

// Refresh forces an immediate poll of the named view
func (s *Service) Refresh(ctx context.Context, name string) error {
	v, err := s.view(name)
	if err != nil {
		return err
	}

	s.logger.Info().Str("view", name).Msg("Manual refresh requested")
	return v.Poll(ctx)
}

// ViewStatus returns the polling state of the named view
func (s *Service) ViewStatus(name string) (ViewStatus, error) {
	v, err := s.view(name)
	if err != nil {
		return ViewStatus{}, err
	}
	return v.Status(), nil
}

// GetStatus returns the polling state of every view
func (s *Service) GetStatus() []ViewStatus {
	statuses := make([]ViewStatus, 0, len(s.views))
	for _, v := range s.views {
		statuses = append(statuses, v.Status())
	}
	return statuses
}

// IsRunning reports whether the service has been started
func (s *Service) IsRunning() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.running
}

func (s *Service) view(name string) (poller, error) {
	for _, v := range s.views {
		if v.Name() == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownView, name)
}
