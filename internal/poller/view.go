package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"idslab-dashboard/internal/database"
	"idslab-dashboard/internal/metrics"
	"idslab-dashboard/internal/models"
)

// Poll outcomes, as recorded in the poll log and metrics
const (
	OutcomeSuccess    = "success"
	OutcomeError      = "error"
	OutcomeSuperseded = "superseded"
)

// ErrSuperseded is returned by Poll when a newer poll or a local edit
// started while the request was in flight. Its result was discarded.
var ErrSuperseded = errors.New("poll superseded by a newer generation")

// Store persists view snapshots and the poll log
type Store interface {
	SaveSnapshot(rec models.SnapshotRecord) error
	LoadSnapshot(view string) (*models.SnapshotRecord, error)
	AddPollLog(entry models.PollLog) error
}

// Snapshot is the latest committed state of a view
type Snapshot[T any] struct {
	View       string    `json:"view"`
	Data       T         `json:"data"`
	Generation uint64    `json:"generation"`
	FetchedAt  time.Time `json:"fetchedAt"`
	Error      string    `json:"error,omitempty"`
	Stale      bool      `json:"stale"`
	Fallback   bool      `json:"fallback"`
}

// ViewStatus describes the polling state of a view
type ViewStatus struct {
	View         string    `json:"view"`
	Interval     string    `json:"interval"`
	Generation   uint64    `json:"generation"`
	InFlight     bool      `json:"inFlight"`
	FetchedAt    time.Time `json:"fetchedAt"`
	LastPoll     time.Time `json:"lastPoll"`
	LastOutcome  string    `json:"lastOutcome,omitempty"`
	LastDuration int64     `json:"lastDurationMs"`
	Error        string    `json:"error,omitempty"`
	Stale        bool      `json:"stale"`
	Fallback     bool      `json:"fallback"`
}

// FetchFunc loads the full payload of a view from the backend
type FetchFunc[T any] func(ctx context.Context) (T, error)

// View keeps one page's data current. Every poll takes a new generation and
// cancels the request of the previous one; a response may only commit while
// its generation is still the latest.
type View[T any] struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fetch    FetchFunc[T]
	fallback func() T
	store    Store
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	onCommit func(T)

	mu          sync.Mutex
	snapshot    Snapshot[T]
	hasData     bool
	generation  uint64
	cancel      context.CancelFunc
	lastPoll    time.Time
	lastOutcome string
	lastDur     time.Duration
}

// NewView creates a view poller. The fallback provides the data served
// before any poll has succeeded.
func NewView[T any](name string, interval, timeout time.Duration, fetch FetchFunc[T], fallback func() T, store Store, m *metrics.Metrics, logger zerolog.Logger) *View[T] {
	v := &View[T]{
		name:     name,
		interval: interval,
		timeout:  timeout,
		fetch:    fetch,
		fallback: fallback,
		store:    store,
		metrics:  m,
		logger:   logger.With().Str("view", name).Logger(),
	}
	v.snapshot = Snapshot[T]{View: name, Data: fallback(), Fallback: true}
	return v
}

// OnCommit registers fn to run with the data of every committed poll.
// It runs under the view lock, after the generation check, so a superseded
// response never reaches it. Set it before polling starts.
func (v *View[T]) OnCommit(fn func(T)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onCommit = fn
}

// Name returns the view name
func (v *View[T]) Name() string {
	return v.name
}

// Interval returns the polling interval
func (v *View[T]) Interval() time.Duration {
	return v.interval
}

// Snapshot returns the current committed state
func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.snapshot
}

// Data returns the current payload
func (v *View[T]) Data() T {
	return v.Snapshot().Data
}

// Status returns the polling state of the view
func (v *View[T]) Status() ViewStatus {
	v.mu.Lock()
	defer v.mu.Unlock()

	return ViewStatus{
		View:         v.name,
		Interval:     v.interval.String(),
		Generation:   v.generation,
		InFlight:     v.cancel != nil,
		FetchedAt:    v.snapshot.FetchedAt,
		LastPoll:     v.lastPoll,
		LastOutcome:  v.lastOutcome,
		LastDuration: v.lastDur.Milliseconds(),
		Error:        v.snapshot.Error,
		Stale:        v.snapshot.Stale,
		Fallback:     v.snapshot.Fallback,
	}
}

// Poll fetches the view once. It returns ErrSuperseded when a newer poll or
// edit overtook it, and the fetch error when the backend failed. A failed
// poll keeps the previous data and marks it stale.
func (v *View[T]) Poll(ctx context.Context) error {
	// Claim a generation and cancel whatever was in flight
	v.mu.Lock()
	gen := v.nextGeneration()
	var pollCtx context.Context
	var cancel context.CancelFunc
	if v.timeout > 0 {
		pollCtx, cancel = context.WithTimeout(ctx, v.timeout)
	} else {
		pollCtx, cancel = context.WithCancel(ctx)
	}
	v.cancel = cancel
	v.mu.Unlock()
	defer cancel()

	// Fetch without holding the lock
	start := time.Now()
	data, err := v.fetch(pollCtx)
	duration := time.Since(start)

	// Only the latest generation may commit
	v.mu.Lock()
	if v.generation != gen {
		v.mu.Unlock()
		v.logger.Debug().Uint64("generation", gen).Dur("duration", duration).Msg("Discarding superseded poll")
		v.record(OutcomeSuperseded, duration, nil)
		return ErrSuperseded
	}
	v.cancel = nil

	// Keep the last good data, or fall back when there is none
	if err != nil {
		v.snapshot.Error = err.Error()
		v.snapshot.Generation = gen
		if v.hasData {
			v.snapshot.Stale = true
		} else {
			v.snapshot.Data = v.fallback()
			v.snapshot.Fallback = true
		}
		v.persist()
		v.mu.Unlock()

		v.logger.Error().Err(err).Uint64("generation", gen).Msg("Poll failed")
		v.record(OutcomeError, duration, err)
		return err
	}

	v.snapshot = Snapshot[T]{
		View:       v.name,
		Data:       data,
		Generation: gen,
		FetchedAt:  time.Now(),
	}
	v.hasData = true
	v.persist()
	if v.onCommit != nil {
		v.onCommit(data)
	}
	v.mu.Unlock()

	v.logger.Debug().Uint64("generation", gen).Dur("duration", duration).Msg("Poll committed")
	v.record(OutcomeSuccess, duration, nil)
	return nil
}

// Update applies a local edit to the committed data. It takes a generation
// of its own, so a poll started before the edit can no longer commit.
// fn must not modify its argument in place.
func (v *View[T]) Update(fn func(T) T) Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()

	gen := v.nextGeneration()
	v.snapshot.Data = fn(v.snapshot.Data)
	v.snapshot.Generation = gen
	// The edit mirrors an accepted backend write, so a later failed poll
	// must keep it and mark it stale instead of restoring the fallback.
	v.snapshot.Fallback = false
	v.hasData = true
	v.persist()

	v.logger.Debug().Uint64("generation", gen).Msg("Applied local edit")
	return v.snapshot
}

// Hydrate restores the last persisted snapshot. The restored data is served
// as stale until the first poll commits.
func (v *View[T]) Hydrate() error {
	if v.store == nil {
		return nil
	}

	rec, err := v.store.LoadSnapshot(v.name)
	if errors.Is(err, database.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s snapshot: %w", v.name, err)
	}

	var data T
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		return fmt.Errorf("failed to decode %s snapshot: %w", v.name, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	// A poll or edit that landed first wins
	if v.hasData {
		return nil
	}
	if rec.Generation > v.generation {
		v.generation = rec.Generation
	}
	v.snapshot = Snapshot[T]{
		View:       v.name,
		Data:       data,
		Generation: rec.Generation,
		FetchedAt:  rec.FetchedAt,
		Error:      rec.Error,
		Stale:      true,
	}
	v.hasData = true

	v.logger.Info().Uint64("generation", rec.Generation).Time("fetchedAt", rec.FetchedAt).Msg("Restored view snapshot")
	return nil
}

// Abort cancels any in-flight poll and prevents it from committing
func (v *View[T]) Abort() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.nextGeneration()
}

// nextGeneration bumps the generation and cancels the in-flight request.
// Callers must hold v.mu.
func (v *View[T]) nextGeneration() uint64 {
	v.generation++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	return v.generation
}

// persist writes the current snapshot to the store. Callers must hold v.mu.
func (v *View[T]) persist() {
	if v.store == nil {
		return
	}

	payload, err := json.Marshal(v.snapshot.Data)
	if err != nil {
		v.logger.Error().Err(err).Msg("Failed to encode snapshot")
		return
	}

	err = v.store.SaveSnapshot(models.SnapshotRecord{
		View:       v.name,
		Payload:    payload,
		Generation: v.snapshot.Generation,
		FetchedAt:  v.snapshot.FetchedAt,
		Error:      v.snapshot.Error,
	})
	if err != nil {
		v.logger.Error().Err(err).Msg("Failed to persist snapshot")
	}
}

// record reports a poll outcome to metrics and the poll log
func (v *View[T]) record(outcome string, duration time.Duration, pollErr error) {
	v.mu.Lock()
	v.lastPoll = time.Now()
	v.lastOutcome = outcome
	v.lastDur = duration
	v.mu.Unlock()

	v.metrics.ObservePoll(v.name, outcome, duration)

	if v.store == nil {
		return
	}
	entry := models.PollLog{
		View:      v.name,
		Outcome:   outcome,
		Duration:  duration.Milliseconds(),
		Timestamp: time.Now(),
	}
	if pollErr != nil {
		entry.Error = pollErr.Error()
	}
	if err := v.store.AddPollLog(entry); err != nil {
		v.logger.Error().Err(err).Msg("Failed to record poll")
	}
}
