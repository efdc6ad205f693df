package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

const bookkeepingTimeout = 10 * time.Second

// QueryExecutor runs the search of a watcher.
type QueryExecutor interface {
	Execute(ctx context.Context, w *models.Watcher) ([]models.Listing, error)
}

// ListingDiffer separates new listings from already seen ones.
type ListingDiffer interface {
	Diff(prev *models.Marker, current []models.Listing) ([]models.Listing, *models.Marker)
}

// NotificationDispatcher delivers listings to a watcher's targets.
type NotificationDispatcher interface {
	DispatchAll(ctx context.Context, targets []models.NotificationTarget, listings []models.Listing) []models.DeliveryReport
}

// Runner executes watcher run cycles: search, diff, notify, then bookkeeping.
type Runner struct {
	repo       models.WatcherRepository
	executor   QueryExecutor
	differ     ListingDiffer
	dispatcher NotificationDispatcher
	tracker    *CycleTracker
	locks      *WatcherMutexManager
	runTimeout time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// NewRunner creates a Runner. locks must be the same manager used by every
// other writer of watcher records.
func NewRunner(
	repo models.WatcherRepository,
	executor QueryExecutor,
	differ ListingDiffer,
	dispatcher NotificationDispatcher,
	locks *WatcherMutexManager,
	runTimeout time.Duration,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		repo:       repo,
		executor:   executor,
		differ:     differ,
		dispatcher: dispatcher,
		tracker:    NewCycleTracker(),
		locks:      locks,
		runTimeout: runTimeout,
		now:        time.Now,
		logger:     logger.With().Str("component", "RunCycle").Logger(),
	}
}

// Tracker exposes the in-flight cycle registry.
func (r *Runner) Tracker() *CycleTracker {
	return r.tracker
}

// Locks returns the per-watcher mutation locks shared with the runner.
func (r *Runner) Locks() *WatcherMutexManager {
	return r.locks
}

// Run executes one cycle for watcherID. Failures are contained in the
// returned outcome; Run never panics outward.
func (r *Runner) Run(ctx context.Context, watcherID string) (outcome models.RunOutcome) {
	outcome = models.RunOutcome{WatcherID: watcherID, StartedAt: r.now()}
	logger := r.logger.With().Str("watcher_id", watcherID).Logger()

	cycleID, ok := r.tracker.TryBegin(watcherID)
	if !ok {
		logger.Warn().Msg("Previous run cycle still in flight, skipping tick")
		return r.finish(outcome, models.RunStatusSkipped, nil)
	}
	defer r.tracker.End(watcherID)
	logger = logger.With().Str("cycle_id", cycleID).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("Recovered from panic in run cycle")
			outcome = r.finish(outcome, models.RunStatusFailed, common.NewError("panic in run cycle: %v", rec))
		}
	}()

	if r.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runTimeout)
		defer cancel()
	}

	watcher, err := r.repo.GetByID(ctx, watcherID)
	if err != nil {
		if common.IsNotFound(err) {
			logger.Info().Msg("Watcher no longer exists, skipping run")
			return r.finish(outcome, models.RunStatusSkipped, err)
		}
		logger.Error().Err(err).Msg("Failed to load watcher")
		return r.finish(outcome, models.RunStatusFailed, err)
	}
	if !watcher.IsActive() {
		logger.Debug().Msg("Watcher is stopped, skipping run")
		return r.finish(outcome, models.RunStatusSkipped, nil)
	}

	listings, err := r.executor.Execute(ctx, watcher)
	if err != nil {
		logger.Error().Err(err).Str("query", watcher.Query).Msg("Query execution failed, aborting run cycle")
		return r.finish(outcome, models.RunStatusFailed, err)
	}

	newListings, marker := r.differ.Diff(watcher.Marker, listings)
	outcome.NewListings = newListings
	outcome.Marker = marker

	if len(newListings) > 0 {
		logger.Info().Int("listings", len(newListings)).Msg("Found new listings, dispatching notifications")
		outcome.Deliveries = r.dispatcher.DispatchAll(ctx, watcher.Notifications, newListings)
		for _, report := range outcome.Deliveries {
			if !report.OK() {
				logger.Warn().
					Err(report.LastErr).
					Str("target", report.Target.String()).
					Int("failed", report.MessagesFailed).
					Msg("Some notifications were not delivered")
			}
		}
	} else if watcher.Marker == nil && marker != nil {
		logger.Info().Int("baseline", marker.Len()).Msg("First run, recorded baseline listings")
	}

	if err := r.recordRun(ctx, watcher, marker); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.Info().Msg("Watcher deleted during run cycle, discarding bookkeeping")
			return r.finish(outcome, models.RunStatusSucceeded, nil)
		}
		logger.Error().Err(err).Msg("Failed to record run result")
		return r.finish(outcome, models.RunStatusFailed, err)
	}

	return r.finish(outcome, models.RunStatusSucceeded, nil)
}

// recordRun writes the bookkeeping fields under the watcher's mutation lock.
// The write outlives a run timeout so completed deliveries are still counted.
func (r *Runner) recordRun(ctx context.Context, watcher *models.Watcher, marker *models.Marker) error {
	unlock := r.locks.Lock(watcher.ID)
	defer unlock()

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	return r.repo.UpdateRunResult(writeCtx, watcher.ID, models.RunResult{
		LastRun:      r.now(),
		NumberOfRuns: watcher.NumberOfRuns + 1,
		Marker:       marker,
	})
}

func (r *Runner) finish(outcome models.RunOutcome, status models.RunStatus, err error) models.RunOutcome {
	outcome.Status = status
	outcome.Err = err
	outcome.FinishedAt = r.now()

	r.logger.Debug().
		Str("watcher_id", outcome.WatcherID).
		Str("status", string(status)).
		Int("new_listings", len(outcome.NewListings)).
		Dur("duration", outcome.Duration()).
		Msg("Run cycle finished")
	return outcome
}
