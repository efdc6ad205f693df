package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/aleister1102/marketwatch/internal/monitor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Scheduler keeps one cron timer per active watcher and exposes the watcher
// mutation surface. Every mutation reconciles the registry before returning.
type Scheduler struct {
	repo      models.WatcherRepository
	runner    *monitor.Runner
	locks     *monitor.WatcherMutexManager
	registry  *Registry
	validator *DefinitionValidator
	logger    zerolog.Logger
	now       func() time.Time

	mu         sync.Mutex
	isRunning  bool
	runCtx     context.Context
	cancelRuns context.CancelFunc
}

// NewScheduler creates a scheduler. Mutations serialize on the runner's
// per-watcher locks so they never interleave with run-cycle bookkeeping.
func NewScheduler(
	cfg config.SchedulerConfig,
	notifCfg config.NotificationConfig,
	repo models.WatcherRepository,
	runner *monitor.Runner,
	logger zerolog.Logger,
) *Scheduler {
	s := &Scheduler{
		repo:      repo,
		runner:    runner,
		locks:     runner.Locks(),
		validator: NewDefinitionValidator(notifCfg.Email.Address),
		logger:    logger.With().Str("component", "Scheduler").Logger(),
		now:       time.Now,
	}
	s.runCtx, s.cancelRuns = context.WithCancel(context.Background())
	s.registry = NewRegistry(cfg.TimeLocation(), s.onTick, logger)
	return s
}

// Registry exposes the cron registry for inspection.
func (s *Scheduler) Registry() *Registry {
	return s.registry
}

// Start registers every active watcher and starts the cron engine. A failure to
// list watchers is returned; a watcher with a malformed schedule is logged,
// marked stopped and skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	watchers, err := s.repo.ListActive(ctx)
	if err != nil {
		return common.WrapError(err, "failed to load active watchers")
	}

	registered := 0
	for i := range watchers {
		w := &watchers[i]
		if err := s.registry.Register(w); err != nil {
			s.logger.Warn().Err(err).Str("watcher_id", w.ID).Str("schedule", w.Schedule).Msg("Skipping watcher with invalid schedule")
			s.markStopped(ctx, w.ID)
			continue
		}
		registered++
	}

	s.registry.Start()
	s.isRunning = true
	s.logger.Info().Int("watchers", registered).Int("skipped", len(watchers)-registered).Msg("Scheduler started")
	return nil
}

// Stop halts the cron engine and waits for in-flight run cycles. If ctx ends
// first the remaining cycles are cancelled and ctx's error is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	s.logger.Info().Strs("in_flight", s.runner.Tracker().InFlight()).Msg("Stopping scheduler, waiting for in-flight run cycles")
	done := s.registry.Stop()

	select {
	case <-done.Done():
		s.cancelRuns()
		s.logger.Info().Msg("Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancelRuns()
		s.logger.Warn().Err(ctx.Err()).Msg("Shutdown timeout reached, cancelled in-flight run cycles")
		return ctx.Err()
	}
}

// CreateWatcher validates def, persists a new active watcher and registers it.
func (s *Scheduler) CreateWatcher(ctx context.Context, def models.WatcherDefinition) (*models.Watcher, error) {
	def = normalizeDefinition(def)
	if err := s.validator.Validate(def); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	w := &models.Watcher{
		ID:            uuid.NewString(),
		Query:         def.Query,
		Schedule:      def.Schedule,
		Notifications: def.Notifications,
		Status:        models.WatcherStatusActive,
		MinPrice:      def.MinPrice,
		MaxPrice:      def.MaxPrice,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	unlock := s.locks.Lock(w.ID)
	defer unlock()

	if err := s.repo.Create(ctx, w); err != nil {
		return nil, common.WrapError(err, "failed to create watcher")
	}
	if err := s.registry.Register(w); err != nil {
		s.markStopped(ctx, w.ID)
		return nil, err
	}

	s.logger.Info().Str("watcher_id", w.ID).Str("query", w.Query).Str("schedule", w.Schedule).Msg("Watcher created")
	return w, nil
}

// UpdateWatcher replaces the user-editable fields of a watcher. An active
// watcher is re-registered with the new schedule.
func (s *Scheduler) UpdateWatcher(ctx context.Context, id string, def models.WatcherDefinition) (*models.Watcher, error) {
	def = normalizeDefinition(def)
	if err := s.validator.Validate(def); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.UpdateDefinition(ctx, id, def); err != nil {
		return nil, err
	}
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.IsActive() {
		if err := s.registry.Register(w); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("watcher_id", id).Msg("Watcher updated")
	return w, nil
}

// PauseWatcher stops a watcher and cancels its timer. A cycle already in
// flight completes.
func (s *Scheduler) PauseWatcher(ctx context.Context, id string) (*models.Watcher, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.UpdateStatus(ctx, id, models.WatcherStatusStopped); err != nil {
		return nil, err
	}
	s.registry.Unregister(id)

	s.logger.Info().Str("watcher_id", id).Msg("Watcher paused")
	return s.repo.GetByID(ctx, id)
}

// ResumeWatcher activates a watcher and registers its timer. A watcher whose
// stored schedule is invalid stays stopped and *common.InvalidScheduleError is
// returned.
func (s *Scheduler) ResumeWatcher(ctx context.Context, id string) (*models.Watcher, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Register(w); err != nil {
		if w.IsActive() {
			s.markStopped(ctx, id)
		}
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, models.WatcherStatusActive); err != nil {
		s.registry.Unregister(id)
		return nil, err
	}

	s.logger.Info().Str("watcher_id", id).Msg("Watcher resumed")
	return s.repo.GetByID(ctx, id)
}

// RescheduleWatcher persists a new schedule and, for an active watcher,
// replaces its timer. A malformed schedule changes nothing.
func (s *Scheduler) RescheduleWatcher(ctx context.Context, id string, schedule string) (*models.Watcher, error) {
	schedule = strings.TrimSpace(schedule)
	if _, err := ParseSchedule(schedule); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.UpdateSchedule(ctx, id, schedule); err != nil {
		return nil, err
	}
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.IsActive() {
		if err := s.registry.Register(w); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("watcher_id", id).Str("schedule", schedule).Msg("Watcher rescheduled")
	return w, nil
}

// DeleteWatcher removes a watcher and its timer. A cycle already in flight
// completes, but its bookkeeping write is discarded.
func (s *Scheduler) DeleteWatcher(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	err := s.repo.Delete(ctx, id)
	s.registry.Unregister(id)
	unlock()
	if err != nil {
		return err
	}
	s.locks.Forget(id)

	s.logger.Info().Str("watcher_id", id).Msg("Watcher deleted")
	return nil
}

// TriggerWatcher runs one cycle immediately and waits for it. It follows the
// same overlap rule as scheduled ticks: a cycle already in flight makes the
// trigger a skipped outcome. The cycle is detached from ctx so a disconnecting
// caller does not abort deliveries.
func (s *Scheduler) TriggerWatcher(ctx context.Context, id string) (models.RunOutcome, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return models.RunOutcome{}, err
	}

	outcome := s.runner.Run(context.WithoutCancel(ctx), id)
	s.logOutcome(outcome, "manual")
	return outcome, nil
}

// GetWatcher returns one watcher.
func (s *Scheduler) GetWatcher(ctx context.Context, id string) (*models.Watcher, error) {
	return s.repo.GetByID(ctx, id)
}

// ListWatchers returns every watcher.
func (s *Scheduler) ListWatchers(ctx context.Context) ([]models.Watcher, error) {
	return s.repo.List(ctx)
}

// NextRun returns the next scheduled tick of an active watcher.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	return s.registry.NextRun(id)
}

func (s *Scheduler) onTick(watcherID string) {
	outcome := s.runner.Run(s.runCtx, watcherID)
	s.logOutcome(outcome, "scheduled")

	if outcome.Status == models.RunStatusSkipped && errors.Is(outcome.Err, common.ErrNotFound) {
		s.registry.Unregister(watcherID)
	}
}

func (s *Scheduler) logOutcome(outcome models.RunOutcome, trigger string) {
	event := s.logger.Info()
	if outcome.Status == models.RunStatusFailed {
		event = s.logger.Warn().Err(outcome.Err)
	}
	event.
		Str("watcher_id", outcome.WatcherID).
		Str("trigger", trigger).
		Str("status", string(outcome.Status)).
		Int("new_listings", len(outcome.NewListings)).
		Dur("duration", outcome.Duration()).
		Msg("Run cycle completed")
}

// markStopped persists the stopped status for a watcher that cannot hold a timer.
func (s *Scheduler) markStopped(ctx context.Context, id string) {
	if err := s.repo.UpdateStatus(ctx, id, models.WatcherStatusStopped); err != nil {
		s.logger.Error().Err(err).Str("watcher_id", id).Msg("Failed to mark watcher as stopped")
	}
}

func normalizeDefinition(def models.WatcherDefinition) models.WatcherDefinition {
	def.Query = strings.TrimSpace(def.Query)
	def.Schedule = strings.TrimSpace(def.Schedule)
	return def
}
