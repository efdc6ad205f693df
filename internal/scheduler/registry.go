package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// scheduleParser accepts standard 5-field expressions, an optional leading
// seconds field and descriptors such as @hourly or @every 5m.
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// TickHandler is invoked on its own goroutine each time a watcher's schedule fires.
type TickHandler func(watcherID string)

// ParseSchedule parses a cron expression, returning *common.InvalidScheduleError
// when it is malformed.
func ParseSchedule(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, common.NewInvalidScheduleError(expr, common.NewError("empty schedule"))
	}
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, common.NewInvalidScheduleError(expr, err)
	}
	return schedule, nil
}

// Registry maps watcher IDs to live cron entries on a single engine.
type Registry struct {
	cron    *cron.Cron
	entries map[string]cron.EntryID
	onTick  TickHandler
	mu      sync.Mutex
	logger  zerolog.Logger
}

// NewRegistry creates a registry whose jobs call onTick. Job panics are
// recovered and logged.
func NewRegistry(loc *time.Location, onTick TickHandler, logger zerolog.Logger) *Registry {
	logger = logger.With().Str("component", "CronRegistry").Logger()
	cronLogger := NewCronLogger(logger)
	if loc == nil {
		loc = time.Local
	}

	return &Registry{
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLocation(loc),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger)),
		),
		entries: make(map[string]cron.EntryID),
		onTick:  onTick,
		logger:  logger,
	}
}

// Register installs a timer for the watcher, replacing any existing one.
// On a malformed schedule the watcher is left unregistered.
func (r *Registry) Register(w *models.Watcher) error {
	schedule, err := ParseSchedule(w.Schedule)
	if err != nil {
		r.mu.Lock()
		r.removeLocked(w.ID)
		r.mu.Unlock()
		return err
	}

	watcherID := w.ID
	job := cron.FuncJob(func() {
		r.onTick(watcherID)
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeLocked(watcherID)
	r.entries[watcherID] = r.cron.Schedule(schedule, job)

	r.logger.Debug().
		Str("watcher_id", watcherID).
		Str("schedule", w.Schedule).
		Msg("Registered watcher schedule")
	return nil
}

// Unregister removes the watcher's timer. It is a no-op for unknown IDs and
// never interrupts a tick that is already running.
func (r *Registry) Unregister(watcherID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.removeLocked(watcherID) {
		r.logger.Debug().Str("watcher_id", watcherID).Msg("Unregistered watcher schedule")
	}
}

// IsRegistered reports whether the watcher holds a live timer.
func (r *Registry) IsRegistered(watcherID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[watcherID]
	return ok
}

// Count returns the number of registered watchers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// RegisteredIDs returns the IDs of every registered watcher.
func (r *Registry) RegisteredIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// NextRun returns the next activation time of the watcher. The time is zero
// until the engine has been started.
func (r *Registry) NextRun(watcherID string) (time.Time, bool) {
	r.mu.Lock()
	entryID, ok := r.entries[watcherID]
	r.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return r.cron.Entry(entryID).Next, true
}

// Start starts the cron engine in its own goroutine.
func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the engine. The returned context is done once running jobs finish.
func (r *Registry) Stop() context.Context {
	return r.cron.Stop()
}

func (r *Registry) removeLocked(watcherID string) bool {
	entryID, ok := r.entries[watcherID]
	if !ok {
		return false
	}
	r.cron.Remove(entryID)
	delete(r.entries, watcherID)
	return true
}
