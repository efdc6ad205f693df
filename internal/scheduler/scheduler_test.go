package scheduler

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/datastore"
	"github.com/aleister1102/marketwatch/internal/differ"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/aleister1102/marketwatch/internal/monitor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecutor struct {
	mu       sync.Mutex
	calls    int
	listings []models.Listing
}

func (s *stubExecutor) Execute(_ context.Context, _ *models.Watcher) ([]models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.listings, nil
}

type recordingDispatcher struct {
	mu       sync.Mutex
	listings [][]models.Listing
}

func (r *recordingDispatcher) DispatchAll(_ context.Context, targets []models.NotificationTarget, listings []models.Listing) []models.DeliveryReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = append(r.listings, listings)
	return []models.DeliveryReport{{MessagesSent: 1}}
}

type failingListRepo struct {
	models.WatcherRepository
}

func (failingListRepo) ListActive(context.Context) ([]models.Watcher, error) {
	return nil, errors.New("database is locked")
}

type testEnv struct {
	repo       *datastore.SQLiteWatcherStore
	executor   *stubExecutor
	dispatcher *recordingDispatcher
	scheduler  *Scheduler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := datastore.NewSQLiteWatcherStore(filepath.Join(t.TempDir(), "watchers.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	env := &testEnv{
		repo:       repo,
		executor:   &stubExecutor{},
		dispatcher: &recordingDispatcher{},
	}
	runner := monitor.NewRunner(repo, env.executor, differ.NewListingDiffer(differ.DefaultCapacity, zerolog.Nop()),
		env.dispatcher, monitor.NewWatcherMutexManager(zerolog.Nop()), time.Minute, zerolog.Nop())

	schedCfg := config.NewDefaultSchedulerConfig()
	schedCfg.Location = "UTC"
	env.scheduler = NewScheduler(schedCfg, config.NewDefaultNotificationConfig(), repo, runner, zerolog.Nop())
	return env
}

func definition(query, schedule string) models.WatcherDefinition {
	return models.WatcherDefinition{
		Query:         query,
		Schedule:      schedule,
		Notifications: []models.NotificationTarget{models.DiscordTarget("https://discord.test/hook")},
	}
}

func insertWatcher(t *testing.T, repo models.WatcherRepository, id, schedule string, status models.WatcherStatus) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), &models.Watcher{
		ID:        id,
		Query:     "bike",
		Schedule:  schedule,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func TestScheduler_StartRegistersActiveWatchers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insertWatcher(t, env.repo, "good", "*/5 * * * *", models.WatcherStatusActive)
	insertWatcher(t, env.repo, "bad", "every now and then", models.WatcherStatusActive)
	insertWatcher(t, env.repo, "paused", "@hourly", models.WatcherStatusStopped)

	require.NoError(t, env.scheduler.Start(ctx))
	defer func() { _ = env.scheduler.Stop(ctx) }()

	reg := env.scheduler.Registry()
	assert.True(t, reg.IsRegistered("good"))
	assert.False(t, reg.IsRegistered("bad"))
	assert.False(t, reg.IsRegistered("paused"))
	assert.Equal(t, 1, reg.Count())

	bad, err := env.repo.GetByID(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, models.WatcherStatusStopped, bad.Status)

	assert.Error(t, env.scheduler.Start(ctx), "starting twice fails")
}

func TestScheduler_StartFailsWhenListingFails(t *testing.T) {
	env := newTestEnv(t)
	runner := monitor.NewRunner(env.repo, env.executor, differ.NewListingDiffer(0, zerolog.Nop()),
		env.dispatcher, monitor.NewWatcherMutexManager(zerolog.Nop()), time.Minute, zerolog.Nop())
	s := NewScheduler(config.NewDefaultSchedulerConfig(), config.NewDefaultNotificationConfig(),
		failingListRepo{WatcherRepository: env.repo}, runner, zerolog.Nop())

	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "database is locked")
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_MutationsReconcileRegistry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.scheduler
	reg := s.Registry()
	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Stop(ctx) }()

	w, err := s.CreateWatcher(ctx, definition("  macbook pro ", "*/5 * * * *"))
	require.NoError(t, err)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "macbook pro", w.Query)
	assert.Equal(t, models.WatcherStatusActive, w.Status)
	assert.Nil(t, w.LastRun)
	assert.Zero(t, w.NumberOfRuns)
	assert.True(t, reg.IsRegistered(w.ID))

	paused, err := s.PauseWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WatcherStatusStopped, paused.Status)
	assert.False(t, reg.IsRegistered(w.ID))

	_, err = s.PauseWatcher(ctx, w.ID)
	assert.NoError(t, err, "pausing a stopped watcher is a no-op")

	resumed, err := s.ResumeWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WatcherStatusActive, resumed.Status)
	assert.True(t, reg.IsRegistered(w.ID))

	_, err = s.RescheduleWatcher(ctx, w.ID, "bogus")
	var scheduleErr *common.InvalidScheduleError
	require.ErrorAs(t, err, &scheduleErr)
	got, err := s.GetWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "*/5 * * * *", got.Schedule)
	assert.True(t, reg.IsRegistered(w.ID))

	rescheduled, err := s.RescheduleWatcher(ctx, w.ID, "@hourly")
	require.NoError(t, err)
	assert.Equal(t, "@hourly", rescheduled.Schedule)
	assert.True(t, reg.IsRegistered(w.ID))
	require.Eventually(t, func() bool {
		next, ok := s.NextRun(w.ID)
		return ok && !next.IsZero() && next.Minute() == 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.DeleteWatcher(ctx, w.ID))
	assert.False(t, reg.IsRegistered(w.ID))
	_, err = s.GetWatcher(ctx, w.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWatcher(ctx, w.ID), common.ErrNotFound)
}

func TestScheduler_RescheduleStoppedWatcherStaysUnregistered(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insertWatcher(t, env.repo, "paused", "@hourly", models.WatcherStatusStopped)

	w, err := env.scheduler.RescheduleWatcher(ctx, "paused", "*/10 * * * *")
	require.NoError(t, err)
	assert.Equal(t, "*/10 * * * *", w.Schedule)
	assert.False(t, env.scheduler.Registry().IsRegistered("paused"))
}

func TestScheduler_ResumeWithInvalidStoredSchedule(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insertWatcher(t, env.repo, "broken", "not a cron", models.WatcherStatusStopped)

	_, err := env.scheduler.ResumeWatcher(ctx, "broken")
	var scheduleErr *common.InvalidScheduleError
	require.ErrorAs(t, err, &scheduleErr)

	w, err := env.repo.GetByID(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, models.WatcherStatusStopped, w.Status)
	assert.False(t, env.scheduler.Registry().IsRegistered("broken"))
}

func TestScheduler_MissingWatcher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.scheduler.PauseWatcher(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.scheduler.ResumeWatcher(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.scheduler.RescheduleWatcher(ctx, "missing", "@hourly")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.scheduler.UpdateWatcher(ctx, "missing", definition("bike", "@hourly"))
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.scheduler.TriggerWatcher(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.Zero(t, env.scheduler.Registry().Count())
}

func TestScheduler_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	minPrice, maxPrice := int64(500), int64(100)

	tests := []struct {
		name         string
		def          models.WatcherDefinition
		wantSchedule bool
	}{
		{name: "empty query", def: definition("   ", "@hourly")},
		{name: "bad schedule", def: definition("bike", "sometimes"), wantSchedule: true},
		{
			name: "inverted price range",
			def: models.WatcherDefinition{
				Query: "bike", Schedule: "@hourly", MinPrice: &minPrice, MaxPrice: &maxPrice,
			},
		},
		{
			name: "email target without address",
			def: models.WatcherDefinition{
				Query: "bike", Schedule: "@hourly",
				Notifications: []models.NotificationTarget{models.EmailTarget("")},
			},
		},
		{
			name: "malformed webhook url",
			def: models.WatcherDefinition{
				Query: "bike", Schedule: "@hourly",
				Notifications: []models.NotificationTarget{models.DiscordTarget("not a url")},
			},
		},
		{
			name: "unknown kind",
			def: models.WatcherDefinition{
				Query: "bike", Schedule: "@hourly",
				Notifications: []models.NotificationTarget{{Kind: "PIGEON"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := env.scheduler.CreateWatcher(ctx, tt.def)
			assert.Nil(t, w)
			if tt.wantSchedule {
				var scheduleErr *common.InvalidScheduleError
				assert.ErrorAs(t, err, &scheduleErr)
			} else {
				var validationErr *common.ValidationError
				assert.ErrorAs(t, err, &validationErr)
			}
		})
	}

	all, err := env.scheduler.ListWatchers(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, env.scheduler.Registry().Count())
}

func TestScheduler_UpdateWatcher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w, err := env.scheduler.CreateWatcher(ctx, definition("bike", "*/5 * * * *"))
	require.NoError(t, err)

	maxPrice := int64(3000)
	updated, err := env.scheduler.UpdateWatcher(ctx, w.ID, models.WatcherDefinition{
		Query:         "road bike",
		Schedule:      "@every 10m",
		Notifications: []models.NotificationTarget{models.EmailTarget("me@example.com")},
		MaxPrice:      &maxPrice,
	})
	require.NoError(t, err)
	assert.Equal(t, "road bike", updated.Query)
	assert.Equal(t, "@every 10m", updated.Schedule)
	require.NotNil(t, updated.MaxPrice)
	assert.Equal(t, int64(3000), *updated.MaxPrice)
	assert.Equal(t, []models.NotificationTarget{models.EmailTarget("me@example.com")}, updated.Notifications)
	assert.True(t, env.scheduler.Registry().IsRegistered(w.ID))
}

func TestScheduler_TriggerWatcher(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w, err := env.scheduler.CreateWatcher(ctx, definition("bike", "@hourly"))
	require.NoError(t, err)

	env.executor.listings = []models.Listing{{ID: "a1", Title: "Bike"}}
	first, err := env.scheduler.TriggerWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, first.Status)
	assert.Empty(t, first.NewListings, "first run records a baseline")

	env.executor.listings = []models.Listing{{ID: "a2", Title: "New bike"}, {ID: "a1", Title: "Bike"}}
	second, err := env.scheduler.TriggerWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2"}, models.ListingIDs(second.NewListings))
	require.Len(t, env.dispatcher.listings, 1)

	got, err := env.scheduler.GetWatcher(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumberOfRuns)
	assert.NotNil(t, got.LastRun)
}

func TestScheduler_ScheduledTickRunsCycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	insertWatcher(t, env.repo, "fast", "* * * * * *", models.WatcherStatusActive)

	require.NoError(t, env.scheduler.Start(ctx))
	require.Eventually(t, func() bool {
		w, err := env.repo.GetByID(ctx, "fast")
		return err == nil && w.NumberOfRuns > 0
	}, 3*time.Second, 50*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	assert.NoError(t, env.scheduler.Stop(stopCtx))
}

func TestScheduler_LogsCarryComponent(t *testing.T) {
	env := newTestEnv(t)
	var buf bytes.Buffer
	runner := monitor.NewRunner(env.repo, env.executor, differ.NewListingDiffer(0, zerolog.Nop()),
		env.dispatcher, monitor.NewWatcherMutexManager(zerolog.Nop()), time.Minute, zerolog.Nop())
	s := NewScheduler(config.NewDefaultSchedulerConfig(), config.NewDefaultNotificationConfig(), env.repo, runner, zerolog.New(&buf))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop(context.Background()))

	assert.Contains(t, buf.String(), `"component":"Scheduler"`)
	assert.NotContains(t, buf.String(), `"module"`)
}
