package datastore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aleister1102/marketwatch/internal/common"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(query string, status models.WatcherStatus) *models.Watcher {
	now := time.Now().UTC().Truncate(time.Millisecond)
	minPrice := int64(100)
	return &models.Watcher{
		ID:       uuid.NewString(),
		Query:    query,
		Schedule: "*/5 * * * *",
		Notifications: []models.NotificationTarget{
			models.DiscordTarget("https://discord.test/hook"),
			models.EmailTarget("me@example.com"),
		},
		Status:    status,
		MinPrice:  &minPrice,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// runWatcherRepositoryContract exercises the behaviour every backend must share.
func runWatcherRepositoryContract(t *testing.T, repo models.WatcherRepository) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		w := newTestWatcher("macbook pro", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, w.Query, got.Query)
		assert.Equal(t, w.Schedule, got.Schedule)
		assert.Equal(t, w.Notifications, got.Notifications)
		assert.Equal(t, models.WatcherStatusActive, got.Status)
		assert.Nil(t, got.LastRun)
		assert.Nil(t, got.Marker)
		assert.Zero(t, got.NumberOfRuns)
		require.NotNil(t, got.MinPrice)
		assert.Equal(t, int64(100), *got.MinPrice)
		assert.Nil(t, got.MaxPrice)
		assert.True(t, w.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate create", func(t *testing.T) {
		w := newTestWatcher("duplicate", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))
		assert.ErrorIs(t, repo.Create(ctx, w), ErrWatcherExists)
	})

	t.Run("missing watcher", func(t *testing.T) {
		missing := uuid.NewString()
		_, err := repo.GetByID(ctx, missing)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateRunResult(ctx, missing, models.RunResult{LastRun: time.Now()}), common.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateStatus(ctx, missing, models.WatcherStatusStopped), common.ErrNotFound)
		assert.ErrorIs(t, repo.UpdateSchedule(ctx, missing, "@hourly"), common.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, missing), common.ErrNotFound)
	})

	t.Run("run result bookkeeping", func(t *testing.T) {
		w := newTestWatcher("bookkeeping", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))

		lastRun := time.Now().UTC().Truncate(time.Millisecond)
		marker := &models.Marker{IDs: []string{"a3", "a1", "a2"}}
		require.NoError(t, repo.UpdateRunResult(ctx, w.ID, models.RunResult{LastRun: lastRun, NumberOfRuns: 1, Marker: marker}))

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastRun)
		assert.True(t, lastRun.Equal(*got.LastRun))
		assert.Equal(t, 1, got.NumberOfRuns)
		assert.Equal(t, marker.IDs, got.Marker.IDs)
		assert.Equal(t, w.Query, got.Query)
	})

	t.Run("empty baseline marker survives", func(t *testing.T) {
		w := newTestWatcher("empty baseline", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))

		require.NoError(t, repo.UpdateRunResult(ctx, w.ID, models.RunResult{
			LastRun:      time.Now(),
			NumberOfRuns: 1,
			Marker:       &models.Marker{IDs: []string{}},
		}))

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Marker, "an empty marker is distinct from no marker")
		assert.Empty(t, got.Marker.IDs)
	})

	t.Run("status drives active listing", func(t *testing.T) {
		w := newTestWatcher("status", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))
		assert.Contains(t, watcherIDs(t, repo, true), w.ID)

		require.NoError(t, repo.UpdateStatus(ctx, w.ID, models.WatcherStatusStopped))
		assert.NotContains(t, watcherIDs(t, repo, true), w.ID)
		assert.Contains(t, watcherIDs(t, repo, false), w.ID)

		require.NoError(t, repo.UpdateStatus(ctx, w.ID, models.WatcherStatusActive))
		assert.Contains(t, watcherIDs(t, repo, true), w.ID)
	})

	t.Run("schedule and definition updates", func(t *testing.T) {
		w := newTestWatcher("definition", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))

		require.NoError(t, repo.UpdateSchedule(ctx, w.ID, "@every 10m"))
		maxPrice := int64(5000)
		require.NoError(t, repo.UpdateDefinition(ctx, w.ID, models.WatcherDefinition{
			Query:         "macbook air",
			Schedule:      "@every 10m",
			Notifications: nil,
			MaxPrice:      &maxPrice,
		}))

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "macbook air", got.Query)
		assert.Equal(t, "@every 10m", got.Schedule)
		assert.Empty(t, got.Notifications)
		assert.Nil(t, got.MinPrice)
		require.NotNil(t, got.MaxPrice)
		assert.Equal(t, int64(5000), *got.MaxPrice)
	})

	t.Run("delete", func(t *testing.T) {
		w := newTestWatcher("delete", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))
		require.NoError(t, repo.Delete(ctx, w.ID))

		_, err := repo.GetByID(ctx, w.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.NotContains(t, watcherIDs(t, repo, false), w.ID)
		assert.NotContains(t, watcherIDs(t, repo, true), w.ID)
	})

	t.Run("concurrent run results", func(t *testing.T) {
		w := newTestWatcher("concurrent", models.WatcherStatusActive)
		require.NoError(t, repo.Create(ctx, w))

		var wg sync.WaitGroup
		for i := 1; i <= 8; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				assert.NoError(t, repo.UpdateRunResult(ctx, w.ID, models.RunResult{LastRun: time.Now(), NumberOfRuns: n}))
			}(i)
		}
		wg.Wait()

		got, err := repo.GetByID(ctx, w.ID)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.NumberOfRuns, 1)
	})
}

func watcherIDs(t *testing.T, repo models.WatcherRepository, activeOnly bool) []string {
	t.Helper()
	var (
		watchers []models.Watcher
		err      error
	)
	if activeOnly {
		watchers, err = repo.ListActive(context.Background())
	} else {
		watchers, err = repo.List(context.Background())
	}
	require.NoError(t, err)
	ids := make([]string, 0, len(watchers))
	for _, w := range watchers {
		ids = append(ids, w.ID)
	}
	return ids
}
