package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisMaxTxRetries = 10

// RedisWatcherStore keeps one JSON document per watcher plus two ID sets (all
// watchers and active watchers). Field updates use optimistic WATCH transactions.
type RedisWatcherStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
	now    func() time.Time
}

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// NewRedisWatcherStore creates a store over client with keys namespaced by prefix.
func NewRedisWatcherStore(client *redis.Client, prefix string, logger zerolog.Logger) *RedisWatcherStore {
	if prefix == "" {
		prefix = "marketwatch"
	}
	return &RedisWatcherStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("component", "RedisWatcherStore").Logger(),
		now:    time.Now,
	}
}

func (s *RedisWatcherStore) watcherKey(id string) string {
	return s.prefix + ":watcher:" + id
}

func (s *RedisWatcherStore) allKey() string {
	return s.prefix + ":watchers"
}

func (s *RedisWatcherStore) activeKey() string {
	return s.prefix + ":watchers:active"
}

func (s *RedisWatcherStore) Close() error {
	return s.client.Close()
}

func (s *RedisWatcherStore) Create(ctx context.Context, w *models.Watcher) error {
	if err := validateNewWatcher(w); err != nil {
		return err
	}
	data, err := json.Marshal(toRecord(w))
	if err != nil {
		return fmt.Errorf("encode watcher: %w", err)
	}

	key := s.watcherKey(w.ID)
	return s.withTx(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrWatcherExists, w.ID)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, s.allKey(), w.ID)
			if w.IsActive() {
				pipe.SAdd(ctx, s.activeKey(), w.ID)
			}
			return nil
		})
		return err
	})
}

func (s *RedisWatcherStore) GetByID(ctx context.Context, id string) (*models.Watcher, error) {
	data, err := s.client.Get(ctx, s.watcherKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get watcher %s: %w", id, err)
	}
	return decodeRecord(data)
}

func (s *RedisWatcherStore) List(ctx context.Context) ([]models.Watcher, error) {
	return s.loadSet(ctx, s.allKey())
}

func (s *RedisWatcherStore) ListActive(ctx context.Context) ([]models.Watcher, error) {
	return s.loadSet(ctx, s.activeKey())
}

func (s *RedisWatcherStore) UpdateRunResult(ctx context.Context, id string, result models.RunResult) error {
	return s.update(ctx, id, func(r *watcherRecord) {
		lastRun := result.LastRun
		r.LastRun = &lastRun
		r.NumberOfRuns = result.NumberOfRuns
		r.Marker = result.Marker
	})
}

func (s *RedisWatcherStore) UpdateStatus(ctx context.Context, id string, status models.WatcherStatus) error {
	return s.update(ctx, id, func(r *watcherRecord) {
		r.Status = status
		r.UpdatedAt = s.now()
	})
}

func (s *RedisWatcherStore) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	return s.update(ctx, id, func(r *watcherRecord) {
		r.Schedule = schedule
		r.UpdatedAt = s.now()
	})
}

func (s *RedisWatcherStore) UpdateDefinition(ctx context.Context, id string, def models.WatcherDefinition) error {
	return s.update(ctx, id, func(r *watcherRecord) {
		r.Query = def.Query
		r.Schedule = def.Schedule
		r.Notifications = def.Notifications
		r.MinPrice = def.MinPrice
		r.MaxPrice = def.MaxPrice
		r.UpdatedAt = s.now()
	})
}

func (s *RedisWatcherStore) Delete(ctx context.Context, id string) error {
	key := s.watcherKey(id)
	return s.withTx(ctx, key, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			return notFound(id)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, s.allKey(), id)
			pipe.SRem(ctx, s.activeKey(), id)
			return nil
		})
		return err
	})
}

// update applies mutate to the stored record inside a WATCH transaction and
// keeps the active set in line with the record status.
func (s *RedisWatcherStore) update(ctx context.Context, id string, mutate func(r *watcherRecord)) error {
	key := s.watcherKey(id)
	return s.withTx(ctx, key, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound(id)
		}
		if err != nil {
			return err
		}

		var record watcherRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return fmt.Errorf("decode watcher %s: %w", id, err)
		}
		mutate(&record)
		updated, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode watcher %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			if record.Status == models.WatcherStatusActive {
				pipe.SAdd(ctx, s.activeKey(), id)
			} else {
				pipe.SRem(ctx, s.activeKey(), id)
			}
			return nil
		})
		return err
	})
}

// withTx runs fn under WATCH key, retrying when a concurrent writer wins.
func (s *RedisWatcherStore) withTx(ctx context.Context, key string, fn func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < redisMaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", key).Int("attempt", attempt+1).Msg("Optimistic transaction conflict, retrying")
			continue
		}
		return err
	}
	return fmt.Errorf("transaction on %s failed after %d attempts: %w", key, redisMaxTxRetries, redis.TxFailedErr)
}

func (s *RedisWatcherStore) loadSet(ctx context.Context, setKey string) ([]models.Watcher, error) {
	ids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list watcher ids: %w", err)
	}
	watchers := []models.Watcher{}
	if len(ids) == 0 {
		return watchers, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.watcherKey(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load watchers: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// ID left in the set by an interrupted delete.
			s.logger.Warn().Str("watcher_id", ids[i]).Msg("Watcher id without document, skipping")
			continue
		}
		w, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		watchers = append(watchers, *w)
	}

	sort.Slice(watchers, func(i, j int) bool {
		if watchers[i].CreatedAt.Equal(watchers[j].CreatedAt) {
			return watchers[i].ID < watchers[j].ID
		}
		return watchers[i].CreatedAt.Before(watchers[j].CreatedAt)
	})
	return watchers, nil
}

func decodeRecord(data []byte) (*models.Watcher, error) {
	var record watcherRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode watcher: %w", err)
	}
	return record.toWatcher(), nil
}
