package datastore

import (
	"context"
	"fmt"

	"github.com/aleister1102/marketwatch/internal/config"
	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
)

// NewWatcherRepository opens the repository backend selected by cfg.Driver.
func NewWatcherRepository(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (models.WatcherRepository, error) {
	switch cfg.Driver {
	case config.StorageDriverSQLite, "":
		return NewSQLiteWatcherStore(cfg.SQLitePath, logger)
	case config.StorageDriverPostgres:
		return NewPostgresWatcherStore(ctx, cfg.PostgresURL, logger)
	case config.StorageDriverRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewRedisWatcherStore(client, cfg.RedisPrefix, logger), nil
	default:
		return nil, fmt.Errorf("unknown storage driver '%s'", cfg.Driver)
	}
}
