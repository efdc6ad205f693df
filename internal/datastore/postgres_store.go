package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS watchers (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	schedule TEXT NOT NULL,
	notifications JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	last_run TIMESTAMPTZ,
	number_of_runs INTEGER NOT NULL DEFAULT 0,
	min_price BIGINT,
	max_price BIGINT,
	marker JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_watchers_status ON watchers(status);
`

const postgresWatcherColumns = `id, query, schedule, notifications, status, last_run, number_of_runs, min_price, max_price, marker, created_at, updated_at`

const pgUniqueViolation = "23505"

// PostgresWatcherStore persists watchers in PostgreSQL through a pgx pool.
type PostgresWatcherStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
	now    func() time.Time
}

// NewPostgresWatcherStore connects to databaseURL, verifies connectivity and
// ensures the schema exists.
func NewPostgresWatcherStore(ctx context.Context, databaseURL string, logger zerolog.Logger) (*PostgresWatcherStore, error) {
	logger = logger.With().Str("component", "PostgresWatcherStore").Logger()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	store := &PostgresWatcherStore{pool: pool, logger: logger, now: time.Now}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Msg("Postgres watcher store ready")
	return store, nil
}

func (s *PostgresWatcherStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresWatcherStore) Create(ctx context.Context, w *models.Watcher) error {
	if err := validateNewWatcher(w); err != nil {
		return err
	}
	notifications, err := encodeNotifications(w.Notifications)
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}
	marker, err := encodeMarker(w.Marker)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO watchers (`+postgresWatcherColumns+`)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6, $7, $8, $9, $10::jsonb, $11, $12)`,
		w.ID, w.Query, w.Schedule, string(notifications), string(w.Status),
		w.LastRun, w.NumberOfRuns, w.MinPrice, w.MaxPrice, nullableText(marker),
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", ErrWatcherExists, w.ID)
		}
		return fmt.Errorf("insert watcher %s: %w", w.ID, err)
	}
	return nil
}

func (s *PostgresWatcherStore) GetByID(ctx context.Context, id string) (*models.Watcher, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresWatcherColumns+` FROM watchers WHERE id = $1`, id)
	w, err := scanPostgresWatcher(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get watcher %s: %w", id, err)
	}
	return w, nil
}

func (s *PostgresWatcherStore) List(ctx context.Context) ([]models.Watcher, error) {
	return s.query(ctx, `SELECT `+postgresWatcherColumns+` FROM watchers ORDER BY created_at, id`)
}

func (s *PostgresWatcherStore) ListActive(ctx context.Context) ([]models.Watcher, error) {
	return s.query(ctx, `SELECT `+postgresWatcherColumns+` FROM watchers WHERE status = $1 ORDER BY created_at, id`, string(models.WatcherStatusActive))
}

func (s *PostgresWatcherStore) UpdateRunResult(ctx context.Context, id string, result models.RunResult) error {
	marker, err := encodeMarker(result.Marker)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	return s.exec(ctx, id,
		`UPDATE watchers SET last_run = $1, number_of_runs = $2, marker = $3::jsonb WHERE id = $4`,
		result.LastRun, result.NumberOfRuns, nullableText(marker), id,
	)
}

func (s *PostgresWatcherStore) UpdateStatus(ctx context.Context, id string, status models.WatcherStatus) error {
	return s.exec(ctx, id,
		`UPDATE watchers SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), s.now(), id,
	)
}

func (s *PostgresWatcherStore) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	return s.exec(ctx, id,
		`UPDATE watchers SET schedule = $1, updated_at = $2 WHERE id = $3`,
		schedule, s.now(), id,
	)
}

func (s *PostgresWatcherStore) UpdateDefinition(ctx context.Context, id string, def models.WatcherDefinition) error {
	notifications, err := encodeNotifications(def.Notifications)
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}
	return s.exec(ctx, id,
		`UPDATE watchers SET query = $1, schedule = $2, notifications = $3::jsonb, min_price = $4, max_price = $5, updated_at = $6 WHERE id = $7`,
		def.Query, def.Schedule, string(notifications), def.MinPrice, def.MaxPrice, s.now(), id,
	)
}

func (s *PostgresWatcherStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM watchers WHERE id = $1`, id)
}

func (s *PostgresWatcherStore) exec(ctx context.Context, id string, query string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("watcher_id", id).Msg("Watcher update failed")
		return fmt.Errorf("update watcher %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *PostgresWatcherStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Watcher, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchers: %w", err)
	}
	defer rows.Close()

	watchers := []models.Watcher{}
	for rows.Next() {
		w, err := scanPostgresWatcher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		watchers = append(watchers, *w)
	}
	return watchers, rows.Err()
}

func scanPostgresWatcher(row pgx.Row) (*models.Watcher, error) {
	var (
		w             models.Watcher
		status        string
		notifications []byte
		marker        []byte
	)
	if err := row.Scan(&w.ID, &w.Query, &w.Schedule, &notifications, &status, &w.LastRun,
		&w.NumberOfRuns, &w.MinPrice, &w.MaxPrice, &marker, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	w.Status = models.WatcherStatus(status)
	if w.Notifications, err = decodeNotifications(notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	if w.Marker, err = decodeMarker(marker); err != nil {
		return nil, fmt.Errorf("decode marker: %w", err)
	}
	return &w, nil
}
