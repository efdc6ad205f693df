package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS watchers (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	schedule TEXT NOT NULL,
	notifications TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL,
	last_run TEXT,
	number_of_runs INTEGER NOT NULL DEFAULT 0,
	min_price INTEGER,
	max_price INTEGER,
	marker TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_watchers_status ON watchers(status);
`

const sqliteWatcherColumns = `id, query, schedule, notifications, status, last_run, number_of_runs, min_price, max_price, marker, created_at, updated_at`

// SQLiteWatcherStore persists watchers in a single SQLite file.
type SQLiteWatcherStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewSQLiteWatcherStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteWatcherStore(path string, logger zerolog.Logger) (*SQLiteWatcherStore, error) {
	logger = logger.With().Str("component", "SQLiteWatcherStore").Logger()
	logger.Info().Str("db_path", path).Msg("Initializing watcher database connection")

	if dir := filepath.Dir(path); dir != "" && path != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", path, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under concurrent cycles.
	db.SetMaxOpenConns(1)

	store := &SQLiteWatcherStore{
		db:     db,
		logger: logger,
		now:    time.Now,
	}

	if err := store.InitSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info().Str("path", path).Msg("Database initialized and schema verified")
	return store, nil
}

// InitSchema creates the watchers table if it doesn't already exist.
func (s *SQLiteWatcherStore) InitSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		s.logger.Error().Err(err).Msg("Failed to initialize schema")
		return err
	}
	return nil
}

func (s *SQLiteWatcherStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteWatcherStore) Create(ctx context.Context, w *models.Watcher) error {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO watchers (`+sqliteWatcherColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Query, w.Schedule, string(notifications), string(w.Status),
		formatNullableTime(w.LastRun), w.NumberOfRuns, w.MinPrice, w.MaxPrice, nullableText(marker),
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("%w: %s", ErrWatcherExists, w.ID)
		}
		return fmt.Errorf("insert watcher %s: %w", w.ID, err)
	}
	return nil
}

func (s *SQLiteWatcherStore) GetByID(ctx context.Context, id string) (*models.Watcher, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteWatcherColumns+` FROM watchers WHERE id = ?`, id)
	w, err := scanSQLiteWatcher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get watcher %s: %w", id, err)
	}
	return w, nil
}

func (s *SQLiteWatcherStore) List(ctx context.Context) ([]models.Watcher, error) {
	return s.query(ctx, `SELECT `+sqliteWatcherColumns+` FROM watchers ORDER BY created_at, id`)
}

func (s *SQLiteWatcherStore) ListActive(ctx context.Context) ([]models.Watcher, error) {
	return s.query(ctx, `SELECT `+sqliteWatcherColumns+` FROM watchers WHERE status = ? ORDER BY created_at, id`, string(models.WatcherStatusActive))
}

func (s *SQLiteWatcherStore) UpdateRunResult(ctx context.Context, id string, result models.RunResult) error {
	marker, err := encodeMarker(result.Marker)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	return s.exec(ctx, id,
		`UPDATE watchers SET last_run = ?, number_of_runs = ?, marker = ? WHERE id = ?`,
		formatTime(result.LastRun), result.NumberOfRuns, nullableText(marker), id,
	)
}

func (s *SQLiteWatcherStore) UpdateStatus(ctx context.Context, id string, status models.WatcherStatus) error {
	return s.exec(ctx, id,
		`UPDATE watchers SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.now()), id,
	)
}

func (s *SQLiteWatcherStore) UpdateSchedule(ctx context.Context, id string, schedule string) error {
	return s.exec(ctx, id,
		`UPDATE watchers SET schedule = ?, updated_at = ? WHERE id = ?`,
		schedule, formatTime(s.now()), id,
	)
}

func (s *SQLiteWatcherStore) UpdateDefinition(ctx context.Context, id string, def models.WatcherDefinition) error {
	notifications, err := encodeNotifications(def.Notifications)
	if err != nil {
		return fmt.Errorf("encode notifications: %w", err)
	}
	return s.exec(ctx, id,
		`UPDATE watchers SET query = ?, schedule = ?, notifications = ?, min_price = ?, max_price = ?, updated_at = ? WHERE id = ?`,
		def.Query, def.Schedule, string(notifications), def.MinPrice, def.MaxPrice, formatTime(s.now()), id,
	)
}

func (s *SQLiteWatcherStore) Delete(ctx context.Context, id string) error {
	return s.exec(ctx, id, `DELETE FROM watchers WHERE id = ?`, id)
}

// exec runs a single-row statement and maps zero affected rows to ErrNotFound.
func (s *SQLiteWatcherStore) exec(ctx context.Context, id string, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Str("watcher_id", id).Msg("Watcher update failed")
		return fmt.Errorf("update watcher %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for watcher %s: %w", id, err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLiteWatcherStore) query(ctx context.Context, query string, args ...interface{}) ([]models.Watcher, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query watchers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	watchers := []models.Watcher{}
	for rows.Next() {
		w, err := scanSQLiteWatcher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan watcher: %w", err)
		}
		watchers = append(watchers, *w)
	}
	return watchers, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSQLiteWatcher(row rowScanner) (*models.Watcher, error) {
	var (
		w                    models.Watcher
		notifications        string
		status               string
		lastRun, marker      sql.NullString
		minPrice, maxPrice   sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&w.ID, &w.Query, &w.Schedule, &notifications, &status, &lastRun,
		&w.NumberOfRuns, &minPrice, &maxPrice, &marker, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	w.Status = models.WatcherStatus(status)
	if w.Notifications, err = decodeNotifications([]byte(notifications)); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	if marker.Valid {
		if w.Marker, err = decodeMarker([]byte(marker.String)); err != nil {
			return nil, fmt.Errorf("decode marker: %w", err)
		}
	}
	if lastRun.Valid {
		t, err := parseTime(lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("parse last_run: %w", err)
		}
		w.LastRun = &t
	}
	if minPrice.Valid {
		w.MinPrice = &minPrice.Int64
	}
	if maxPrice.Valid {
		w.MaxPrice = &maxPrice.Int64
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &w, nil
}

// Timestamps are stored as UTC RFC3339 text so lexical order matches time order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullableText(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
