package datastore

import (
	"encoding/json"
	"time"

	"github.com/aleister1102/marketwatch/internal/models"
)

// watcherRecord is the serialized form of a watcher. Unlike models.Watcher it
// includes the marker, which is internal state hidden from API responses.
type watcherRecord struct {
	ID            string                      `json:"id"`
	Query         string                      `json:"query"`
	Schedule      string                      `json:"schedule"`
	Notifications []models.NotificationTarget `json:"notifications"`
	Status        models.WatcherStatus        `json:"status"`
	LastRun       *time.Time                  `json:"last_run,omitempty"`
	NumberOfRuns  int                         `json:"number_of_runs"`
	MinPrice      *int64                      `json:"min_price,omitempty"`
	MaxPrice      *int64                      `json:"max_price,omitempty"`
	Marker        *models.Marker              `json:"marker,omitempty"`
	CreatedAt     time.Time                   `json:"created_at"`
	UpdatedAt     time.Time                   `json:"updated_at"`
}

func toRecord(w *models.Watcher) watcherRecord {
	return watcherRecord{
		ID:            w.ID,
		Query:         w.Query,
		Schedule:      w.Schedule,
		Notifications: w.Notifications,
		Status:        w.Status,
		LastRun:       w.LastRun,
		NumberOfRuns:  w.NumberOfRuns,
		MinPrice:      w.MinPrice,
		MaxPrice:      w.MaxPrice,
		Marker:        w.Marker,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func (r watcherRecord) toWatcher() *models.Watcher {
	notifications := r.Notifications
	if notifications == nil {
		notifications = []models.NotificationTarget{}
	}
	return &models.Watcher{
		ID:            r.ID,
		Query:         r.Query,
		Schedule:      r.Schedule,
		Notifications: notifications,
		Status:        r.Status,
		LastRun:       r.LastRun,
		NumberOfRuns:  r.NumberOfRuns,
		MinPrice:      r.MinPrice,
		MaxPrice:      r.MaxPrice,
		Marker:        r.Marker,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// encodeNotifications always yields a JSON array, never null.
func encodeNotifications(targets []models.NotificationTarget) ([]byte, error) {
	if targets == nil {
		targets = []models.NotificationTarget{}
	}
	return json.Marshal(targets)
}

func decodeNotifications(data []byte) ([]models.NotificationTarget, error) {
	targets := []models.NotificationTarget{}
	if len(data) == 0 {
		return targets, nil
	}
	if err := json.Unmarshal(data, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// encodeMarker returns nil for a nil marker so it is stored as NULL.
func encodeMarker(m *models.Marker) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func decodeMarker(data []byte) (*models.Marker, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m models.Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
