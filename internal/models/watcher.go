package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// WatcherStatus governs whether the scheduler keeps a live timer for a watcher.
type WatcherStatus string

const (
	WatcherStatusActive  WatcherStatus = "active"
	WatcherStatusStopped WatcherStatus = "stopped"
)

// IsValid reports whether s is one of the known statuses.
func (s WatcherStatus) IsValid() bool {
	return s == WatcherStatusActive || s == WatcherStatusStopped
}

// NotificationKind identifies a notification channel.
type NotificationKind string

const (
	NotificationKindDiscord NotificationKind = "DISCORD"
	NotificationKindEmail   NotificationKind = "EMAIL"
)

// NotificationTarget is one configured notification channel of a watcher.
// Exactly one of WebhookURL / Email is meaningful, selected by Kind.
type NotificationTarget struct {
	Kind       NotificationKind `json:"kind" validate:"required,oneof=DISCORD EMAIL"`
	WebhookURL string           `json:"webhook_url,omitempty" validate:"omitempty,url"`
	Email      string           `json:"email,omitempty" validate:"omitempty,email"`
}

// DiscordTarget builds a webhook target. An empty URL means "use the configured default".
func DiscordTarget(webhookURL string) NotificationTarget {
	return NotificationTarget{Kind: NotificationKindDiscord, WebhookURL: webhookURL}
}

// EmailTarget builds an email target.
func EmailTarget(email string) NotificationTarget {
	return NotificationTarget{Kind: NotificationKindEmail, Email: email}
}

// String returns a log-friendly description of the target.
func (t NotificationTarget) String() string {
	switch t.Kind {
	case NotificationKindDiscord:
		if t.WebhookURL == "" {
			return "discord:default"
		}
		return "discord:" + t.WebhookURL
	case NotificationKindEmail:
		if t.Email == "" {
			return "email:default"
		}
		return "email:" + t.Email
	default:
		return fmt.Sprintf("unknown:%s", t.Kind)
	}
}

// UnmarshalJSON rejects unknown kinds so they never reach the dispatcher.
func (t *NotificationTarget) UnmarshalJSON(data []byte) error {
	type rawTarget NotificationTarget
	var raw rawTarget
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case NotificationKindDiscord, NotificationKindEmail:
	default:
		return fmt.Errorf("unknown notification kind %q", raw.Kind)
	}
	*t = NotificationTarget(raw)
	return nil
}

// Marker records the identifiers of listings already seen by a watcher,
// most recent first.
type Marker struct {
	IDs []string `json:"ids"`
}

// Contains reports whether id is part of the marker.
func (m *Marker) Contains(id string) bool {
	if m == nil {
		return false
	}
	for _, known := range m.IDs {
		if known == id {
			return true
		}
	}
	return false
}

// Len returns the number of identifiers held by the marker.
func (m *Marker) Len() int {
	if m == nil {
		return 0
	}
	return len(m.IDs)
}

// Watcher is a persisted recurring marketplace search.
type Watcher struct {
	ID            string               `json:"id"`
	Query         string               `json:"query" validate:"required"`
	Schedule      string               `json:"schedule" validate:"required"`
	Notifications []NotificationTarget `json:"notifications" validate:"dive"`
	Status        WatcherStatus        `json:"status"`
	LastRun       *time.Time           `json:"last_run"`
	NumberOfRuns  int                  `json:"number_of_runs"`
	MinPrice      *int64               `json:"min_price" validate:"omitempty,min=0"`
	MaxPrice      *int64               `json:"max_price" validate:"omitempty,min=0"`
	Marker        *Marker              `json:"-"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// IsActive reports whether the watcher should hold a scheduler timer.
func (w Watcher) IsActive() bool {
	return w.Status == WatcherStatusActive
}

// WatcherDefinition holds the user-editable fields of a watcher.
type WatcherDefinition struct {
	Query         string               `json:"query" validate:"required"`
	Schedule      string               `json:"schedule" validate:"required"`
	Notifications []NotificationTarget `json:"notifications" validate:"dive"`
	MinPrice      *int64               `json:"min_price" validate:"omitempty,min=0"`
	MaxPrice      *int64               `json:"max_price" validate:"omitempty,min=0"`
}

// RunResult is the bookkeeping written after a completed run cycle.
type RunResult struct {
	LastRun      time.Time
	NumberOfRuns int
	Marker       *Marker
}
