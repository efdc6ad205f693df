package models

import "time"

// RunStatus describes how a run cycle ended.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// DeliveryReport is the result of dispatching listings to one target.
// Dispatchers never return errors; failures are counted here instead.
type DeliveryReport struct {
	Target         NotificationTarget
	MessagesSent   int
	MessagesFailed int
	LastErr        error
}

// OK reports whether every message for the target was delivered.
func (r DeliveryReport) OK() bool {
	return r.MessagesFailed == 0 && r.LastErr == nil
}

// RunOutcome is the transient result of one watcher run cycle.
type RunOutcome struct {
	WatcherID   string
	Status      RunStatus
	NewListings []Listing
	Marker      *Marker
	Deliveries  []DeliveryReport
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Duration returns how long the cycle took.
func (o RunOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}
