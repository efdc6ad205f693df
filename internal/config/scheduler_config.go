package config

import "time"

// SchedulerConfig defines configuration for the watcher scheduler
type SchedulerConfig struct {
	// RunTimeoutSecs caps a single run cycle, provider call and deliveries included.
	RunTimeoutSecs      int    `json:"run_timeout_secs,omitempty" yaml:"run_timeout_secs,omitempty" validate:"min=1"`
	ShutdownTimeoutSecs int    `json:"shutdown_timeout_secs,omitempty" yaml:"shutdown_timeout_secs,omitempty" validate:"min=1"`
	Location            string `json:"location,omitempty" yaml:"location,omitempty" validate:"omitempty,timezone"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RunTimeoutSecs:      DefaultSchedulerRunTimeoutSecs,
		ShutdownTimeoutSecs: DefaultSchedulerShutdownTimeoutSecs,
	}
}

// RunTimeout returns the run cycle timeout.
func (c SchedulerConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSecs) * time.Second
}

// ShutdownTimeout returns how long Stop waits for in-flight cycles.
func (c SchedulerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// TimeLocation resolves Location, falling back to the local zone.
func (c SchedulerConfig) TimeLocation() *time.Location {
	if c.Location == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return time.Local
	}
	return loc
}
