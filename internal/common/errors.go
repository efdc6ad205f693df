package common

import (
	"errors"
	"fmt"
)

// Common error types used across the application
var (
	// ErrNotFound indicates a watcher (or other resource) does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")
)

// WrapError wraps an error with additional context information
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context information
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// NewError creates a new error with a formatted message
func NewError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// ValidationError represents validation errors with field-specific information
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Message, e.Value)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// InvalidScheduleError is returned when a cron expression cannot be parsed.
type InvalidScheduleError struct {
	Schedule string
	Wrapped  error
}

func (e *InvalidScheduleError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("invalid schedule '%s': %v", e.Schedule, e.Wrapped)
	}
	return fmt.Sprintf("invalid schedule '%s'", e.Schedule)
}

func (e *InvalidScheduleError) Unwrap() error {
	return e.Wrapped
}

// NewInvalidScheduleError creates a new schedule error
func NewInvalidScheduleError(schedule string, wrapped error) *InvalidScheduleError {
	return &InvalidScheduleError{Schedule: schedule, Wrapped: wrapped}
}

// ProviderError represents a failed or unparseable search provider call
type ProviderError struct {
	Provider string
	Reason   string
	Wrapped  error
}

func (e *ProviderError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("search provider '%s': %s: %v", e.Provider, e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("search provider '%s': %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error {
	return e.Wrapped
}

// NewProviderError creates a new provider error
func NewProviderError(provider, reason string, wrapped error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Reason:   reason,
		Wrapped:  wrapped,
	}
}

// DeliveryError represents one failed notification attempt
type DeliveryError struct {
	Channel    string
	StatusCode int
	Message    string
	Wrapped    error
}

func (e *DeliveryError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s delivery failed with HTTP %d: %s", e.Channel, e.StatusCode, e.Message)
	case e.Wrapped != nil:
		return fmt.Sprintf("%s delivery failed: %s: %v", e.Channel, e.Message, e.Wrapped)
	default:
		return fmt.Sprintf("%s delivery failed: %s", e.Channel, e.Message)
	}
}

func (e *DeliveryError) Unwrap() error {
	return e.Wrapped
}

// NewDeliveryError creates a new delivery error for a transport failure
func NewDeliveryError(channel, message string, wrapped error) *DeliveryError {
	return &DeliveryError{
		Channel: channel,
		Message: message,
		Wrapped: wrapped,
	}
}

// NewDeliveryStatusError creates a new delivery error for a non-2xx response
func NewDeliveryStatusError(channel string, statusCode int, body string) *DeliveryError {
	return &DeliveryError{
		Channel:    channel,
		StatusCode: statusCode,
		Message:    body,
	}
}

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
