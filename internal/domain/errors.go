// Package domain provides the error taxonomy shared by the reduction pipeline.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error produced by the pipeline wraps exactly one of these
// so callers can classify failures with errors.Is.
var (
	// ErrConfiguration marks invalid run configuration (fails before any circuit work).
	ErrConfiguration = errors.New("configuration error")
	// ErrNumerical marks a singular or ill-conditioned calibration matrix.
	ErrNumerical = errors.New("numerical error")
	// ErrInsufficientData marks an extrapolation with too few distinct scale factors.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrData marks malformed or partial collaborator data.
	ErrData = errors.New("data error")
	// ErrInvariant marks an internal invariant violation such as a sweep index mismatch.
	ErrInvariant = errors.New("invariant violation")
)

// ConfigurationError represents a single invalid configuration field.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfiguration, e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

// ConfigurationErrors collects every invalid field found during validation.
type ConfigurationErrors []ConfigurationError

func (e ConfigurationErrors) Error() string {
	var messages []string
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Unwrap allows errors.Is(err, ErrConfiguration).
func (e ConfigurationErrors) Unwrap() error {
	return ErrConfiguration
}

// ErrorOrNil returns nil for an empty collection.
func (e ConfigurationErrors) ErrorOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Numericalf wraps ErrNumerical with a formatted message.
func Numericalf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNumerical, fmt.Sprintf(format, args...))
}

// InsufficientDataf wraps ErrInsufficientData with a formatted message.
func InsufficientDataf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientData, fmt.Sprintf(format, args...))
}

// Dataf wraps ErrData with a formatted message.
func Dataf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrData, fmt.Sprintf(format, args...))
}

// Invariantf wraps ErrInvariant with a formatted message.
func Invariantf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
