package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable reports that no analysis could be produced for a symbol.
	ErrUnavailable = errors.New("analysis unavailable")
	// ErrScanInProgress rejects a scan request while another scan is active.
	ErrScanInProgress = errors.New("Scan already in progress")
	// ErrNoResults is returned when no scan has completed yet.
	ErrNoResults = errors.New("No results available")
)

// Unavailable wraps ErrUnavailable with the symbol and an optional cause.
func Unavailable(symbol string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", symbol, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w: %v", symbol, ErrUnavailable, cause)
}

// ConfigError reports a malformed configuration or filter payload.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Stages at which a scan can fail fatally.
const (
	StageResolve = "resolve"
	StageRank    = "rank"
	StagePersist = "persist"
	StageCancel  = "cancel"
	StagePanic   = "panic"
)

// FatalError aborts a scan run.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("Scan failed (%s): %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal builds a FatalError for stage.
func Fatal(stage string, err error) error {
	return &FatalError{Stage: stage, Err: err}
}

// IsConfigError reports whether err is or wraps a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
