package domain

import (
	"errors"
	"fmt"
)

// ErrNothingToSpeak is returned when a TTS activation finds no clipboard text.
var ErrNothingToSpeak = errors.New("clipboard has no text to speak")

// BackendErrorKind classifies a backend failure for retry and fallback decisions.
type BackendErrorKind int

const (
	// BackendTransient failures are retried or trigger provider fallback.
	BackendTransient BackendErrorKind = iota
	// BackendFatal failures (credentials, service unavailable) end the session.
	BackendFatal
)

func (k BackendErrorKind) String() string {
	if k == BackendFatal {
		return "fatal"
	}
	return "transient"
}

// BackendError wraps a failure reported by a recognition or synthesis backend.
type BackendError struct {
	Provider string
	Kind     BackendErrorKind
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transient marks err as a retryable backend failure.
func Transient(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Provider: provider, Kind: BackendTransient, Err: err}
}

// Fatal marks err as an unrecoverable backend failure.
func Fatal(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Provider: provider, Kind: BackendFatal, Err: err}
}

// IsFatal reports whether err carries a fatal backend classification.
// Unclassified errors are treated as transient.
func IsFatal(err error) bool {
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Kind == BackendFatal
	}
	return false
}

// ConfigurationError describes an invalid setting that was replaced by a safe default.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}
