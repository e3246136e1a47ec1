package manager

import (
	"errors"
	"strings"
)

// ErrShuttingDown is returned once shutdown has begun.
var ErrShuttingDown = errors.New("shutting down")

// ErrLaunchCanceled is the cause of a launch the operator declined.
var ErrLaunchCanceled = errors.New("canceled")

// IsShuttingDown reports whether err was caused by the shutdown latch.
func IsShuttingDown(err error) bool { return errors.Is(err, ErrShuttingDown) }

type modelNotFoundError struct {
	ID    string
	Known []string
}

func (e modelNotFoundError) Error() string {
	known := strings.Join(e.Known, ", ")
	if known == "" {
		known = "none configured"
	}
	if e.ID == "" {
		return "no model selected (available: " + known + ")"
	}
	return "model not found: " + e.ID + " (available: " + known + ")"
}

// ErrModelNotFound returns an error when a requested model id is not configured.
func ErrModelNotFound(id string, known []string) error {
	return modelNotFoundError{ID: id, Known: known}
}

// IsModelNotFound reports whether the error indicates a missing model id.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

type sessionNotFoundError struct {
	ID    string
	Known []string
}

func (e sessionNotFoundError) Error() string {
	if len(e.Known) == 0 {
		return "session not found: " + e.ID + " (no active sessions)"
	}
	return "session not found: " + e.ID + " (active: " + strings.Join(e.Known, ", ") + ")"
}

// ErrSessionNotFound returns an error for an unknown session id.
func ErrSessionNotFound(id string, known []string) error {
	return sessionNotFoundError{ID: id, Known: known}
}

// IsSessionNotFound reports whether err names an unknown session.
func IsSessionNotFound(err error) bool {
	var e sessionNotFoundError
	return errors.As(err, &e)
}

type launchError struct {
	SessionID string
	Cause     error
}

func (e launchError) Error() string { return "launch " + e.SessionID + ": " + e.Cause.Error() }

func (e launchError) Unwrap() error { return e.Cause }

// ErrLaunch wraps the reason a session could not be started.
func ErrLaunch(id string, cause error) error { return launchError{SessionID: id, Cause: cause} }

// IsLaunchError reports whether err is a session launch failure.
func IsLaunchError(err error) bool {
	var e launchError
	return errors.As(err, &e)
}
