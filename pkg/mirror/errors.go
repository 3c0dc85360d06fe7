// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"errors"
	"fmt"
)

// Common errors returned by the library.
var (
	// ErrInvalidSettings is matched (via errors.Is) by every job
	// validation failure. No process is spawned when it is returned.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrUnsupportedOperation is returned by Pause and Resume on
	// platforms without process-suspend support. It is reported, never
	// silently swallowed, and is not fatal to the job.
	ErrUnsupportedOperation = errors.New("operation not supported on this platform")

	// ErrTerminationTimeout is returned by Stop when the process outlived
	// both the grace period and the forced-kill escalation window.
	ErrTerminationTimeout = errors.New("process did not terminate within the grace period")

	// ErrAlreadyStarted is returned when Start is called on a supervisor
	// that has already spawned its process.
	ErrAlreadyStarted = errors.New("process already started")

	// ErrNotRunning is returned by Pause, Resume and Stop when the
	// process is not in a state that admits the transition.
	ErrNotRunning = errors.New("process is not running")
)

// InvalidSettingsError reports which part of a Job failed validation.
type InvalidSettingsError struct {
	Field  string
	Reason string
}

func (e *InvalidSettingsError) Error() string {
	return fmt.Sprintf("invalid settings: %s: %s", e.Field, e.Reason)
}

// Is makes every InvalidSettingsError match ErrInvalidSettings.
func (e *InvalidSettingsError) Is(target error) bool {
	return target == ErrInvalidSettings
}

// SpawnError is returned when the external executable cannot be located
// or launched. It is reported immediately; the core never retries.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// StreamError is an I/O failure while reading subprocess output. It ends
// the current job's monitoring but not the supervisor: the process exit
// code is still awaited and reported.
type StreamError struct {
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("output stream: %v", e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}
