// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"fmt"
	"time"
)

// Job describes one site-mirroring run: what to fetch, where to put it,
// and how the external tool should behave.
//
// A Job is validated by BuildArgs and becomes immutable once a Session is
// started from it. Restarting a mirror means starting a new Session with a
// fresh Job (or the same Job with Resume set, reusing the output directory).
//
// Example:
//
//	job := mirror.Job{
//	    URLs:      []string{"https://example.com"},
//	    OutputDir: "./mirrors/example",
//	    Options: mirror.Options{
//	        Depth:       3,
//	        Connections: 8,
//	    },
//	}
type Job struct {
	// ID identifies the run, used in log file names and the server API.
	// If empty, one is generated when a Session starts.
	ID string

	// URLs are the mirror targets. At least one is required, and each must
	// be an absolute http or https URL.
	URLs []string

	// OutputDir is where the external tool writes the mirrored site.
	// Required; it is created if missing and must be writable.
	OutputDir string

	// Options tune the external tool's behavior. The zero value omits all
	// tuning flags and accepts the tool's own defaults.
	Options Options

	// Resume continues a previous run in the same output directory
	// (the tool's --update mode) instead of starting fresh.
	Resume bool
}

// Options are the structured knobs translated into command-line flags.
//
// Zero values mean "do not pass the flag". Every field maps to exactly one
// flag, so the same Options always produce the same tokens.
type Options struct {
	// Depth is the maximum recursion depth (-rN). 0 omits the flag.
	Depth int

	// RateLimit caps transfer speed in bytes per second (--rate=N).
	RateLimit int

	// Connections is the number of simultaneous connections (-cN).
	Connections int

	// MaxFiles limits the total number of files fetched (--max-files=N).
	MaxFiles int

	// MaxSizeMB limits the size of any single file, in megabytes
	// (--max-size=NM).
	MaxSizeMB int

	// Filters are include/exclude patterns passed through verbatim,
	// e.g. "+*.png" or "-*.zip". Each must start with '+' or '-'.
	Filters []string

	// ExtraArgs is a raw argument string appended last, after all
	// structured flags. It is split shell-style (quotes honored) and is
	// not interpreted further, but shell metacharacters are rejected.
	ExtraArgs string
}

// State is the lifecycle state of a supervised process.
//
// Transitions: NotStarted → Running → (Paused ⇄ Running) → one of
// Stopped, Completed, Failed. The three final states are terminal.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StatePaused
	StateStopped
	StateCompleted
	StateFailed
)

// String returns the lowercase state name used in logs and the API.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCompleted || s == StateFailed
}

// Snapshot is the latest derived view of mirroring progress.
//
// Snapshots are values: every publication is a copy, so readers never
// observe a half-updated struct. Percent is monotonically non-decreasing
// within one run; a parsed value lower than the current one is ignored.
type Snapshot struct {
	// Percent is overall completion in [0,100] as last reported by the
	// tool. Informational only: terminal state comes from the exit code.
	Percent int `json:"percent"`

	// FilesDone is the number of files downloaded so far.
	FilesDone int `json:"filesDone"`

	// FilesTotal is the total file count if the tool has announced one,
	// 0 while still unknown.
	FilesTotal int `json:"filesTotal,omitempty"`

	// Bytes is the absolute transferred byte count as reported, not an
	// accumulated delta.
	Bytes int64 `json:"bytes"`

	// CurrentURL is the URL most recently announced as being fetched.
	CurrentURL string `json:"currentUrl,omitempty"`

	// Elapsed is wall-clock time since the process was spawned.
	Elapsed time.Duration `json:"elapsed"`
}

// ElapsedString formats Elapsed as hh:mm:ss for display.
func (s Snapshot) ElapsedString() string {
	d := s.Elapsed.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, m, d/time.Second)
}

// Level classifies a log line.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// LogEntry is one line of output (or one internal event) with its
// classification. Entries form an append-only sequence in arrival order;
// the core never reorders or deduplicates them.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Exit is the final outcome of a supervised process, delivered exactly
// once on the supervisor's Done channel.
type Exit struct {
	// Code is the process exit code. -1 when the process was killed by a
	// signal or never ran to completion.
	Code int

	// State is the terminal state: Completed (code 0), Failed (non-zero),
	// or Stopped (terminated on request).
	State State

	// Err holds a monitoring failure (stream error), if any. A non-nil
	// Err does not change State: the exit code remains authoritative.
	Err error
}

// SnapshotFunc receives progress snapshots. Callbacks run on the session's
// worker goroutine and must not block for long.
type SnapshotFunc func(Snapshot)

// LogFunc receives log entries in arrival order.
type LogFunc func(LogEntry)
