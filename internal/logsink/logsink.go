// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package logsink receives the ordered log entries produced while a
// mirror job runs and fans them out to display and file destinations.
// Sinks never reorder or deduplicate entries; export-to-file lives here,
// not in the core.
package logsink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// Sink consumes log entries in arrival order. Implementations must be
// safe for use from a single producer goroutine.
type Sink interface {
	Append(mirror.LogEntry)
	Close() error
}

// Multi fans entries out to several sinks in order.
type Multi []Sink

func (m Multi) Append(e mirror.LogEntry) {
	for _, s := range m {
		s.Append(e)
	}
}

func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var levelColors = map[mirror.Level]*color.Color{
	mirror.LevelDebug: color.New(color.FgHiBlack),
	mirror.LevelInfo:  color.New(color.FgCyan),
	mirror.LevelWarn:  color.New(color.FgYellow),
	mirror.LevelError: color.New(color.FgRed, color.Bold),
}

// Console writes entries to a terminal with the level tag colored.
// Honors NO_COLOR via the color package's global detection.
type Console struct {
	W        io.Writer
	MinLevel mirror.Level
}

// NewConsole returns a console sink on w showing entries at or above
// min severity (DEBUG shows everything).
func NewConsole(w io.Writer, min mirror.Level) *Console {
	return &Console{W: w, MinLevel: min}
}

var severity = map[mirror.Level]int{
	mirror.LevelDebug: 0,
	mirror.LevelInfo:  1,
	mirror.LevelWarn:  2,
	mirror.LevelError: 3,
}

func (c *Console) Append(e mirror.LogEntry) {
	if severity[e.Level] < severity[c.MinLevel] {
		return
	}
	tag := fmt.Sprintf("[%s]", e.Level)
	if cc, ok := levelColors[e.Level]; ok {
		tag = cc.Sprint(tag)
	}
	fmt.Fprintf(c.W, "%s %s %s\n", e.Time.Format("15:04:05"), tag, e.Message)
}

func (c *Console) Close() error { return nil }

// File appends entries to a per-run log file. Each run starts with a
// header line so successive runs in the same file stay distinguishable.
type File struct {
	mu sync.Mutex
	f  *os.File
}

// NewFile opens (appending) the run log at path, creating parent
// directories, and writes the run header with the echoed command line.
func NewFile(path, command string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "===== sitecloner run @ %s =====\n", time.Now().Format("2006-01-02 15:04:05"))
	if command != "" {
		fmt.Fprintf(f, "CMD: %s\n\n", command)
	}
	return &File{f: f}, nil
}

func (s *File) Append(e mirror.LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.f, "[%s] %s\n", e.Level, e.Message)
}

func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// RunLogPath returns the conventional per-job log file location inside
// the job's output directory.
func RunLogPath(outputDir, jobID string) string {
	return filepath.Join(outputDir, fmt.Sprintf("sitecloner_%s.log", jobID))
}

// Export copies everything a memory sink has collected to path. Used by
// front-ends offering "save log as".
func Export(path string, entries []mirror.LogEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fmt.Fprintf(f, "Exported: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	for _, e := range entries {
		fmt.Fprintf(f, "%s [%s] %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
	}
	return nil
}

// Memory retains entries in arrival order for later export or API reads.
// Bounded: once Cap entries are held the oldest are discarded.
type Memory struct {
	mu      sync.Mutex
	entries []mirror.LogEntry
	Cap     int
}

// NewMemory returns a memory sink keeping at most capacity entries
// (0 means unbounded).
func NewMemory(capacity int) *Memory {
	return &Memory{Cap: capacity}
}

func (m *Memory) Append(e mirror.LogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if m.Cap > 0 && len(m.entries) > m.Cap {
		m.entries = m.entries[len(m.entries)-m.Cap:]
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (m *Memory) Entries() []mirror.LogEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mirror.LogEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m *Memory) Close() error { return nil }
