// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config tunes how a Session runs a job. The zero value auto-detects the
// executable and uses default matchers and grace period.
type Config struct {
	// Executable is an explicit path to the external tool. When empty it
	// is resolved via LocateExecutable.
	Executable string

	// StopGrace is the graceful-termination window for Stop.
	// Zero uses DefaultStopGrace.
	StopGrace time.Duration

	// Matchers override the progress patterns. Nil uses DefaultMatchers.
	Matchers []Matcher
}

// Session is one monitored run of the external tool: it owns the
// supervisor, pumps the output stream through the progress extractor on
// a worker goroutine, and publishes snapshots and log entries for a UI
// to consume at its own cadence.
//
// Exactly one worker mutates progress state; readers get copies. The log
// channel is bounded and lossless (a slow consumer backpressures the
// pump, which backpressures the pipe). Snapshots coalesce instead:
// only the most recent one matters, so stale ones are replaced rather
// than queued without bound.
type Session struct {
	job Job
	cfg Config
	sup *Supervisor

	snapshots chan Snapshot
	logs      chan LogEntry

	snapMu sync.Mutex
	snap   Snapshot

	g      *errgroup.Group
	cancel context.CancelFunc
}

// Start validates the job, locates the executable, spawns the process
// and begins monitoring. Validation failures (ErrInvalidSettings) and
// launch failures (*SpawnError) are returned before anything observable
// happens; a returned Session always has a running process behind it.
//
// At most one session should be active per job; restarting after a
// failure is always an explicit new Start call.
func Start(ctx context.Context, job Job, cfg Config) (*Session, error) {
	args, err := BuildArgs(job)
	if err != nil {
		return nil, err
	}

	exe, err := LocateExecutable(cfg.Executable)
	if err != nil {
		return nil, err
	}

	if job.ID == "" {
		job.ID = fmt.Sprintf("job_%d", time.Now().Unix())
	}

	ctx, cancel := context.WithCancel(ctx)
	sup, err := StartSupervisor(ctx, exe, args, job.OutputDir)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Session{
		job:       job,
		cfg:       cfg,
		sup:       sup,
		snapshots: make(chan Snapshot, 64),
		logs:      make(chan LogEntry, 1024),
		cancel:    cancel,
	}

	s.g, _ = errgroup.WithContext(ctx)
	s.g.Go(func() error {
		return s.pump(ctx, exe, args)
	})

	return s, nil
}

// Job returns the immutable job this session runs.
func (s *Session) Job() Job { return s.job }

// ID returns the job ID (generated at Start when the job had none).
func (s *Session) ID() string { return s.job.ID }

// State returns the process lifecycle state.
func (s *Session) State() State { return s.sup.State() }

// Snapshot returns a copy of the current progress, with Elapsed brought
// up to date. Safe to call from any goroutine at any polling interval.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.Lock()
	snap := s.snap
	s.snapMu.Unlock()
	snap.Elapsed = time.Since(s.sup.Started())
	return snap
}

// Snapshots delivers progress updates as they are derived. Stale
// snapshots are coalesced; the channel closes when monitoring ends.
func (s *Session) Snapshots() <-chan Snapshot { return s.snapshots }

// Logs delivers log entries in arrival order, losslessly. The channel
// closes when monitoring ends.
func (s *Session) Logs() <-chan LogEntry { return s.logs }

// Done mirrors the supervisor's exactly-once exit notification.
func (s *Session) Done() <-chan Exit { return s.sup.Done() }

// Pause suspends the external process. ErrUnsupportedOperation on
// platforms without a suspend primitive.
func (s *Session) Pause() error { return s.sup.Pause() }

// Resume continues a paused process.
func (s *Session) Resume() error { return s.sup.Resume() }

// Stop terminates the process, escalating after the configured grace
// period. See Supervisor.Stop.
func (s *Session) Stop() error {
	return s.sup.Stop(s.cfg.StopGrace)
}

// Wait blocks until the process has exited and monitoring has drained,
// then returns the Exit.
func (s *Session) Wait() Exit {
	exit := s.sup.Wait()
	_ = s.g.Wait()
	s.cancel()
	return exit
}

func (s *Session) pump(ctx context.Context, exe string, args []string) error {
	defer close(s.snapshots)
	defer close(s.logs)

	ex := NewExtractor(s.cfg.Matchers...)
	reader := NewLineReader(ctx, s.sup.Output())

	s.emitLog(ctx, LevelInfo, fmt.Sprintf("running command: %s", QuoteCommand(exe, args)))

	for line := range reader.Lines() {
		snap, matched := ex.Consume(line)

		level := ClassifyLine(line)
		if !matched && level == LevelInfo {
			// Unrecognized output is opaque text, not progress.
			level = LevelDebug
		}
		s.emitLog(ctx, level, line)

		if matched {
			snap.Elapsed = time.Since(s.sup.Started())
			s.publish(snap)
		}
	}

	if err := reader.Err(); err != nil {
		s.sup.recordStreamError(err)
		s.emitLog(ctx, LevelError, err.Error())
	}

	exit := s.sup.Wait()
	switch exit.State {
	case StateCompleted:
		s.emitLog(ctx, LevelInfo, "finished successfully")
	case StateStopped:
		s.emitLog(ctx, LevelInfo, "stopped")
	default:
		s.emitLog(ctx, LevelError, fmt.Sprintf("exited with code %d", exit.Code))
	}
	return reader.Err()
}

func (s *Session) publish(snap Snapshot) {
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()

	// Latest-wins: drop one stale snapshot if the consumer is behind.
	select {
	case s.snapshots <- snap:
	default:
		select {
		case <-s.snapshots:
		default:
		}
		select {
		case s.snapshots <- snap:
		default:
		}
	}
}

func (s *Session) emitLog(ctx context.Context, level Level, msg string) {
	entry := LogEntry{Time: time.Now(), Level: level, Message: msg}
	select {
	case s.logs <- entry:
	case <-ctx.Done():
	}
}
