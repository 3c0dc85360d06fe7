// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package mirror

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

// DefaultStopGrace is the wait after a graceful termination request
// before escalating to a forced kill.
const DefaultStopGrace = 5 * time.Second

// killEscalationWindow is the extra wait after the forced kill before
// Stop gives up and reports ErrTerminationTimeout.
const killEscalationWindow = 2 * time.Second

// Supervisor owns one external process exclusively: it is the only
// component that transitions the process's lifecycle state. The child is
// placed in its own process group so that teardown reaches the whole
// tree and no orphan survives the supervisor's shutdown.
type Supervisor struct {
	mu      sync.Mutex
	state   State
	cmd     *exec.Cmd
	output  io.ReadCloser
	started time.Time

	stopRequested bool
	streamErr     error

	done     chan Exit
	exitOnce sync.Once
	exit     Exit
	exited   chan struct{}
}

// StartSupervisor launches execPath with args in workDir and returns a
// running Supervisor. stdout and stderr are combined into one stream,
// available via Output. A launch failure returns a *SpawnError and no
// supervisor.
//
// Cancelling ctx force-kills the process group; use Stop for the
// graceful path.
func StartSupervisor(ctx context.Context, execPath string, args []string, workDir string) (*Supervisor, error) {
	cmd := exec.Command(execPath, args...)
	cmd.Dir = workDir
	setProcessGroup(cmd)

	// One pipe for both streams keeps output in the order the tool
	// interleaves it, matching what a terminal would show.
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Path: execPath, Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &SpawnError{Path: execPath, Err: err}
	}
	// The parent's write end must close or the read end never sees EOF.
	pw.Close()

	s := &Supervisor{
		state:   StateRunning,
		cmd:     cmd,
		output:  pr,
		started: time.Now(),
		done:    make(chan Exit, 1),
		exited:  make(chan struct{}),
	}

	go s.waitLoop()
	go func() {
		select {
		case <-ctx.Done():
			killGroup(s.cmd)
		case <-s.exited:
		}
	}()

	return s, nil
}

// Output is the combined stdout+stderr stream of the child. It reaches
// EOF when the process exits and all output has been drained.
func (s *Supervisor) Output() io.Reader {
	return s.output
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Started returns when the process was spawned.
func (s *Supervisor) Started() time.Time {
	return s.started
}

// Done delivers the process's Exit exactly once, then closes.
func (s *Supervisor) Done() <-chan Exit {
	return s.done
}

// Wait blocks until the process has exited and returns its Exit. Safe to
// call from any number of goroutines; all see the same value.
func (s *Supervisor) Wait() Exit {
	<-s.exited
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exit
}

// Pause suspends the process with the platform's stop primitive. Returns
// ErrUnsupportedOperation where the platform has none, ErrNotRunning if
// the process is not currently running.
func (s *Supervisor) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return ErrNotRunning
	}
	if err := suspendGroup(s.cmd); err != nil {
		return err
	}
	s.state = StatePaused
	return nil
}

// Resume continues a paused process.
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return ErrNotRunning
	}
	if err := resumeGroup(s.cmd); err != nil {
		return err
	}
	s.state = StateRunning
	return nil
}

// Stop requests graceful termination and escalates to a forced kill
// after the grace period. When Stop returns nil the process is no longer
// running; ErrTerminationTimeout means it outlived even the forced kill
// and must be treated as unmanageable. grace <= 0 uses DefaultStopGrace.
func (s *Supervisor) Stop(grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	s.mu.Lock()
	switch s.state {
	case StateRunning:
	case StatePaused:
		// A stopped process keeps signals pending; wake it so the
		// termination request is actually delivered.
		if err := resumeGroup(s.cmd); err == nil {
			s.state = StateRunning
		}
	default:
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.stopRequested = true
	s.mu.Unlock()

	terminateGroup(s.cmd)

	select {
	case <-s.exited:
		return nil
	case <-time.After(grace):
	}

	killGroup(s.cmd)

	select {
	case <-s.exited:
		return nil
	case <-time.After(killEscalationWindow):
		return ErrTerminationTimeout
	}
}

// recordStreamError attaches a monitoring failure to the eventual Exit.
// The exit code is still awaited; State is not affected.
func (s *Supervisor) recordStreamError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamErr == nil {
		s.streamErr = err
	}
}

func (s *Supervisor) waitLoop() {
	err := s.cmd.Wait()

	code := 0
	if err != nil {
		code = -1
		if ee, ok := err.(*exec.ExitError); ok {
			code = ee.ExitCode()
		}
	}

	s.mu.Lock()
	switch {
	case s.stopRequested:
		s.state = StateStopped
	case code == 0:
		s.state = StateCompleted
	default:
		s.state = StateFailed
	}
	exit := Exit{Code: code, State: s.state, Err: s.streamErr}
	s.exit = exit
	s.mu.Unlock()

	s.exitOnce.Do(func() {
		s.done <- exit
		close(s.done)
		close(s.exited)
	})
}
