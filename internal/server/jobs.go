// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/Jessiebrownleo/site-cloner/internal/logsink"
	"github.com/Jessiebrownleo/site-cloner/pkg/mirror"
)

// JobStatus represents the state of a mirror job as the API reports it.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusStopped   JobStatus = "stopped"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ErrJobActive is returned when a new job is requested while another is
// still running. One external process at a time.
var ErrJobActive = errors.New("another mirror job is already active")

// Job is a mirror run tracked by the manager.
type Job struct {
	ID        string          `json:"id"`
	URLs      []string        `json:"urls"`
	OutputDir string          `json:"outputDir"`
	Options   mirror.Options  `json:"options"`
	Resume    bool            `json:"resume,omitempty"`
	Status    JobStatus       `json:"status"`
	Progress  mirror.Snapshot `json:"progress"`
	ExitCode  *int            `json:"exitCode,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	EndedAt   *time.Time      `json:"endedAt,omitempty"`

	session *mirror.Session
	logs    *logsink.Memory
	cancel  context.CancelFunc
}

// JobManager owns all mirror jobs. It enforces the single-active-job
// invariant: at most one external process is running (or paused) at any
// moment; new requests are rejected until the active one ends.
type JobManager struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	active     string // ID of the running/paused job, "" when idle
	config     Config
	listeners  []chan *Job
	listenerMu sync.RWMutex
	wsHub      *WSHub
}

// NewJobManager creates a new job manager.
func NewJobManager(cfg Config, wsHub *WSHub) *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		config: cfg,
		wsHub:  wsHub,
	}
}

// generateID creates a short random ID.
func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateJob validates the request, spawns the external process, and
// starts monitoring it. Fails with ErrJobActive while another job runs;
// validation and spawn failures are returned before any job is recorded.
func (m *JobManager) CreateJob(req MirrorRequest) (*Job, error) {
	id := generateID()

	// Output location is server-controlled for security: each job gets
	// its own directory under the configured root.
	outputDir := filepath.Join(m.config.OutputDir, id)

	opts := mirror.Options{
		Depth:       req.Depth,
		RateLimit:   req.RateLimit,
		Connections: req.Connections,
		MaxFiles:    req.MaxFiles,
		MaxSizeMB:   req.MaxSizeMB,
		Filters:     req.Filters,
		ExtraArgs:   req.ExtraArgs,
	}
	if req.Preset != "" {
		p, ok := mirror.PresetByName(req.Preset)
		if !ok {
			return nil, &mirror.InvalidSettingsError{Field: "preset", Reason: "unknown preset " + req.Preset}
		}
		if opts.ExtraArgs == "" {
			opts.ExtraArgs = p.Args
		} else {
			opts.ExtraArgs = p.Args + " " + opts.ExtraArgs
		}
	}

	mJob := mirror.Job{
		ID:        id,
		URLs:      req.URLs,
		OutputDir: outputDir,
		Options:   opts,
		Resume:    req.Resume,
	}

	m.mu.Lock()
	if m.active != "" {
		m.mu.Unlock()
		return nil, ErrJobActive
	}
	// Reserve the slot before the spawn so a concurrent request cannot
	// race a second process into existence.
	m.active = id
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sess, err := mirror.Start(ctx, mJob, mirror.Config{
		Executable: m.config.Executable,
		StopGrace:  m.config.StopGrace,
	})
	if err != nil {
		cancel()
		m.mu.Lock()
		m.active = ""
		m.mu.Unlock()
		return nil, err
	}

	job := &Job{
		ID:        id,
		URLs:      req.URLs,
		OutputDir: outputDir,
		Options:   opts,
		Resume:    req.Resume,
		Status:    JobStatusRunning,
		CreatedAt: time.Now(),
		session:   sess,
		logs:      logsink.NewMemory(m.config.LogBacklog),
		cancel:    cancel,
	}

	m.mu.Lock()
	m.jobs[id] = job
	m.mu.Unlock()

	go m.monitorJob(job)
	m.notifyListeners(job)

	return job, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// ListJobs returns a consistent copy of every job. Live records keep
// changing while their process runs, so callers that serialize get
// values, not the shared pointers.
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// JobView returns a copy of the job taken under the manager's lock,
// safe to serialize while monitoring keeps mutating the original.
func (m *JobManager) JobView(job *Job) Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *job
}

// ActiveJob returns the currently running or paused job, if any.
func (m *JobManager) ActiveJob() (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == "" {
		return nil, false
	}
	job, ok := m.jobs[m.active]
	return job, ok
}

// JobLogs returns the retained log entries for a job, oldest first.
func (m *JobManager) JobLogs(id string) ([]mirror.LogEntry, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return job.logs.Entries(), true
}

// StopJob gracefully stops a running or paused job.
func (m *JobManager) StopJob(id string) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return errors.New("job not found")
	}
	return job.session.Stop()
}

// PauseJob suspends a running job's process. Surfaces
// mirror.ErrUnsupportedOperation on platforms without suspend.
func (m *JobManager) PauseJob(id string) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return errors.New("job not found")
	}
	if err := job.session.Pause(); err != nil {
		return err
	}
	m.setStatus(job, JobStatusPaused)
	return nil
}

// ResumeJob continues a paused job's process.
func (m *JobManager) ResumeJob(id string) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return errors.New("job not found")
	}
	if err := job.session.Resume(); err != nil {
		return err
	}
	m.setStatus(job, JobStatusRunning)
	return nil
}

// DeleteJob removes a job from the list, stopping it first if active.
func (m *JobManager) DeleteJob(id string) bool {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return false
	}
	isActive := m.active == id
	m.mu.Unlock()

	if isActive {
		job.session.Stop()
		job.cancel()
	}

	m.mu.Lock()
	delete(m.jobs, id)
	if m.active == id {
		m.active = ""
	}
	m.mu.Unlock()
	return true
}

// Shutdown stops the active job, if any, so no external process
// survives the server's own teardown.
func (m *JobManager) Shutdown() {
	job, ok := m.ActiveJob()
	if !ok {
		return
	}
	job.session.Stop()
	job.cancel()
}

// Subscribe adds a listener for job updates.
func (m *JobManager) Subscribe() chan *Job {
	ch := make(chan *Job, 100)
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, ch)
	m.listenerMu.Unlock()
	return ch
}

// Unsubscribe removes a listener.
func (m *JobManager) Unsubscribe(ch chan *Job) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *JobManager) setStatus(job *Job, st JobStatus) {
	m.mu.Lock()
	job.Status = st
	m.mu.Unlock()
	m.notifyListeners(job)
}

func (m *JobManager) notifyListeners(job *Job) {
	// Broadcast a locked copy: marshaling happens off this goroutine
	// while monitoring keeps writing to the live record.
	view := m.JobView(job)

	m.listenerMu.RLock()
	for _, ch := range m.listeners {
		select {
		case ch <- &view:
		default:
			// Listener is slow, skip
		}
	}
	m.listenerMu.RUnlock()

	if m.wsHub != nil {
		m.wsHub.BroadcastJob(&view)
	}
}

// monitorJob drains the session's snapshot and log streams into the
// job record and broadcasts updates until the process exits.
func (m *JobManager) monitorJob(job *Job) {
	snapshots := job.session.Snapshots()
	logs := job.session.Logs()

	for snapshots != nil || logs != nil {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			m.mu.Lock()
			job.Progress = snap
			m.mu.Unlock()
			m.notifyListeners(job)

		case entry, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			job.logs.Append(entry)
			if m.wsHub != nil {
				m.wsHub.BroadcastLog(job.ID, entry)
			}
		}
	}

	exit := job.session.Wait()

	m.mu.Lock()
	now := time.Now()
	job.EndedAt = &now
	job.ExitCode = &exit.Code
	job.Progress = job.session.Snapshot()
	switch exit.State {
	case mirror.StateCompleted:
		job.Status = JobStatusCompleted
	case mirror.StateStopped:
		job.Status = JobStatusStopped
	default:
		job.Status = JobStatusFailed
		if exit.Err != nil {
			job.Error = exit.Err.Error()
		}
	}
	if m.active == job.ID {
		m.active = ""
	}
	m.mu.Unlock()

	job.cancel()
	m.notifyListeners(job)
}
