// Package scan tracks full-profile contradiction scans so that at most one
// runs per profile. State lives in memory and is lost on restart.
package scan

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/agenthands/lorekeeper/internal/core/model"
)

const DefaultTimeout = 10 * time.Minute

type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrScanRunning     = eris.New("scan: already running for profile")
	ErrScanUnaccepted  = eris.New("scan: completed result not yet accepted")
	ErrNoCompletedScan = eris.New("scan: no completed scan to accept")
	ErrNotRunning      = eris.New("scan: no running scan with that id for profile")
)

// Job is a snapshot of one profile's scan.
type Job struct {
	ID          string            `json:"id,omitempty"`
	ProfileID   string            `json:"profile_id"`
	Status      Status            `json:"status"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Result      *model.ScanReport `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Tracker is safe for concurrent use. Construct one per process and inject
// it where scans are started or inspected.
type Tracker struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		jobs:    make(map[string]*Job),
		timeout: timeout,
		now:     time.Now,
		logger:  zap.L(),
	}
}

func (t *Tracker) Timeout() time.Duration {
	return t.timeout
}

// Start moves a profile from idle or failed to running. A running scan
// (that has not timed out) returns ErrScanRunning; a completed scan that was
// never accepted returns ErrScanUnaccepted. The current job is returned in
// every case. The returned job's ID must be passed back to Complete or Fail.
func (t *Tracker) Start(profileID string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.load(profileID)
	switch job.Status {
	case StatusRunning:
		return *job, ErrScanRunning
	case StatusCompleted:
		return *job, ErrScanUnaccepted
	}

	started := t.now()
	*job = Job{ID: uuid.NewString(), ProfileID: profileID, Status: StatusRunning, StartedAt: &started}
	return *job, nil
}

// Complete records a successful result for the running scan jobID.
func (t *Tracker) Complete(profileID, jobID string, report model.ScanReport) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.running(profileID, jobID)
	if err != nil {
		return *job, err
	}
	done := t.now()
	job.Status = StatusCompleted
	job.CompletedAt = &done
	job.Result = &report
	return *job, nil
}

// Fail marks the running scan jobID as failed.
func (t *Tracker) Fail(profileID, jobID string, cause error) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, err := t.running(profileID, jobID)
	if err != nil {
		return *job, err
	}
	done := t.now()
	job.Status = StatusFailed
	job.CompletedAt = &done
	if cause != nil {
		job.Error = cause.Error()
	}
	return *job, nil
}

// Status returns the current job for a profile, idle if none was ever
// started.
func (t *Tracker) Status(profileID string) Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return *t.load(profileID)
}

// Accept clears a completed scan so a new one may start, returning the
// accepted job with its result.
func (t *Tracker) Accept(profileID string) (Job, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job := t.load(profileID)
	if job.Status != StatusCompleted {
		return *job, ErrNoCompletedScan
	}
	accepted := *job
	*job = Job{ProfileID: profileID, Status: StatusIdle}
	return accepted, nil
}

// running returns the profile's job if it is still the running scan jobID.
// A scan that outlived its timeout has already been failed, and may since
// have been replaced by a newer one.
func (t *Tracker) running(profileID, jobID string) (*Job, error) {
	job := t.load(profileID)
	if job.Status != StatusRunning || job.ID != jobID {
		return job, ErrNotRunning
	}
	return job, nil
}

// load returns the job for profileID, creating it lazily and failing it if
// it has been running longer than the timeout. Callers hold t.mu.
func (t *Tracker) load(profileID string) *Job {
	job, ok := t.jobs[profileID]
	if !ok {
		job = &Job{ProfileID: profileID, Status: StatusIdle}
		t.jobs[profileID] = job
	}
	if job.Status == StatusRunning && job.StartedAt != nil && t.now().Sub(*job.StartedAt) > t.timeout {
		failed := t.now()
		job.Status = StatusFailed
		job.CompletedAt = &failed
		job.Error = "scan timed out"
		t.logger.Warn("scan timed out",
			zap.String("profile_id", profileID),
			zap.Duration("timeout", t.timeout))
	}
	return job
}
