package execution

import (
	"context"
	"sync"
	"time"

	"github.com/viant/fleurflow/internal/clock"
	"github.com/viant/fleurflow/internal/idgen"
)

// Job represents a single calculation request executed by the scheduler
type Job struct {
	ID            string      `json:"id"`
	NodeID        string      `json:"nodeId"`
	ParentID      string      `json:"parentId,omitempty"`
	Service       string      `json:"service"`
	Method        string      `json:"method"`
	Label         string      `json:"label,omitempty"`
	State         JobState    `json:"state"`
	Input         interface{} `json:"input,omitempty"`
	Output        interface{} `json:"output,omitempty"`
	Error         string      `json:"error,omitempty"`
	Attempts      int         `json:"attempts,omitempty"`
	KillRequested bool        `json:"killRequested,omitempty"`
	ScheduledAt   time.Time   `json:"scheduledAt"`
	StartedAt     *time.Time  `json:"startedAt,omitempty"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
	RunAfter      *time.Time  `json:"runAfter,omitempty"`
	mux           sync.RWMutex
}

// NewJob creates a pending job for service method
func NewJob(parentID, service, method string, input interface{}) *Job {
	return &Job{
		ID:          idgen.New(),
		NodeID:      idgen.New(),
		ParentID:    parentID,
		Service:     service,
		Method:      method,
		State:       JobStatePending,
		Input:       input,
		ScheduledAt: clock.Now(),
	}
}

// Start marks the job as running
func (j *Job) Start() {
	j.mux.Lock()
	defer j.mux.Unlock()
	j.StartedAt = clock.Ptr()
	j.Attempts++
	j.State = JobStateRunning
}

// Complete marks the job as completed
func (j *Job) Complete(output interface{}) {
	j.mux.Lock()
	defer j.mux.Unlock()
	j.CompletedAt = clock.Ptr()
	j.Output = output
	j.State = JobStateCompleted
}

// Fail marks the job as failed
func (j *Job) Fail(err error) {
	j.mux.Lock()
	defer j.mux.Unlock()
	j.CompletedAt = clock.Ptr()
	if err != nil {
		j.Error = err.Error()
	}
	j.State = JobStateFailed
}

// Kill marks the job as killed
func (j *Job) Kill() {
	j.mux.Lock()
	defer j.mux.Unlock()
	j.CompletedAt = clock.Ptr()
	j.State = JobStateKilled
}

// Retry schedules the job for another attempt after delay
func (j *Job) Retry(err error, delay time.Duration) {
	j.mux.Lock()
	defer j.mux.Unlock()
	runAfter := clock.Now().Add(delay)
	j.RunAfter = &runAfter
	if err != nil {
		j.Error = err.Error()
	}
	j.State = JobStatePending
}

// RequestKill flags the job so that a pending attempt is not started
func (j *Job) RequestKill() {
	j.mux.Lock()
	defer j.mux.Unlock()
	j.KillRequested = true
}

// Snapshot returns state and kill flag
func (j *Job) Snapshot() (JobState, bool) {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return j.State, j.KillRequested
}

// Elapsed returns execution time of the last attempt
func (j *Job) Elapsed() time.Duration {
	j.mux.RLock()
	defer j.mux.RUnlock()
	if j.StartedAt == nil {
		return 0
	}
	if j.CompletedAt == nil {
		return clock.Since(*j.StartedAt)
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}

// Clone returns a copy safe to mutate; input and output are shared
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	j.mux.RLock()
	defer j.mux.RUnlock()
	clone := Job{
		ID:            j.ID,
		NodeID:        j.NodeID,
		ParentID:      j.ParentID,
		Service:       j.Service,
		Method:        j.Method,
		Label:         j.Label,
		State:         j.State,
		Input:         j.Input,
		Output:        j.Output,
		Error:         j.Error,
		Attempts:      j.Attempts,
		KillRequested: j.KillRequested,
		ScheduledAt:   j.ScheduledAt,
		StartedAt:     copyTime(j.StartedAt),
		CompletedAt:   copyTime(j.CompletedAt),
		RunAfter:      copyTime(j.RunAfter),
	}
	return &clone
}

// Wait blocks until the job reaches a terminal state, ctx is done or timeout elapses
type Wait func(ctx context.Context, timeout time.Duration) (*Job, error)

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	ret := *t
	return &ret
}

// Attributes returns values matched by DAO list parameters
func (j *Job) Attributes() map[string]string {
	j.mux.RLock()
	defer j.mux.RUnlock()
	return map[string]string{
		"State":    string(j.State),
		"ParentID": j.ParentID,
		"Type":     j.Service,
	}
}
