// Defines the Job struct that models one unit of work requested from a provider's service.
// Tracks the requester, owning service, logical duration and the steps at which
// the job was queued, started and completed.

package sim

import (
	"fmt"
)

// JobState represents the lifecycle state of a job.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
)

// Requester is anything that can ask a service for work.
// Only its identity is used by the scheduler: for duplicate detection and for records.
type Requester interface {
	RequesterID() string
}

// JobObserver is an optional capability of a Requester. Behaviors that change
// requester state on job start or completion notify it through this interface.
type JobObserver interface {
	JobStarted(job *Job, step int64)
	JobCompleted(job *Job, step int64)
}

// Job models a single unit of requested work.
type Job struct {
	ID        string    // "{provider}-{service}-{counter}", unique per service
	Requester Requester // not owned; identity and logging only
	Service   *Service  // owning service
	Duration  int64     // logical steps between admission and completion (>= 1)

	State          JobState
	QueuedAt       int64 // step at which the job entered the queue
	StartedAt      int64 // step at which the job was admitted (queued -> active)
	CompletionStep int64 // StartedAt + Duration; set on admission
}

// NewJob creates a queued job. Returns ErrInvalidDuration if duration < 1,
// so a job that could complete in the step it was admitted never enters a queue.
func NewJob(id string, requester Requester, service *Service, duration int64) (*Job, error) {
	if duration < 1 {
		return nil, fmt.Errorf("job %s: %w, got %d", id, ErrInvalidDuration, duration)
	}
	return &Job{
		ID:        id,
		Requester: requester,
		Service:   service,
		Duration:  duration,
		State:     StateQueued,
	}, nil
}

// WaitSteps returns how many steps the job spent queued before admission.
// Zero for jobs that are still queued.
func (j *Job) WaitSteps() int64 {
	if j.State == StateQueued {
		return 0
	}
	return j.StartedAt - j.QueuedAt
}

// requesterID tolerates nil requesters in log output.
func (j *Job) requesterID() string {
	if j.Requester == nil {
		return ""
	}
	return j.Requester.RequesterID()
}

// This method returns a human-readable string representation of a Job.
func (j Job) String() string {
	return fmt.Sprintf("Job: (ID: %s, Requester: %s, State: %s, Duration: %d)", j.ID, j.requesterID(), j.State, j.Duration)
}
