// Implements the JobQueue, which holds the jobs waiting for admission on a service.
// Jobs are enqueued when a requester asks for work

package sim

import (
	"fmt"
	"strings"
)

// JobQueue represents a FIFO queue of jobs waiting to be admitted by a provider.
// An index keyed by requester identity sits alongside the slice so that the
// one-pending-job-per-requester check does not scan the queue.
type JobQueue struct {
	queue   []*Job          // FIFO queue of jobs
	pending map[string]bool // requester IDs with a job in queue
}

// NewJobQueue returns an empty queue.
func NewJobQueue() *JobQueue {
	return &JobQueue{pending: make(map[string]bool)}
}

// Enqueue adds a job to the back of the queue.
// Returns false, leaving the queue untouched, if the job's requester already
// has a job pending here.
func (q *JobQueue) Enqueue(j *Job) bool {
	if j == nil {
		panic("Enqueue: job must not be nil")
	}
	id := j.requesterID()
	if q.pending[id] {
		return false
	}
	q.queue = append(q.queue, j)
	q.pending[id] = true
	return true
}

// HasPending reports whether the requester has a job waiting in this queue.
func (q *JobQueue) HasPending(requesterID string) bool {
	return q.pending[requesterID]
}

func (q *JobQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, val := range q.queue {
		sb.WriteString(val.ID)
		if i < len(q.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// Len returns the number of jobs in the queue.
func (q *JobQueue) Len() int {
	return len(q.queue)
}

// Peek returns the job at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (q *JobQueue) Peek() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage: callers MUST NOT
// append to it, reslice it or reorder it.
func (q *JobQueue) Items() []*Job {
	return q.queue
}

// TotalDuration sums the durations of all queued jobs.
func (q *JobQueue) TotalDuration() int64 {
	var total int64
	for _, j := range q.queue {
		total += j.Duration
	}
	return total
}

// Dequeue removes the job at the front of the queue.
// Returns nil if the queue is empty.
func (q *JobQueue) Dequeue() *Job {
	if len(q.queue) == 0 {
		return nil
	}
	j := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	delete(q.pending, j.requesterID())
	return j
}

// checkIndex verifies the requester index matches the slice contents.
func (q *JobQueue) checkIndex() error {
	if len(q.pending) != len(q.queue) {
		return fmt.Errorf("queue index holds %d requesters for %d jobs", len(q.pending), len(q.queue))
	}
	for _, j := range q.queue {
		if !q.pending[j.requesterID()] {
			return fmt.Errorf("job %s missing from queue index", j.ID)
		}
	}
	return nil
}
