// Tracks run-wide scheduling statistics such as queued, admitted and completed
// job counts, duplicate rejections and queue waits.

package sim

import (
	"fmt"
	"io"
)

// Metrics aggregates statistics about the simulation
// for final reporting.
type Metrics struct {
	Steps              int64 // Number of steps executed
	Providers          int   // Number of providers stepped
	JobsQueued         int   // Requests accepted onto a queue
	DuplicatesRejected int   // Requests turned away as duplicates
	JobsAdmitted       int   // Jobs promoted to active
	JobsCompleted      int   // Jobs completed
	JobsActive         int   // Jobs still active at the end
	JobsWaiting        int   // Jobs still queued at the end
	TotalWaitSteps     int64 // Sum of queue waits over admitted jobs
	PeakQueueLength    int   // Largest single-service queue depth seen

	CompletedByService map[string]int // service name -> completed jobs
}

// NewMetrics returns empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{CompletedByService: make(map[string]int)}
}

// CollectMetrics sums the counters of every provider and service.
func CollectMetrics(providers []*Provider, steps int64) *Metrics {
	m := NewMetrics()
	m.Steps = steps
	m.Providers = len(providers)
	for _, p := range providers {
		m.JobsAdmitted += p.Admitted()
		m.JobsCompleted += p.CompletedCount()
		m.JobsActive += p.ActiveCount()
		m.JobsWaiting += p.QueuedCount()
		m.TotalWaitSteps += p.TotalWaitSteps()
		if p.PeakQueueLength() > m.PeakQueueLength {
			m.PeakQueueLength = p.PeakQueueLength()
		}
		for _, s := range p.Services() {
			m.JobsQueued += s.Queued()
			m.DuplicatesRejected += s.Rejected()
		}
		for step := range p.completed {
			for _, j := range p.completed[step] {
				m.CompletedByService[j.Service.name]++
			}
		}
	}
	return m
}

// MeanWait returns the mean queue wait in steps over admitted jobs.
func (m *Metrics) MeanWait() float64 {
	if m.JobsAdmitted == 0 {
		return 0
	}
	return float64(m.TotalWaitSteps) / float64(m.JobsAdmitted)
}

// Print writes the aggregated metrics at the end of the simulation.
func (m *Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Steps                : %d\n", m.Steps)
	fmt.Fprintf(w, "Providers            : %d\n", m.Providers)
	fmt.Fprintf(w, "Jobs Queued          : %d\n", m.JobsQueued)
	fmt.Fprintf(w, "Duplicates Rejected  : %d\n", m.DuplicatesRejected)
	fmt.Fprintf(w, "Jobs Admitted        : %d\n", m.JobsAdmitted)
	fmt.Fprintf(w, "Jobs Completed       : %d\n", m.JobsCompleted)
	fmt.Fprintf(w, "Jobs Active at End   : %d\n", m.JobsActive)
	fmt.Fprintf(w, "Jobs Waiting at End  : %d\n", m.JobsWaiting)
	if m.JobsAdmitted > 0 {
		fmt.Fprintf(w, "Average Wait         : %.2f steps\n", m.MeanWait())
	}
	fmt.Fprintf(w, "Peak Queue Length    : %d\n", m.PeakQueueLength)
}
