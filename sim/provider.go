package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/ahoi-sim/provider-sim/sim/record"
	"github.com/ahoi-sim/provider-sim/sim/trace"
)

// ErrStepOrder is returned when a provider is stepped out of order.
var ErrStepOrder = errors.New("steps must advance by exactly one")

// Provider is an intermediary offering one or more services under a shared
// concurrency cap. Each step it completes the jobs due at that step, admits
// queued jobs up to its remaining capacity and reports its queue depths.
//
// A provider's queues, active set and completion log are owned exclusively by
// the provider and mutated only inside its own Step. Not safe for concurrent use.
type Provider struct {
	id       string
	group    string
	capacity int

	services []*Service
	byName   map[string]*Service
	order    AdmissionOrder

	// active jobs bucketed by the step at which they complete
	active      map[int64][]*Job
	activeCount int
	// completed jobs bucketed by the step at which they completed
	completed      map[int64][]*Job
	completedCount int

	admitted  int
	totalWait int64
	peakQueue int

	lastStep int64
	stepped  bool

	sink  record.Sink
	rng   *rand.Rand
	trace *trace.SimulationTrace
}

// ProviderOption customizes a Provider at construction.
type ProviderOption func(*Provider)

// WithSink sets the sink that receives completed-job and queue-length rows.
// Defaults to record.Discard.
func WithSink(s record.Sink) ProviderOption {
	return func(p *Provider) { p.sink = s }
}

// WithAdmissionOrder sets the tie-break across competing services.
// Defaults to RoundRobin.
func WithAdmissionOrder(o AdmissionOrder) ProviderOption {
	return func(p *Provider) { p.order = o }
}

// WithRNG injects the provider's random source, used for follow-up work.
// Callers should derive it from the simulation's PartitionedRNG.
func WithRNG(rng *rand.Rand) ProviderOption {
	return func(p *Provider) { p.rng = rng }
}

// WithTrace enables decision tracing into st.
func WithTrace(st *trace.SimulationTrace) ProviderOption {
	return func(p *Provider) { p.trace = st }
}

// NewProvider creates a provider with no services.
// Returns ErrInvalidCapacity for a negative capacity.
func NewProvider(id, group string, capacity int, opts ...ProviderOption) (*Provider, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("provider %s: %w, got %d", id, ErrInvalidCapacity, capacity)
	}
	p := &Provider{
		id:        id,
		group:     group,
		capacity:  capacity,
		byName:    make(map[string]*Service),
		active:    make(map[int64][]*Job),
		completed: make(map[int64][]*Job),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.order == nil {
		p.order = &RoundRobin{}
	}
	if p.sink == nil {
		p.sink = record.Discard
	}
	if p.rng == nil {
		p.rng = NewPartitionedRNG(NewSimulationKey(0)).ForSubsystem(SubsystemProvider(id))
	}
	return p, nil
}

func (p *Provider) addService(s *Service) error {
	if _, exists := p.byName[s.name]; exists {
		return fmt.Errorf("provider %s: %w %q", p.id, ErrDuplicateService, s.name)
	}
	p.services = append(p.services, s)
	p.byName[s.name] = s
	return nil
}

// ID returns the provider's unique ID.
func (p *Provider) ID() string { return p.id }

// Group returns the provider group label, e.g. "Plumber".
func (p *Provider) Group() string { return p.group }

// Capacity returns the maximum number of concurrently active jobs.
func (p *Provider) Capacity() int { return p.capacity }

// ActiveCount returns the number of active jobs.
func (p *Provider) ActiveCount() int { return p.activeCount }

// CompletedCount returns the number of completed jobs.
func (p *Provider) CompletedCount() int { return p.completedCount }

// Admitted returns the number of jobs admitted so far.
func (p *Provider) Admitted() int { return p.admitted }

// TotalWaitSteps returns the summed queue wait of all admitted jobs.
func (p *Provider) TotalWaitSteps() int64 { return p.totalWait }

// PeakQueueLength returns the largest single-service queue depth seen at a monitoring pass.
func (p *Provider) PeakQueueLength() int { return p.peakQueue }

// Services returns the provider's services in declaration order.
func (p *Provider) Services() []*Service { return p.services }

// Service returns the named service.
func (p *Provider) Service(name string) (*Service, error) {
	s, ok := p.byName[name]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w %q", p.id, ErrUnknownService, name)
	}
	return s, nil
}

// CompletingAt returns the active jobs due to complete at step.
func (p *Provider) CompletingAt(step int64) []*Job { return p.active[step] }

// CompletedAt returns the jobs completed at step.
func (p *Provider) CompletedAt(step int64) []*Job { return p.completed[step] }

// ActiveJobs returns all active jobs ordered by completion step, then admission order.
func (p *Provider) ActiveJobs() []*Job {
	steps := make([]int64, 0, len(p.active))
	for s := range p.active {
		steps = append(steps, s)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i] < steps[j] })
	jobs := make([]*Job, 0, p.activeCount)
	for _, s := range steps {
		jobs = append(jobs, p.active[s]...)
	}
	return jobs
}

// QueuedCount returns the number of queued jobs across all services.
// A queue shared by several services is counted once.
func (p *Provider) QueuedCount() int {
	seen := make(map[*JobQueue]bool, len(p.services))
	n := 0
	for _, s := range p.services {
		if seen[s.queue] {
			continue
		}
		seen[s.queue] = true
		n += s.queue.Len()
	}
	return n
}

// Step runs the completion, admission and monitoring passes for step s.
// Steps must be consecutive: after step s the next call must be s+1.
// A step that returned an error counts as run and cannot be repeated.
func (p *Provider) Step(s int64) error {
	if p.stepped && s != p.lastStep+1 {
		return fmt.Errorf("provider %s: %w: last step %d, got %d", p.id, ErrStepOrder, p.lastStep, s)
	}
	p.lastStep, p.stepped = s, true

	if err := p.completeDue(s); err != nil {
		return err
	}
	p.admit(s)
	return p.saveQueueLengths(s)
}

// completeDue moves the jobs due at step s from active to completed.
// If a job fails to complete, it and the rest of the bucket stay active.
func (p *Provider) completeDue(s int64) error {
	due, ok := p.active[s]
	if !ok {
		return nil
	}
	delete(p.active, s)
	for i, job := range due {
		p.activeCount--
		job.State = StateCompleted
		if err := job.Service.CompleteJob(job, s); err != nil {
			job.State = StateActive
			p.activeCount++
			p.active[s] = due[i:]
			return fmt.Errorf("provider %s step %d: %w", p.id, s, err)
		}
		p.completed[s] = append(p.completed[s], job)
		p.completedCount++
	}
	return nil
}

// admit promotes queued jobs to active while capacity remains.
func (p *Provider) admit(s int64) {
	for p.activeCount < p.capacity {
		svc := p.order.Next(p.services)
		if svc == nil {
			return
		}
		job := svc.queue.Dequeue()
		job.State = StateActive
		job.StartedAt = s
		job.CompletionStep = s + job.Duration
		p.active[job.CompletionStep] = append(p.active[job.CompletionStep], job)
		p.activeCount++
		p.admitted++
		p.totalWait += job.WaitSteps()
		if p.trace != nil {
			p.trace.RecordAdmission(trace.AdmissionRecord{
				JobID:          job.ID,
				ProviderID:     p.id,
				Service:        job.Service.name,
				Step:           s,
				WaitSteps:      job.WaitSteps(),
				CompletionStep: job.CompletionStep,
				ActiveAfter:    p.activeCount,
				Capacity:       p.capacity,
			})
		}
		job.Service.behavior.BeginJob(job, s)
	}
}

func (p *Provider) traceRequest(r trace.RequestRecord) {
	if p.trace != nil {
		p.trace.RecordRequest(r)
	}
}

func (p *Provider) saveQueueLengths(s int64) error {
	for _, svc := range p.services {
		if n := svc.queue.Len(); n > p.peakQueue {
			p.peakQueue = n
		}
		if err := svc.SaveQueueLength(s); err != nil {
			return fmt.Errorf("provider %s step %d: %w", p.id, s, err)
		}
	}
	logrus.Debugf("[step %d] %s: active=%d/%d queued=%d completed=%d",
		s, p.id, p.activeCount, p.capacity, p.QueuedCount(), p.completedCount)
	return nil
}

// EstimateQueueTime estimates how many steps a job queued now on the named
// service would wait: the remaining horizon of the active jobs plus the
// summed durations of the jobs already queued on that service.
func (p *Provider) EstimateQueueTime(service string, now int64) (int64, error) {
	svc, err := p.Service(service)
	if err != nil {
		return 0, err
	}
	var horizon int64
	for step := range p.active {
		if step-now > horizon {
			horizon = step - now
		}
	}
	return horizon + svc.queue.TotalDuration(), nil
}

// CheckInvariants verifies the active count matches the buckets, the
// capacity bound holds and every queue index is consistent.
func (p *Provider) CheckInvariants() error {
	total := 0
	for step, jobs := range p.active {
		total += len(jobs)
		for _, j := range jobs {
			if j.State != StateActive || j.CompletionStep != step {
				return fmt.Errorf("provider %s: %w: job %s in bucket %d has state %s, completion %d",
					p.id, ErrInvariant, j.ID, step, j.State, j.CompletionStep)
			}
		}
	}
	if total != p.activeCount {
		return fmt.Errorf("provider %s: %w: active count %d, buckets hold %d", p.id, ErrInvariant, p.activeCount, total)
	}
	if p.activeCount > p.capacity {
		return fmt.Errorf("provider %s: %w: active count %d exceeds capacity %d", p.id, ErrInvariant, p.activeCount, p.capacity)
	}
	for _, svc := range p.services {
		if err := svc.queue.checkIndex(); err != nil {
			return fmt.Errorf("provider %s service %s: %w: %v", p.id, svc.name, ErrInvariant, err)
		}
	}
	return nil
}
