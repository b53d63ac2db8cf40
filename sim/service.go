package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ahoi-sim/provider-sim/sim/record"
	"github.com/ahoi-sim/provider-sim/sim/trace"
)

// JobStarter is the operation every concrete service must supply.
// BeginJob is invoked exactly once, when the provider promotes the job from
// queued to active, and defines the work-start side effect.
type JobStarter interface {
	BeginJob(job *Job, step int64)
}

// JobFinisher is an optional extension of JobStarter. FinishJob runs after the
// service has recorded the completed job; it adds side effects but cannot
// replace the record.
type JobFinisher interface {
	FinishJob(job *Job, step int64)
}

// FollowUp queues a job on a sibling service when a job completes.
type FollowUp struct {
	Target      *Service
	Probability float64 // in [0, 1]
	ExtraMin    int64   // extra duration drawn uniformly from [ExtraMin, ExtraMax]
	ExtraMax    int64
}

// Service owns a FIFO queue of one kind of work offered by a provider.
// It generates job IDs, enforces one pending job per requester and
// records completed jobs and queue depth to the provider's sink.
type Service struct {
	provider        *Provider
	name            string
	defaultDuration int64
	jobCounter      int64
	queue           *JobQueue
	behavior        JobStarter
	followUp        *FollowUp

	queued   int // accepted requests
	rejected int // duplicate requests turned away
}

// ServiceOption customizes a Service at construction.
type ServiceOption func(*Service)

// WithQueue makes the service use q instead of a fresh queue.
// Services sharing a queue also share its one-job-per-requester rule, and
// each of them reports the depth of the whole shared queue in its
// queue-length rows.
func WithQueue(q *JobQueue) ServiceOption {
	return func(s *Service) { s.queue = q }
}

// NewService creates a service and attaches it to provider p.
// Returns ErrUnimplemented when behavior is nil, ErrInvalidDuration when
// defaultDuration < 1 and ErrDuplicateService when p already owns a service
// with this name.
func NewService(p *Provider, name string, defaultDuration int64, behavior JobStarter, opts ...ServiceOption) (*Service, error) {
	if p == nil {
		panic("NewService: provider must not be nil")
	}
	if behavior == nil {
		return nil, fmt.Errorf("service %q: %w: missing %v", name, ErrUnimplemented, requiredOperations)
	}
	if defaultDuration < 1 {
		return nil, fmt.Errorf("service %q: %w, got %d", name, ErrInvalidDuration, defaultDuration)
	}
	s := &Service{
		provider:        p,
		name:            name,
		defaultDuration: defaultDuration,
		behavior:        behavior,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = NewJobQueue()
	}
	if err := p.addService(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Name returns the service type name used in job IDs and records.
func (s *Service) Name() string { return s.name }

// Provider returns the owning provider.
func (s *Service) Provider() *Provider { return s.provider }

// DefaultDuration returns the duration given to jobs queued without extra time.
func (s *Service) DefaultDuration() int64 { return s.defaultDuration }

// Queue returns the service's job queue.
func (s *Service) Queue() *JobQueue { return s.queue }

// Behavior returns the concrete service behavior.
func (s *Service) Behavior() JobStarter { return s.behavior }

// JobCounter returns the number of IDs generated so far.
func (s *Service) JobCounter() int64 { return s.jobCounter }

// Queued returns the number of accepted requests.
func (s *Service) Queued() int { return s.queued }

// Rejected returns the number of duplicate requests turned away.
func (s *Service) Rejected() int { return s.rejected }

// FollowUp returns the follow-up rule, or nil.
func (s *Service) FollowUp() *FollowUp { return s.followUp }

// SetFollowUp configures work queued on target whenever a job of s completes.
// target must belong to the same provider.
func (s *Service) SetFollowUp(f FollowUp) error {
	if f.Target == nil || f.Target.provider != s.provider {
		return fmt.Errorf("service %q: follow-up target must be a service of provider %s", s.name, s.provider.id)
	}
	if f.Probability < 0 || f.Probability > 1 {
		return fmt.Errorf("service %q: follow-up probability must be in [0, 1], got %f", s.name, f.Probability)
	}
	if f.ExtraMin > f.ExtraMax {
		return fmt.Errorf("service %q: follow-up extra_min %d exceeds extra_max %d", s.name, f.ExtraMin, f.ExtraMax)
	}
	if f.Target.defaultDuration+f.ExtraMin < 1 {
		return fmt.Errorf("service %q: follow-up on %q: %w", s.name, f.Target.name, ErrInvalidDuration)
	}
	s.followUp = &f
	return nil
}

// GenerateID returns the ID for the current job counter value.
func (s *Service) GenerateID() string {
	return fmt.Sprintf("%s-%s-%d", s.provider.id, s.name, s.jobCounter)
}

// QueueJob asks for a job of the default duration on behalf of requester.
// A requester that already has a pending job here is turned away: the call
// returns accepted=false, logs a notice and does not advance the job counter.
func (s *Service) QueueJob(requester Requester, now int64) (job *Job, accepted bool, err error) {
	return s.QueueJobWithExtra(requester, 0, now)
}

// QueueJobWithExtra is QueueJob with extra steps added to the default duration.
func (s *Service) QueueJobWithExtra(requester Requester, extra int64, now int64) (job *Job, accepted bool, err error) {
	if requester == nil {
		return nil, false, fmt.Errorf("service %q: requester must not be nil", s.name)
	}
	if s.queue.HasPending(requester.RequesterID()) {
		s.rejected++
		logrus.WithFields(logrus.Fields{
			"provider":  s.provider.id,
			"service":   s.name,
			"requester": requester.RequesterID(),
		}).Infof("Requester %s already has a queued %s job", requester.RequesterID(), s.name)
		s.provider.traceRequest(trace.RequestRecord{
			RequesterID: requester.RequesterID(),
			ProviderID:  s.provider.id,
			Service:     s.name,
			Step:        now,
			Reason:      "duplicate pending request",
		})
		return nil, false, nil
	}
	duration := s.defaultDuration + extra
	if duration < 1 {
		return nil, false, fmt.Errorf("service %q: %w, got %d", s.name, ErrInvalidDuration, duration)
	}

	s.jobCounter++
	job, err = NewJob(s.GenerateID(), requester, s, duration)
	if err != nil {
		return nil, false, err
	}
	job.QueuedAt = now
	s.queue.Enqueue(job)
	s.queued++
	s.provider.traceRequest(trace.RequestRecord{
		JobID:       job.ID,
		RequesterID: requester.RequesterID(),
		ProviderID:  s.provider.id,
		Service:     s.name,
		Step:        now,
		Accepted:    true,
	})
	return job, true, nil
}

// CompleteJob records the finished job to the sink, then runs the behavior's
// FinishJob if it has one, then queues any follow-up work.
func (s *Service) CompleteJob(job *Job, step int64) error {
	row := record.Row{
		record.ColStep:        step,
		record.ColJobID:       job.ID,
		record.ColProviderID:  s.provider.id,
		record.ColRequesterID: job.requesterID(),
		record.ColServiceType: s.name,
	}
	if err := s.provider.sink.Record(record.TableCompletedJobs, row); err != nil {
		return fmt.Errorf("recording completed job %s: %w", job.ID, err)
	}
	if f, ok := s.behavior.(JobFinisher); ok {
		f.FinishJob(job, step)
	}
	return s.queueFollowUp(job, step)
}

func (s *Service) queueFollowUp(job *Job, step int64) error {
	f := s.followUp
	if f == nil || job.Requester == nil {
		return nil
	}
	rng := s.provider.rng
	if f.Probability < 1 && rng.Float64() >= f.Probability {
		return nil
	}
	extra := f.ExtraMin
	if f.ExtraMax > f.ExtraMin {
		extra += rng.Int63n(f.ExtraMax - f.ExtraMin + 1)
	}
	next, accepted, err := f.Target.QueueJobWithExtra(job.Requester, extra, step)
	if err != nil {
		return fmt.Errorf("follow-up of %s: %w", job.ID, err)
	}
	if accepted {
		logrus.Debugf("[step %d] %s queued follow-up %s", step, job.ID, next.ID)
	}
	return nil
}

// SaveQueueLength records the current queue depth.
func (s *Service) SaveQueueLength(step int64) error {
	row := record.Row{
		record.ColStep:          step,
		record.ColProviderGroup: s.provider.group,
		record.ColProviderID:    s.provider.id,
		record.ColServiceType:   s.name,
		record.ColQueueLength:   int64(s.queue.Len()),
	}
	if err := s.provider.sink.Record(record.TableQueueLength, row); err != nil {
		return fmt.Errorf("recording queue length of %s/%s: %w", s.provider.id, s.name, err)
	}
	return nil
}
