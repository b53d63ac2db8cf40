package sim

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// requiredOperations lists the methods every service behavior must implement.
var requiredOperations = []string{"BeginJob"}

// missingOperations returns the required operations v does not implement.
func missingOperations(v any) []string {
	if _, ok := v.(JobStarter); ok {
		return nil
	}
	return append([]string(nil), requiredOperations...)
}

// BehaviorFactory builds a fresh behavior for one service instance.
// It returns any so that registration can report every missing operation
// instead of failing to compile a half-written behavior elsewhere.
type BehaviorFactory func() any

var behaviorFactories = map[string]BehaviorFactory{}

// RegisterBehavior makes a service kind available to scenarios.
// The factory is invoked once here: a behavior that does not implement the
// required operations is rejected with ErrUnimplemented at registration,
// never on first use.
func RegisterBehavior(kind string, factory BehaviorFactory) error {
	if kind == "" {
		return fmt.Errorf("behavior kind must not be empty")
	}
	if factory == nil {
		return fmt.Errorf("behavior %q: %w: nil factory", kind, ErrUnimplemented)
	}
	if missing := missingOperations(factory()); len(missing) > 0 {
		return fmt.Errorf("behavior %q: %w: missing %v", kind, ErrUnimplemented, missing)
	}
	behaviorFactories[kind] = factory
	return nil
}

func mustRegisterBehavior(kind string, factory BehaviorFactory) {
	if err := RegisterBehavior(kind, factory); err != nil {
		panic(err)
	}
}

// IsValidBehavior returns true if kind names a registered service kind.
func IsValidBehavior(kind string) bool {
	_, ok := behaviorFactories[kind]
	return ok
}

// BehaviorKinds returns the registered kinds in sorted order.
func BehaviorKinds() []string {
	kinds := make([]string, 0, len(behaviorFactories))
	for k := range behaviorFactories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// NewBehavior creates a behavior by kind.
func NewBehavior(kind string) (JobStarter, error) {
	factory, ok := behaviorFactories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown service kind %q; valid: %v", kind, BehaviorKinds())
	}
	v := factory()
	if missing := missingOperations(v); len(missing) > 0 {
		return nil, fmt.Errorf("behavior %q: %w: missing %v", kind, ErrUnimplemented, missing)
	}
	return v.(JobStarter), nil
}

func init() {
	mustRegisterBehavior("consultation", func() any { return &Consultation{} })
	mustRegisterBehavior("installation", func() any { return &Installation{Installed: make(map[string]int)} })
}

// Consultation is advice work: the requester is told when it starts and ends.
type Consultation struct {
	Started  int
	Finished int
}

func (c *Consultation) BeginJob(job *Job, step int64) {
	c.Started++
	logrus.Debugf("[step %d] Begin consultation %s", step, job.ID)
	if o, ok := job.Requester.(JobObserver); ok {
		o.JobStarted(job, step)
	}
}

func (c *Consultation) FinishJob(job *Job, step int64) {
	c.Finished++
	logrus.Debugf("[step %d] Complete consultation %s", step, job.ID)
	if o, ok := job.Requester.(JobObserver); ok {
		o.JobCompleted(job, step)
	}
}

// Installation is on-site work whose length varies per job.
// Installed counts finished installations per requester.
type Installation struct {
	Installed map[string]int
}

func (in *Installation) BeginJob(job *Job, step int64) {
	logrus.Debugf("[step %d] Begin installation %s (%d steps)", step, job.ID, job.Duration)
	if o, ok := job.Requester.(JobObserver); ok {
		o.JobStarted(job, step)
	}
}

func (in *Installation) FinishJob(job *Job, step int64) {
	in.Installed[job.requesterID()]++
	logrus.Debugf("[step %d] Complete installation %s", step, job.ID)
	if o, ok := job.Requester.(JobObserver); ok {
		o.JobCompleted(job, step)
	}
}
