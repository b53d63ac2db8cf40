package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ahoi-sim/provider-sim/sim/record"
	"github.com/ahoi-sim/provider-sim/sim/trace"
)

// Scenario holds the whole run configuration, loadable from a YAML file.
type Scenario struct {
	Seed      int64            `yaml:"seed"`
	Steps     int64            `yaml:"steps"`
	Admission string           `yaml:"admission"` // default admission order for providers that set none
	Trace     string           `yaml:"trace"`
	Providers []ProviderConfig `yaml:"providers"`
	Workload  WorkloadConfig   `yaml:"workload"`
}

// ProviderConfig describes one provider, or Count identical ones.
// Capacity is a pointer so that an omitted capacity is a validation error
// rather than a silent zero.
type ProviderConfig struct {
	ID        string          `yaml:"id"`
	Group     string          `yaml:"group"`
	Count     int             `yaml:"count"` // replicas; 0 means 1
	Capacity  *int            `yaml:"capacity"`
	Admission string          `yaml:"admission"`
	Services  []ServiceConfig `yaml:"services"`
}

// ServiceConfig describes one service of a provider.
type ServiceConfig struct {
	Name     string          `yaml:"name"` // defaults to Kind
	Kind     string          `yaml:"kind"`
	Duration int64           `yaml:"duration"`
	FollowUp *FollowUpConfig `yaml:"follow_up"`
}

// FollowUpConfig queues work on a sibling service when a job completes.
type FollowUpConfig struct {
	Service     string  `yaml:"service"`
	Probability float64 `yaml:"probability"`
	ExtraMin    int64   `yaml:"extra_min"`
	ExtraMax    int64   `yaml:"extra_max"`
}

// WorkloadConfig groups synthetic demand parameters.
// Zero Requesters means no generated demand (callers queue jobs themselves).
type WorkloadConfig struct {
	Requesters         int            `yaml:"requesters"`
	RequestProbability float64        `yaml:"request_probability"` // per requester per step
	Targets            []TargetConfig `yaml:"targets"`
}

// TargetConfig names a service requesters may ask for, by provider group.
type TargetConfig struct {
	Group   string  `yaml:"group"`
	Service string  `yaml:"service"`
	Weight  float64 `yaml:"weight"`
}

// LoadScenario reads and parses a YAML scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses YAML scenario content. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &sc, nil
}

// ServiceName returns the configured name, defaulting to the kind.
func (c ServiceConfig) ServiceName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind
}

// ProviderIDs returns the IDs of the providers this config expands to.
func (c ProviderConfig) ProviderIDs() []string {
	if c.Count <= 1 {
		return []string{c.ID}
	}
	ids := make([]string, c.Count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s_%d", c.ID, i)
	}
	return ids
}

// Validate checks names, ranges and cross references before anything is built.
// Every configuration fault, including a service kind without a registered
// behavior, is reported here rather than during a step.
func (sc *Scenario) Validate() error {
	if sc.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", sc.Steps)
	}
	if !trace.IsValidTraceLevel(sc.Trace) {
		return fmt.Errorf("unknown trace level %q", sc.Trace)
	}
	if !IsValidAdmissionOrder(sc.Admission) {
		return fmt.Errorf("unknown admission order %q", sc.Admission)
	}
	if len(sc.Providers) == 0 {
		return fmt.Errorf("at least one provider required")
	}

	seenIDs := make(map[string]bool)
	groups := make(map[string]map[string]bool) // group -> service names
	for i, pc := range sc.Providers {
		if err := pc.validate(); err != nil {
			return fmt.Errorf("providers[%d]: %w", i, err)
		}
		for _, id := range pc.ProviderIDs() {
			if seenIDs[id] {
				return fmt.Errorf("providers[%d]: duplicate provider id %q", i, id)
			}
			seenIDs[id] = true
		}
		if groups[pc.Group] == nil {
			groups[pc.Group] = make(map[string]bool)
		}
		for _, s := range pc.Services {
			groups[pc.Group][s.ServiceName()] = true
		}
	}

	return sc.Workload.validate(groups)
}

func (pc ProviderConfig) validate() error {
	if pc.ID == "" {
		return fmt.Errorf("id must not be empty")
	}
	if pc.Count < 0 {
		return fmt.Errorf("provider %s: count must be non-negative, got %d", pc.ID, pc.Count)
	}
	if pc.Capacity == nil {
		return fmt.Errorf("provider %s: capacity is required", pc.ID)
	}
	if *pc.Capacity < 0 {
		return fmt.Errorf("provider %s: %w, got %d", pc.ID, ErrInvalidCapacity, *pc.Capacity)
	}
	if !IsValidAdmissionOrder(pc.Admission) {
		return fmt.Errorf("provider %s: unknown admission order %q", pc.ID, pc.Admission)
	}
	if len(pc.Services) == 0 {
		return fmt.Errorf("provider %s: at least one service required", pc.ID)
	}
	byName := make(map[string]ServiceConfig, len(pc.Services))
	for _, s := range pc.Services {
		name := s.ServiceName()
		if name == "" {
			return fmt.Errorf("provider %s: service kind must not be empty", pc.ID)
		}
		if _, dup := byName[name]; dup {
			return fmt.Errorf("provider %s: %w %q", pc.ID, ErrDuplicateService, name)
		}
		byName[name] = s
		if _, err := NewBehavior(s.Kind); err != nil {
			return fmt.Errorf("provider %s service %s: %w", pc.ID, name, err)
		}
		if s.Duration < 1 {
			return fmt.Errorf("provider %s service %s: %w, got %d", pc.ID, name, ErrInvalidDuration, s.Duration)
		}
	}
	for _, s := range pc.Services {
		f := s.FollowUp
		if f == nil {
			continue
		}
		name := s.ServiceName()
		target, ok := byName[f.Service]
		if !ok {
			return fmt.Errorf("provider %s service %s: follow-up %w %q", pc.ID, name, ErrUnknownService, f.Service)
		}
		if f.Probability < 0 || f.Probability > 1 {
			return fmt.Errorf("provider %s service %s: follow-up probability must be in [0, 1], got %f", pc.ID, name, f.Probability)
		}
		if f.ExtraMin > f.ExtraMax {
			return fmt.Errorf("provider %s service %s: follow-up extra_min %d exceeds extra_max %d", pc.ID, name, f.ExtraMin, f.ExtraMax)
		}
		if target.Duration+f.ExtraMin < 1 {
			return fmt.Errorf("provider %s service %s: follow-up on %s: %w", pc.ID, name, f.Service, ErrInvalidDuration)
		}
	}
	return nil
}

func (wc WorkloadConfig) validate(groups map[string]map[string]bool) error {
	if wc.Requesters < 0 {
		return fmt.Errorf("workload: requesters must be non-negative, got %d", wc.Requesters)
	}
	if wc.RequestProbability < 0 || wc.RequestProbability > 1 {
		return fmt.Errorf("workload: request_probability must be in [0, 1], got %f", wc.RequestProbability)
	}
	if wc.Requesters > 0 && len(wc.Targets) == 0 {
		return fmt.Errorf("workload: at least one target required when requesters > 0")
	}
	var totalWeight float64
	for i, t := range wc.Targets {
		services, ok := groups[t.Group]
		if !ok {
			return fmt.Errorf("workload: targets[%d]: unknown provider group %q", i, t.Group)
		}
		if !services[t.Service] {
			return fmt.Errorf("workload: targets[%d]: group %q offers no service %q", i, t.Group, t.Service)
		}
		if t.Weight < 0 {
			return fmt.Errorf("workload: targets[%d]: weight must be non-negative, got %f", i, t.Weight)
		}
		totalWeight += t.Weight
	}
	if len(wc.Targets) > 0 && totalWeight <= 0 {
		return fmt.Errorf("workload: target weights must sum to a positive value")
	}
	return nil
}

// BuildProviders constructs every provider and service of the scenario.
// Each provider gets its own RNG stream derived from rng. st may be nil.
// Call Validate first; BuildProviders still returns construction errors.
func (sc *Scenario) BuildProviders(rng *PartitionedRNG, sink record.Sink, st *trace.SimulationTrace) ([]*Provider, error) {
	var providers []*Provider
	for _, pc := range sc.Providers {
		orderName := pc.Admission
		if orderName == "" {
			orderName = sc.Admission
		}
		for _, id := range pc.ProviderIDs() {
			opts := []ProviderOption{
				WithSink(sink),
				WithAdmissionOrder(NewAdmissionOrder(orderName)),
				WithRNG(rng.ForSubsystem(SubsystemProvider(id))),
			}
			if st != nil {
				opts = append(opts, WithTrace(st))
			}
			p, err := NewProvider(id, pc.Group, *pc.Capacity, opts...)
			if err != nil {
				return nil, err
			}
			if err := buildServices(p, pc.Services); err != nil {
				return nil, err
			}
			providers = append(providers, p)
		}
	}
	return providers, nil
}

func buildServices(p *Provider, configs []ServiceConfig) error {
	for _, c := range configs {
		behavior, err := NewBehavior(c.Kind)
		if err != nil {
			return fmt.Errorf("provider %s: %w", p.id, err)
		}
		if _, err := NewService(p, c.ServiceName(), c.Duration, behavior); err != nil {
			return fmt.Errorf("provider %s: %w", p.id, err)
		}
	}
	for _, c := range configs {
		if c.FollowUp == nil {
			continue
		}
		src := p.byName[c.ServiceName()]
		target, err := p.Service(c.FollowUp.Service)
		if err != nil {
			return err
		}
		if err := src.SetFollowUp(FollowUp{
			Target:      target,
			Probability: c.FollowUp.Probability,
			ExtraMin:    c.FollowUp.ExtraMin,
			ExtraMax:    c.FollowUp.ExtraMax,
		}); err != nil {
			return fmt.Errorf("provider %s: %w", p.id, err)
		}
	}
	return nil
}
