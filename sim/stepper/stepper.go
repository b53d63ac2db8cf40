// Package stepper drives a population of providers through logical steps.
package stepper

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ahoi-sim/provider-sim/sim"
)

// Hook runs once per step, before or after the providers are stepped.
type Hook func(step int64) error

// Stepper owns the shared logical clock. Each Step calls every provider's
// Step exactly once, in declaration order, then advances the clock by one:
// providers never see a gap or a repeated step.
type Stepper struct {
	clock     int64
	providers []*sim.Provider
	before    []Hook
	after     []Hook
	steps     int64
}

// New creates a Stepper whose first step is start.
func New(start int64, providers []*sim.Provider) *Stepper {
	return &Stepper{clock: start, providers: providers}
}

// Before registers a hook run at the start of every step, e.g. demand generation.
func (s *Stepper) Before(h Hook) { s.before = append(s.before, h) }

// After registers a hook run at the end of every step, after all providers.
func (s *Stepper) After(h Hook) { s.after = append(s.after, h) }

// Clock returns the step that the next call to Step will execute.
func (s *Stepper) Clock() int64 { return s.clock }

// StepsRun returns the number of steps executed so far.
func (s *Stepper) StepsRun() int64 { return s.steps }

// Providers returns the stepped providers.
func (s *Stepper) Providers() []*sim.Provider { return s.providers }

// Step executes one logical step. On error the clock does not advance.
// Only a Before hook failure leaves the step retryable: once any provider has
// run the step, a further Step returns sim.ErrStepOrder.
func (s *Stepper) Step() error {
	step := s.clock
	for _, h := range s.before {
		if err := h(step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	for _, p := range s.providers {
		if err := p.Step(step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	for _, h := range s.after {
		if err := h(step); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
	}
	s.clock++
	s.steps++
	return nil
}

// Run executes n steps, stopping at the first error.
func (s *Stepper) Run(n int64) error {
	logrus.Infof("[step %d] Running %d steps over %d providers", s.clock, n, len(s.providers))
	for i := int64(0); i < n; i++ {
		if err := s.Step(); err != nil {
			return err
		}
	}
	logrus.Infof("[step %d] Simulation ended", s.clock)
	return nil
}
