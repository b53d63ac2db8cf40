package workload

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/ahoi-sim/provider-sim/sim"
)

// target is one weighted choice of service, offered by every provider of a group.
type target struct {
	services []*sim.Service
	weight   float64 // normalized to sum to 1.0 over all targets
}

// Generator draws customer demand each step. Deterministic given the same
// config, providers and RNG seed: customers are visited in index order and
// every draw comes from the injected RNG.
type Generator struct {
	customers   []*Customer
	targets     []target
	probability float64
	rng         *rand.Rand
}

// NewGenerator resolves the configured targets against the built providers.
// rng should come from the simulation's PartitionedRNG (SubsystemWorkload).
func NewGenerator(cfg sim.WorkloadConfig, providers []*sim.Provider, rng *rand.Rand) (*Generator, error) {
	if rng == nil {
		return nil, fmt.Errorf("workload generator: rng must not be nil")
	}
	g := &Generator{
		customers:   make([]*Customer, cfg.Requesters),
		probability: cfg.RequestProbability,
		rng:         rng,
	}
	for i := range g.customers {
		g.customers[i] = NewCustomer(i)
	}

	weights := normalizeWeights(cfg.Targets)
	for i, tc := range cfg.Targets {
		if weights[i] <= 0 {
			continue
		}
		t := target{weight: weights[i]}
		for _, p := range providers {
			if p.Group() != tc.Group {
				continue
			}
			svc, err := p.Service(tc.Service)
			if err != nil {
				continue
			}
			t.services = append(t.services, svc)
		}
		if len(t.services) == 0 {
			return nil, fmt.Errorf("workload target %s/%s: no provider offers this service", tc.Group, tc.Service)
		}
		g.targets = append(g.targets, t)
	}
	if len(g.customers) > 0 && len(g.targets) == 0 {
		return nil, fmt.Errorf("workload generator: %d requesters but no targets", len(g.customers))
	}
	return g, nil
}

// normalizeWeights normalizes target weights to sum to 1.0.
func normalizeWeights(targets []sim.TargetConfig) []float64 {
	total := 0.0
	for i := range targets {
		total += targets[i].Weight
	}
	weights := make([]float64, len(targets))
	if total == 0 {
		return weights
	}
	for i := range targets {
		weights[i] = targets[i].Weight / total
	}
	return weights
}

// Customers returns the generated population.
func (g *Generator) Customers() []*Customer { return g.customers }

// Generate lets every customer ask for work with the configured probability.
// Returns the number of requests accepted onto a queue.
func (g *Generator) Generate(step int64) (int, error) {
	accepted := 0
	for _, c := range g.customers {
		if g.rng.Float64() >= g.probability {
			continue
		}
		svc := g.pick()
		_, ok, err := svc.QueueJob(c, step)
		if err != nil {
			return accepted, fmt.Errorf("customer %s: %w", c.ID, err)
		}
		if ok {
			c.Requested++
			accepted++
		} else {
			c.Rejected++
		}
	}
	logrus.Debugf("[step %d] workload: %d requests accepted", step, accepted)
	return accepted, nil
}

// pick chooses a target by weight, then one of its providers uniformly.
func (g *Generator) pick() *sim.Service {
	t := g.targets[len(g.targets)-1]
	u := g.rng.Float64()
	for _, candidate := range g.targets {
		if u < candidate.weight {
			t = candidate
			break
		}
		u -= candidate.weight
	}
	return t.services[g.rng.Intn(len(t.services))]
}
