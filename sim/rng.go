package sim

import (
	"hash/fnv"
	"math/rand"
)

// SimulationKey is the master seed of a run. Equal keys over an equal
// scenario yield equal records.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// SubsystemWorkload names the demand stream. It is seeded with the master
// seed itself, so a scenario's demand depends only on its seed.
const SubsystemWorkload = "workload"

// SubsystemProvider names the follow-up stream of one provider. Streams are
// keyed by provider ID, so adding a provider leaves the others' draws alone.
func SubsystemProvider(id string) string {
	return "provider_" + id
}

// PartitionedRNG hands out one random stream per named consumer, all
// derived from a single SimulationKey. The run root creates it and passes
// streams down; no package-level source exists. Use from one goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG creates an empty partition over key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: make(map[string]*rand.Rand)}
}

// ForSubsystem returns the stream for name, creating it on first use.
// Repeated calls with one name share a single *rand.Rand.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if r, ok := p.streams[name]; ok {
		return r
	}
	r := rand.New(rand.NewSource(p.seedFor(name)))
	p.streams[name] = r
	return r
}

// seedFor is the master seed for the workload and
// masterSeed XOR fnv1a64(name) for every other stream.
func (p *PartitionedRNG) seedFor(name string) int64 {
	if name == SubsystemWorkload {
		return int64(p.key)
	}
	return int64(p.key) ^ fnv1a64(name)
}

// Key returns the master seed.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
