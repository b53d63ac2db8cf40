package sim

import (
	"math"
	"math/rand"
	"testing"
)

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// GIVEN two RNGs with the same key
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))
	name := SubsystemProvider("plumber_0")

	// WHEN three values are drawn from the same subsystem of each
	// THEN the sequences are identical
	for i := 0; i < 3; i++ {
		a := rng1.ForSubsystem(name).Float64()
		b := rng2.ForSubsystem(name).Float64()
		if a != b {
			t.Errorf("Value %d: got %v and %v, want identical", i, a, b)
		}
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// GIVEN heavy use of one provider's stream
	rng := NewPartitionedRNG(NewSimulationKey(42))
	for i := 0; i < 10; i++ {
		rng.ForSubsystem(SubsystemProvider("a")).Float64()
		rng.ForSubsystem(SubsystemWorkload).Float64()
	}

	// WHEN another provider draws its first value
	got := rng.ForSubsystem(SubsystemProvider("b")).Float64()

	// THEN it matches the first value of a fresh stream
	want := NewPartitionedRNG(NewSimulationKey(42)).ForSubsystem(SubsystemProvider("b")).Float64()
	if got != want {
		t.Errorf("provider b first value = %v, want %v (isolation broken)", got, want)
	}
}

func TestPartitionedRNG_WorkloadUsesMasterSeed(t *testing.T) {
	seed := int64(42)
	workloadRNG := NewPartitionedRNG(NewSimulationKey(seed)).ForSubsystem(SubsystemWorkload)
	directRNG := rand.New(rand.NewSource(seed))

	for i := 0; i < 10; i++ {
		got := workloadRNG.Float64()
		want := directRNG.Float64()
		if got != want {
			t.Errorf("Value %d: workload RNG = %v, direct RNG = %v", i, got, want)
		}
	}
}

func TestPartitionedRNG_CachesInstance(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))

	if rng.ForSubsystem(SubsystemWorkload) != rng.ForSubsystem(SubsystemWorkload) {
		t.Error("ForSubsystem returned different instances for same name")
	}
	if len(rng.streams) != 1 {
		t.Errorf("have %d streams, want 1", len(rng.streams))
	}
}

func TestPartitionedRNG_ProviderStreamSeededFromHashedName(t *testing.T) {
	key := NewSimulationKey(42)
	name := SubsystemProvider("plumber_0")
	got := NewPartitionedRNG(key).ForSubsystem(name).Int63()
	want := rand.New(rand.NewSource(int64(key) ^ fnv1a64(name))).Int63()
	if got != want {
		t.Errorf("provider stream first value = %d, want %d", got, want)
	}
}

func TestPartitionedRNG_Key(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(12345))

	if rng.Key() != SimulationKey(12345) {
		t.Errorf("Key() = %v, want 12345", rng.Key())
	}
}

func TestFnv1a64_NoCollisionsAcrossProviders(t *testing.T) {
	names := []string{
		SubsystemWorkload,
		SubsystemProvider("plumber"),
		SubsystemProvider("plumber_0"),
		SubsystemProvider("plumber_1"),
		SubsystemProvider("advisor"),
		"",
	}

	hashes := make(map[int64]string)
	for _, name := range names {
		h := fnv1a64(name)
		if existing, ok := hashes[h]; ok {
			t.Errorf("Hash collision: %q and %q both hash to %d", name, existing, h)
		}
		hashes[h] = name
	}
}

func TestSubsystemProvider(t *testing.T) {
	if got := SubsystemProvider("plumber_3"); got != "provider_plumber_3" {
		t.Errorf("SubsystemProvider = %q, want %q", got, "provider_plumber_3")
	}
}

func BenchmarkPartitionedRNG_ForSubsystem_CacheHit(b *testing.B) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	rng.ForSubsystem(SubsystemWorkload)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rng.ForSubsystem(SubsystemWorkload)
	}
}
