package stepper

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahoi-sim/provider-sim/sim"
	"github.com/ahoi-sim/provider-sim/sim/record"
)

type requester string

func (r requester) RequesterID() string { return string(r) }

func newProvider(t *testing.T, id string, capacity int, sink record.Sink) (*sim.Provider, *sim.Service) {
	t.Helper()
	p, err := sim.NewProvider(id, "Plumber", capacity, sim.WithSink(sink))
	require.NoError(t, err)
	b, err := sim.NewBehavior("consultation")
	require.NoError(t, err)
	svc, err := sim.NewService(p, "consultation", 2, b)
	require.NoError(t, err)
	return p, svc
}

func TestStepper_StepsEveryProviderOncePerStepInOrder(t *testing.T) {
	// GIVEN two providers sharing a sink
	sink := record.NewMemorySink()
	p1, _ := newProvider(t, "plumber_0", 1, sink)
	p2, _ := newProvider(t, "plumber_1", 1, sink)
	s := New(0, []*sim.Provider{p1, p2})

	// WHEN three steps run
	require.NoError(t, s.Run(3))

	// THEN each step has one queue row per provider, in declaration order
	rows := sink.Rows(record.TableQueueLength)
	require.Len(t, rows, 6)
	for i, row := range rows {
		assert.Equal(t, int64(i/2), row.Int(record.ColStep))
		want := "plumber_0"
		if i%2 == 1 {
			want = "plumber_1"
		}
		assert.Equal(t, want, row.String(record.ColProviderID))
	}
	assert.Equal(t, int64(3), s.Clock())
	assert.Equal(t, int64(3), s.StepsRun())
}

func TestStepper_HooksRunAroundProviders(t *testing.T) {
	// GIVEN a hook that queues a job before each step and one that checks after
	p, svc := newProvider(t, "plumber_0", 5, record.Discard)
	s := New(10, []*sim.Provider{p})
	var before, after []int64
	s.Before(func(step int64) error {
		before = append(before, step)
		_, _, err := svc.QueueJob(requester(string(rune('a'+len(before)))), step)
		return err
	})
	s.After(func(step int64) error {
		after = append(after, step)
		return p.CheckInvariants()
	})

	// WHEN two steps run
	require.NoError(t, s.Run(2))

	// THEN hooks saw the same clock values and jobs queued before a step were admitted in it
	assert.Equal(t, []int64{10, 11}, before)
	assert.Equal(t, []int64{10, 11}, after)
	assert.Equal(t, 2, p.ActiveCount())
	assert.Equal(t, 0, svc.Queue().Len())
}

func TestStepper_ErrorStopsWithoutAdvancingClock(t *testing.T) {
	boom := errors.New("boom")
	p, _ := newProvider(t, "plumber_0", 1, record.Discard)
	s := New(0, []*sim.Provider{p})
	s.After(func(step int64) error {
		if step == 2 {
			return boom
		}
		return nil
	})

	err := s.Run(5)

	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, int64(2), s.Clock())
	assert.Equal(t, int64(2), s.StepsRun())
}

func TestStepper_ProvidersNeverSeeGapsOrRepeats(t *testing.T) {
	// GIVEN a provider already stepped by the stepper
	p, _ := newProvider(t, "plumber_0", 1, record.Discard)
	s := New(0, []*sim.Provider{p})
	require.NoError(t, s.Step())

	// WHEN the provider is stepped directly with a stale step
	err := p.Step(0)

	// THEN it refuses; the stepper continues from its own clock
	assert.True(t, errors.Is(err, sim.ErrStepOrder))
	assert.NoError(t, s.Step())
	assert.Len(t, s.Providers(), 1)
}

type failingSink struct{ err error }

func (f failingSink) Record(string, record.Row) error { return f.err }

func TestStepper_ProviderFailureIsNotRetryable(t *testing.T) {
	// GIVEN a healthy provider followed by one whose sink fails
	down := errors.New("sink down")
	p1, _ := newProvider(t, "plumber_0", 1, record.Discard)
	p2, _ := newProvider(t, "plumber_1", 1, failingSink{err: down})
	s := New(0, []*sim.Provider{p1, p2})

	// WHEN the step fails and is attempted again
	first := s.Step()
	second := s.Step()

	// THEN the clock stays put and the retry is refused by the provider that already ran
	assert.True(t, errors.Is(first, down), "got %v", first)
	assert.True(t, errors.Is(second, sim.ErrStepOrder), "got %v", second)
	assert.Equal(t, int64(0), s.Clock())
	assert.Equal(t, int64(0), s.StepsRun())
}

func TestStepper_BeforeHookFailureIsRetryable(t *testing.T) {
	// GIVEN a Before hook that fails once
	p, _ := newProvider(t, "plumber_0", 1, record.Discard)
	s := New(0, []*sim.Provider{p})
	calls := 0
	s.Before(func(int64) error {
		calls++
		if calls == 1 {
			return errors.New("not ready")
		}
		return nil
	})

	// WHEN the step is attempted twice
	require.Error(t, s.Step())
	err := s.Step()

	// THEN the second attempt runs step 0
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.Clock())
}
