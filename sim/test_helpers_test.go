package sim

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/ahoi-sim/provider-sim/sim/record"
)

// testRequester is a bare requester identity.
type testRequester string

func (r testRequester) RequesterID() string { return string(r) }

// observingRequester records the notifications sent by behaviors.
type observingRequester struct {
	id        string
	started   []int64
	completed []int64
}

func (o *observingRequester) RequesterID() string { return o.id }

func (o *observingRequester) JobStarted(_ *Job, step int64) { o.started = append(o.started, step) }

func (o *observingRequester) JobCompleted(_ *Job, step int64) {
	o.completed = append(o.completed, step)
}

// recordingBehavior captures BeginJob and FinishJob calls. When sink is set,
// FinishJob also notes how many completed-job rows the sink held at that point.
type recordingBehavior struct {
	begun        []string
	finished     []string
	sink         *record.MemorySink
	rowsAtFinish []int
}

func (b *recordingBehavior) BeginJob(job *Job, _ int64) {
	b.begun = append(b.begun, job.ID)
}

func (b *recordingBehavior) FinishJob(job *Job, _ int64) {
	b.finished = append(b.finished, job.ID)
	if b.sink != nil {
		b.rowsAtFinish = append(b.rowsAtFinish, len(b.sink.Rows(record.TableCompletedJobs)))
	}
}

// startOnly implements JobStarter but not JobFinisher.
type startOnly struct{ begun int }

func (s *startOnly) BeginJob(*Job, int64) { s.begun++ }

// failingSink fails every write to table.
type failingSink struct {
	table string
}

var errSinkDown = errors.New("sink down")

func (f failingSink) Record(table string, _ record.Row) error {
	if table == f.table {
		return errSinkDown
	}
	return nil
}

func newTestProvider(t *testing.T, id string, capacity int, opts ...ProviderOption) *Provider {
	t.Helper()
	p, err := NewProvider(id, "TestGroup", capacity, opts...)
	require.NoError(t, err)
	return p
}

func newTestService(t *testing.T, p *Provider, name string, duration int64) (*Service, *recordingBehavior) {
	t.Helper()
	b := &recordingBehavior{}
	s, err := NewService(p, name, duration, b)
	require.NoError(t, err)
	return s, b
}

// queue asks svc for a job on behalf of each requester and requires acceptance.
func queue(t *testing.T, svc *Service, now int64, requesters ...string) []*Job {
	t.Helper()
	jobs := make([]*Job, 0, len(requesters))
	for _, r := range requesters {
		job, accepted, err := svc.QueueJob(testRequester(r), now)
		require.NoError(t, err)
		require.True(t, accepted, "requester %s", r)
		jobs = append(jobs, job)
	}
	return jobs
}

// stepRange steps p through [from, to] inclusive.
func stepRange(t *testing.T, p *Provider, from, to int64) {
	t.Helper()
	for s := from; s <= to; s++ {
		require.NoError(t, p.Step(s))
	}
}

// captureLogs enables Info logging and collects entries of the standard logger.
func captureLogs(t *testing.T) *test.Hook {
	t.Helper()
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.InfoLevel)
	hook := test.NewGlobal()
	t.Cleanup(func() {
		logrus.SetLevel(prev)
		logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	})
	return hook
}
