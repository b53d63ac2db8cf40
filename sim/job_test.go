package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_DurationBelowOne_Rejected(t *testing.T) {
	for _, d := range []int64{0, -1, -100} {
		// GIVEN a non-positive duration
		// WHEN a job is created
		job, err := NewJob("j", testRequester("r"), nil, d)

		// THEN creation fails before the job exists
		assert.Nil(t, job)
		assert.True(t, errors.Is(err, ErrInvalidDuration), "duration %d: got %v", d, err)
	}
}

func TestNewJob_StartsQueued(t *testing.T) {
	job, err := NewJob("p-s-1", testRequester("r1"), nil, 3)
	require.NoError(t, err)

	assert.Equal(t, StateQueued, job.State)
	assert.Equal(t, int64(3), job.Duration)
	assert.Equal(t, int64(0), job.WaitSteps(), "queued jobs have no wait yet")
}

func TestJob_WaitSteps_AfterAdmission(t *testing.T) {
	job, err := NewJob("p-s-1", testRequester("r1"), nil, 1)
	require.NoError(t, err)
	job.QueuedAt = 4
	job.StartedAt = 9
	job.State = StateActive

	assert.Equal(t, int64(5), job.WaitSteps())
}

func TestJob_String_ToleratesNilRequester(t *testing.T) {
	job, err := NewJob("p-s-1", nil, nil, 2)
	require.NoError(t, err)

	assert.Contains(t, job.String(), "p-s-1")
	assert.Contains(t, job.String(), "queued")
}
