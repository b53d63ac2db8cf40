package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusSink_CountsAndGauges(t *testing.T) {
	// GIVEN a sink on a fresh registry
	p, err := NewPrometheusSink(nil)
	require.NoError(t, err)

	// WHEN two completions and two queue snapshots are recorded
	require.NoError(t, p.Record(TableCompletedJobs, completedRow(1, "a")))
	require.NoError(t, p.Record(TableCompletedJobs, completedRow(2, "b")))
	require.NoError(t, p.Record(TableQueueLength, queueRow(2, 5)))
	require.NoError(t, p.Record(TableQueueLength, queueRow(3, 1)))

	// THEN the counter accumulates and the gauges hold the latest values
	assert.Equal(t, 2.0, testutil.ToFloat64(p.completed.WithLabelValues("plumber_0", "consultation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.queueLength.WithLabelValues("Plumber", "plumber_0", "consultation")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.step))
}

func TestPrometheusSink_UnknownTable(t *testing.T) {
	p, err := NewPrometheusSink(nil)
	require.NoError(t, err)

	assert.Error(t, p.Record("Householder Decisions", Row{}))
}

func TestPrometheusSink_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	_, err = NewPrometheusSink(reg)
	assert.Error(t, err)
}

func TestPrometheusSink_WriteTextfile(t *testing.T) {
	p, err := NewPrometheusSink(nil)
	require.NoError(t, err)
	require.NoError(t, p.Record(TableCompletedJobs, completedRow(1, "a")))

	path := filepath.Join(t.TempDir(), "provider_sim.prom")
	require.NoError(t, p.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `provider_sim_completed_jobs_total{provider="plumber_0",service="consultation"} 1`)
	assert.Contains(t, string(data), "provider_sim_step 1")
}
