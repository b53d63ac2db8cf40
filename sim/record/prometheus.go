package record

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink turns rows into Prometheus metrics:
//
//   - provider_sim_completed_jobs_total{provider, service}: completed jobs
//   - provider_sim_queue_length{group, provider, service}: last reported queue depth
//   - provider_sim_step: last step seen in any row
type PrometheusSink struct {
	completed   *prometheus.CounterVec
	queueLength *prometheus.GaugeVec
	step        prometheus.Gauge

	registry *prometheus.Registry
}

// NewPrometheusSink creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusSink(reg *prometheus.Registry) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	p := &PrometheusSink{
		completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_sim_completed_jobs_total",
			Help: "Total number of jobs completed",
		}, []string{"provider", "service"}),
		queueLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "provider_sim_queue_length",
			Help: "Number of jobs waiting in a service queue",
		}, []string{"group", "provider", "service"}),
		step: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "provider_sim_step",
			Help: "Last simulation step recorded",
		}),
		registry: reg,
	}
	for _, c := range []prometheus.Collector{p.completed, p.queueLength, p.step} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering prometheus collector: %w", err)
		}
	}
	return p, nil
}

// Registry returns the registry the collectors are registered on.
func (p *PrometheusSink) Registry() *prometheus.Registry { return p.registry }

// Record updates the metric matching the table.
func (p *PrometheusSink) Record(table string, row Row) error {
	if err := Validate(table, row); err != nil {
		return err
	}
	switch table {
	case TableCompletedJobs:
		p.completed.WithLabelValues(row.String(ColProviderID), row.String(ColServiceType)).Inc()
	case TableQueueLength:
		p.queueLength.WithLabelValues(row.String(ColProviderGroup), row.String(ColProviderID),
			row.String(ColServiceType)).Set(float64(row.Int(ColQueueLength)))
	default:
		return fmt.Errorf("prometheus sink: unknown table %q", table)
	}
	p.step.Set(float64(row.Int(ColStep)))
	return nil
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (p *PrometheusSink) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
