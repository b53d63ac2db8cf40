// Package sim provides the provider-side job scheduling engine of the
// customer/intermediary simulation.
//
// # Reading Guide
//
// Start with these files to understand the scheduling kernel:
//   - job.go: Job lifecycle (queued → active → completed)
//   - service.go: Service queues, job ID generation, duplicate rejection and recording
//   - provider.go: Provider step: completion, admission and monitoring passes
//
// # Architecture
//
// The sim package defines the kernel and its extension points; supporting
// code lives in sub-packages:
//   - sim/record/: record sinks (memory, SQLite, Prometheus)
//   - sim/trace/: decision trace recording
//   - sim/stepper/: the logical clock that steps every provider once per step
//   - sim/workload/: synthetic requesters and demand generation
//
// Time is a logical step counter, never wall-clock time. A job admitted at
// step s with duration d is active during [s, s+d) and completes at the
// completion pass of step s+d.
//
// # Key Interfaces
//
//   - JobStarter: the operation every concrete service supplies (BeginJob)
//   - JobFinisher: optional completion side effects after the base record
//   - AdmissionOrder: which service's queue is served next under shared capacity
//   - Requester / JobObserver: the customer side of a job
//   - record.Sink: destination for completed-job and queue-length rows
package sim
