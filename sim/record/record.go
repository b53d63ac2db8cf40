// Package record defines the sink that receives structured rows from the scheduler:
// one row per completed job and one queue-depth snapshot per service per step.
// This package has no dependencies on sim/ and stores pure data types.
package record

import (
	"fmt"
	"sort"
)

// Table names written by the scheduler.
const (
	TableCompletedJobs = "Completed Intermediary Jobs"
	TableQueueLength   = "Intermediary Queue Length"
)

// Column names. Completed-job rows carry Step, JobID, ProviderID, RequesterID
// and ServiceType; queue-length rows carry Step, ProviderGroup, ProviderID,
// ServiceType and QueueLength.
const (
	ColStep          = "Step"
	ColJobID         = "Job id"
	ColProviderID    = "Provider id"
	ColProviderGroup = "Provider group"
	ColRequesterID   = "Requester id"
	ColServiceType   = "Service type"
	ColQueueLength   = "Queue length"
)

// TableColumns lists the required columns per table, in output order.
var TableColumns = map[string][]string{
	TableCompletedJobs: {ColStep, ColJobID, ColProviderID, ColRequesterID, ColServiceType},
	TableQueueLength:   {ColStep, ColProviderGroup, ColProviderID, ColServiceType, ColQueueLength},
}

// Row is one record keyed by column name.
type Row map[string]any

// Int returns the integer value of a column, or 0 if missing or not an integer.
func (r Row) Int(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// String returns the string value of a column, or "" if missing.
func (r Row) String(col string) string {
	if s, ok := r[col].(string); ok {
		return s
	}
	return ""
}

// Validate checks that the row carries every required column of the table.
// Tables without a declared schema accept any row.
func Validate(table string, row Row) error {
	cols, ok := TableColumns[table]
	if !ok {
		return nil
	}
	var missing []string
	for _, c := range cols {
		if _, ok := row[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("table %q: row missing columns %v", table, missing)
	}
	return nil
}

// Sink receives rows from the scheduler.
type Sink interface {
	Record(table string, row Row) error
}

// Discard drops every row.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Record(string, Row) error { return nil }

// MemorySink keeps rows in memory, grouped by table, in arrival order.
type MemorySink struct {
	Tables map[string][]Row
}

// NewMemorySink creates a MemorySink ready for recording.
func NewMemorySink() *MemorySink {
	return &MemorySink{Tables: make(map[string][]Row)}
}

// Record appends the row after checking its columns.
func (m *MemorySink) Record(table string, row Row) error {
	if err := Validate(table, row); err != nil {
		return err
	}
	m.Tables[table] = append(m.Tables[table], row)
	return nil
}

// Rows returns the rows recorded for a table.
func (m *MemorySink) Rows(table string) []Row {
	return m.Tables[table]
}

// MultiSink fans each row out to several sinks, stopping at the first error.
type MultiSink []Sink

// Record writes the row to every sink in order.
func (ms MultiSink) Record(table string, row Row) error {
	for _, s := range ms {
		if err := s.Record(table, row); err != nil {
			return err
		}
	}
	return nil
}
