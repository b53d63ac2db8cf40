// Package trace provides decision-trace recording for provider scheduling analysis.
// This package has no dependencies on sim/ and stores pure data types.
package trace

// RequestRecord captures a single queue request: accepted onto a service's
// queue, or turned away because the requester already had a job pending.
type RequestRecord struct {
	JobID       string // empty when rejected
	RequesterID string
	ProviderID  string
	Service     string
	Step        int64
	Accepted    bool
	Reason      string
}

// AdmissionRecord captures a single admission: a queued job promoted to active.
type AdmissionRecord struct {
	JobID          string
	ProviderID     string
	Service        string
	Step           int64
	WaitSteps      int64 // steps spent queued
	CompletionStep int64
	ActiveAfter    int // provider's active job count after this admission
	Capacity       int
}
