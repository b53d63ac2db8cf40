package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalRequests != 0 || summary.Admissions != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.MeanWait != 0 || summary.MaxWait != 0 {
		t.Error("expected 0 wait values")
	}
	if len(summary.ServiceDistribution) != 0 {
		t.Error("expected empty service distribution")
	}
}

func TestSummarize_NilTrace(t *testing.T) {
	summary := Summarize(nil)
	if summary == nil || summary.ServiceDistribution == nil {
		t.Fatal("expected a usable zero summary for nil trace")
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN a trace with accepted and rejected requests and three admissions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordRequest(RequestRecord{JobID: "j1", Accepted: true})
	st.RecordRequest(RequestRecord{JobID: "j2", Accepted: true})
	st.RecordRequest(RequestRecord{RequesterID: "r1", Accepted: false})
	st.RecordRequest(RequestRecord{JobID: "j3", Accepted: true})
	st.RecordAdmission(AdmissionRecord{JobID: "j1", ProviderID: "p0", Service: "consultation", WaitSteps: 0})
	st.RecordAdmission(AdmissionRecord{JobID: "j2", ProviderID: "p0", Service: "installation", WaitSteps: 4})
	st.RecordAdmission(AdmissionRecord{JobID: "j3", ProviderID: "p1", Service: "consultation", WaitSteps: 2})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts and waits match
	if summary.TotalRequests != 4 || summary.AcceptedCount != 3 || summary.RejectedCount != 1 {
		t.Errorf("request counts: got %+v", summary)
	}
	if summary.Admissions != 3 {
		t.Errorf("expected 3 admissions, got %d", summary.Admissions)
	}
	if summary.MeanWait != 2.0 {
		t.Errorf("expected mean wait 2.0, got %f", summary.MeanWait)
	}
	if summary.MaxWait != 4 {
		t.Errorf("expected max wait 4, got %d", summary.MaxWait)
	}
	if summary.UniqueServices != 3 {
		t.Errorf("expected 3 unique provider services, got %d", summary.UniqueServices)
	}
	if summary.ServiceDistribution["p0/consultation"] != 1 {
		t.Errorf("expected p0/consultation=1, got %d", summary.ServiceDistribution["p0/consultation"])
	}
}
