package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRequests       int
	AcceptedCount       int
	RejectedCount       int
	Admissions          int
	MeanWait            float64
	MaxWait             int64
	UniqueServices      int
	ServiceDistribution map[string]int // "provider/service" → count of admitted jobs
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ServiceDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRequests = len(st.Requests)
	for _, r := range st.Requests {
		if r.Accepted {
			summary.AcceptedCount++
		} else {
			summary.RejectedCount++
		}
	}

	summary.Admissions = len(st.Admissions)
	if len(st.Admissions) > 0 {
		var totalWait int64
		for _, a := range st.Admissions {
			summary.ServiceDistribution[a.ProviderID+"/"+a.Service]++
			totalWait += a.WaitSteps
			if a.WaitSteps > summary.MaxWait {
				summary.MaxWait = a.WaitSteps
			}
		}
		summary.MeanWait = float64(totalWait) / float64(len(st.Admissions))
	}

	summary.UniqueServices = len(summary.ServiceDistribution)

	return summary
}
