package orchestrator

import "github.com/aravindh-murugesan/coldsnap/internal/breaker/model"

// FailedResource describes one failed OperationResult for reporting.
type FailedResource struct {
	Kind    model.Kind
	ID      string
	Region  string
	Message string
}

// KindBreakdown is the success/failure split for one resource kind.
type KindBreakdown struct {
	Total   int
	Success int
	Failed  int
}

// Summary is the pure aggregation of a result sequence.
type Summary struct {
	Total           int
	Success         int
	Failed          int
	SuccessRatio    float64
	TotalDuration   float64
	ByKind          map[model.Kind]KindBreakdown
	FailedResources []FailedResource
}

// Summarize aggregates results into counts, a success ratio, total
// duration, a per-kind breakdown, and the list of failures. It is a
// pure function over the result sequence.
func Summarize(results []model.OperationResult) Summary {
	summary := Summary{ByKind: make(map[model.Kind]KindBreakdown)}

	for _, r := range results {
		summary.Total++
		breakdown := summary.ByKind[r.Resource.Kind]
		breakdown.Total++

		if r.Success {
			summary.Success++
			breakdown.Success++
		} else {
			summary.Failed++
			breakdown.Failed++
			summary.FailedResources = append(summary.FailedResources, FailedResource{
				Kind:    r.Resource.Kind,
				ID:      r.Resource.ID,
				Region:  r.Resource.Region,
				Message: r.Message,
			})
		}

		summary.ByKind[r.Resource.Kind] = breakdown

		if r.DurationSeconds != nil {
			summary.TotalDuration += *r.DurationSeconds
		}
	}

	if summary.Total > 0 {
		summary.SuccessRatio = float64(summary.Success) / float64(summary.Total)
	}

	return summary
}
