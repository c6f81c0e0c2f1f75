package ops

import (
	"fmt"
	"time"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

// DryRunPause synthesizes a successful OperationResult per resource
// without invoking any driver, and returns no snapshot.
func DryRunPause(resources []model.Resource) []model.OperationResult {
	return dryRun(resources, model.OpPause, "Would pause")
}

// DryRunResume synthesizes a successful OperationResult per resource
// without invoking any driver.
func DryRunResume(resources []model.Resource) []model.OperationResult {
	return dryRun(resources, model.OpResume, "Would resume")
}

func dryRun(resources []model.Resource, op model.Op, verb string) []model.OperationResult {
	now := time.Now().UTC()
	results := make([]model.OperationResult, 0, len(resources))
	zero := 0.0

	for _, r := range resources {
		results = append(results, model.OperationResult{
			Success:         true,
			Resource:        r,
			Op:              op,
			Message:         fmt.Sprintf("[DRY RUN] %s %s %s", verb, r.Kind, r.ID),
			Timestamp:       now,
			DurationSeconds: &zero,
		})
	}

	return results
}
