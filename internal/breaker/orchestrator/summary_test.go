package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func durationPtr(d float64) *float64 { return &d }

func TestSummarize(t *testing.T) {
	results := []model.OperationResult{
		{Success: true, Resource: model.Resource{Kind: model.KindInstance, ID: "i-1"}, DurationSeconds: durationPtr(1.5)},
		{Success: false, Resource: model.Resource{Kind: model.KindInstance, ID: "i-2"}, Message: "stop failed", DurationSeconds: durationPtr(0.5)},
		{Success: true, Resource: model.Resource{Kind: model.KindDatabase, ID: "db-1"}},
	}

	summary := Summarize(results)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.InDelta(t, 2.0/3.0, summary.SuccessRatio, 0.0001)
	assert.InDelta(t, 2.0, summary.TotalDuration, 0.0001)

	require := assert.New(t)
	require.Equal(KindBreakdown{Total: 2, Success: 1, Failed: 1}, summary.ByKind[model.KindInstance])
	require.Equal(KindBreakdown{Total: 1, Success: 1, Failed: 0}, summary.ByKind[model.KindDatabase])

	require.Len(summary.FailedResources, 1)
	require.Equal(FailedResource{Kind: model.KindInstance, ID: "i-2", Message: "stop failed"}, summary.FailedResources[0])
}

func TestSummarize_Empty(t *testing.T) {
	summary := Summarize(nil)

	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, float64(0), summary.SuccessRatio)
	assert.Empty(t, summary.FailedResources)
}

func TestSnapshotID_MonotonicWithinSecond(t *testing.T) {
	snapshotIDMu.Lock()
	lastSnapshotAt = ""
	snapshotSeq = 0
	snapshotIDMu.Unlock()

	first := snapshotID()
	assert.NotContains(t, first, "-1")

	snapshotIDMu.Lock()
	forced := lastSnapshotAt
	snapshotIDMu.Unlock()
	_ = forced

	// A second call landing on the same formatted second gets a numeric
	// suffix rather than colliding with the first id.
	stampBefore := time.Now().UTC().Format("20060102-150405")
	second := snapshotID()
	stampAfter := time.Now().UTC().Format("20060102-150405")

	if stampBefore == stampAfter {
		assert.NotEqual(t, first, second)
		assert.Contains(t, second, first+"-")
	}
}
