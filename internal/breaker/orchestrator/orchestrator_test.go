package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/cancel"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func costHint(v float64) *float64 { return &v }

func TestEstimatedMonthlySavings(t *testing.T) {
	resources := []model.Resource{
		{ID: "i-1", CostHint: costHint(1.0)},
		{ID: "i-2", CostHint: costHint(0.5)},
		{ID: "i-3"}, // no cost hint, contributes nothing
	}

	got := estimatedMonthlySavings(resources)

	assert.InDelta(t, (1.0+0.5)*24*30, got, 0.0001)
}

func TestEstimatedMonthlySavings_NoHints(t *testing.T) {
	resources := []model.Resource{{ID: "i-1"}, {ID: "i-2"}}

	assert.Equal(t, float64(0), estimatedMonthlySavings(resources))
}

func TestSkippedFailedCancelledResults(t *testing.T) {
	r := model.Resource{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "stopped"}

	skipped := skippedResult(r, model.OpPause, "not pausable")
	assert.False(t, skipped.Success)
	assert.Equal(t, model.OpPause, skipped.Op)
	assert.Equal(t, "not pausable", skipped.Message)

	failed := failedResult(r, assertErr("boom"))
	assert.False(t, failed.Success)
	assert.Contains(t, failed.Message, "boom")

	cancelled := cancelledResult(r)
	assert.False(t, cancelled.Success)
	assert.Contains(t, cancelled.Message, "cancelled")
}

type testErr string

func (e testErr) Error() string { return string(e) }

func assertErr(msg string) error { return testErr(msg) }

func TestValidateSnapshot(t *testing.T) {
	r := model.Resource{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1"}

	t.Run("no resources", func(t *testing.T) {
		err := validateSnapshot(model.Snapshot{ID: "s1"})
		require.Error(t, err)
	})

	t.Run("no original states", func(t *testing.T) {
		err := validateSnapshot(model.Snapshot{ID: "s1", Resources: []model.Resource{r}})
		require.Error(t, err)
	})

	t.Run("missing entry for a resource", func(t *testing.T) {
		snap := model.Snapshot{
			ID:        "s1",
			Resources: []model.Resource{r, {Kind: model.KindDatabase, ID: "db-1", Region: "us-east-1"}},
			OriginalStates: map[string]model.OriginalState{
				r.Key(): {State: "running"},
			},
		}
		err := validateSnapshot(snap)
		require.Error(t, err)
	})

	t.Run("complete snapshot validates", func(t *testing.T) {
		snap := model.Snapshot{
			ID:        "s1",
			Resources: []model.Resource{r},
			OriginalStates: map[string]model.OriginalState{
				r.Key(): {State: "running"},
			},
		}
		require.NoError(t, validateSnapshot(snap))
	})
}

func TestSnapshotIDFormat(t *testing.T) {
	id := snapshotID()
	assert.Regexp(t, `^pause-\d{8}-\d{6}(-\d+)?$`, id)
}

func TestDiscoverAll_UnionAcrossRegionsAndKinds(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", &fakeDriver{resources: []model.Resource{
		{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "running"},
		{Kind: model.KindInstance, ID: "i-2", Region: "us-east-1", State: "running"},
	}})
	reg.set(model.KindDatabase, "us-east-1", &fakeDriver{resources: []model.Resource{
		{Kind: model.KindDatabase, ID: "db-1", Region: "us-east-1", State: "available"},
	}})
	reg.set(model.KindInstance, "eu-west-1", &fakeDriver{resources: []model.Resource{
		{Kind: model.KindInstance, ID: "i-3", Region: "eu-west-1", State: "running"},
	}})

	o := New(reg, cancel.New(), discardLogger())

	got, err := o.DiscoverAll(t.Context(), []string{"us-east-1", "eu-west-1"}, []model.Kind{model.KindInstance, model.KindDatabase})

	require.NoError(t, err)
	assert.Len(t, got, 4)
}

func TestDiscoverAll_PartialFailureOmitsPairButSucceeds(t *testing.T) {
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", &fakeDriver{resources: []model.Resource{
		{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "running"},
	}})
	reg.set(model.KindDatabase, "us-east-1", &fakeDriver{enumErr: fmt.Errorf("throttled")})

	o := New(reg, cancel.New(), discardLogger())

	got, err := o.DiscoverAll(t.Context(), []string{"us-east-1"}, []model.Kind{model.KindInstance, model.KindDatabase})

	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestDiscoverAll_AllPairsFailReturnsError(t *testing.T) {
	reg := newFakeRegistry()
	reg.setErr(model.KindInstance, "us-east-1", fmt.Errorf("no credentials"))
	reg.setErr(model.KindDatabase, "us-east-1", fmt.Errorf("no credentials"))

	o := New(reg, cancel.New(), discardLogger())

	_, err := o.DiscoverAll(t.Context(), []string{"us-east-1"}, []model.Kind{model.KindInstance, model.KindDatabase})

	require.Error(t, err)
}

func TestPause_SkipsNonPausableAndCapturesOriginalStateBeforeMutation(t *testing.T) {
	running := model.Resource{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "running", Metadata: map[string]any{"a": 1}}
	stopped := model.Resource{Kind: model.KindInstance, ID: "i-2", Region: "us-east-1", State: "stopped"}

	fd := &fakeDriver{
		pauseFn: func(r model.Resource) model.OperationResult {
			// Mutate the driver's view of state post-call; the snapshot
			// must still reflect what was true before this ran.
			return model.OperationResult{Success: true, Resource: r, Op: model.OpPause, Message: "paused"}
		},
	}
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", fd)

	o := New(reg, cancel.New(), discardLogger())

	results, snap, err := o.Pause(t.Context(), []model.Resource{running, stopped})

	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[string]model.OperationResult{}
	for _, r := range results {
		byID[r.Resource.ID] = r
	}
	assert.True(t, byID["i-1"].Success)
	assert.False(t, byID["i-2"].Success)
	assert.Contains(t, byID["i-2"].Message, "not pausable")

	assert.Equal(t, "running", snap.OriginalStates[running.Key()].State)
	assert.Equal(t, 1, snap.OriginalStates[running.Key()].Metadata["a"])
	assert.Equal(t, "stopped", snap.OriginalStates[stopped.Key()].State)
	assert.Equal(t, 1, fd.pauseCalls)
}

func TestResume_ValidatesThenFansOutOverSnapshotResources(t *testing.T) {
	r := model.Resource{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "stopped"}
	fd := &fakeDriver{}
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", fd)

	o := New(reg, cancel.New(), discardLogger())

	snap := model.Snapshot{
		ID:             "pause-1",
		Resources:      []model.Resource{r},
		OriginalStates: map[string]model.OriginalState{r.Key(): {State: "stopped"}},
	}

	results, err := o.Resume(t.Context(), snap)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, model.OpResume, results[0].Op)
}

func TestResume_InvalidSnapshotFailsFast(t *testing.T) {
	o := New(newFakeRegistry(), cancel.New(), discardLogger())

	_, err := o.Resume(t.Context(), model.Snapshot{ID: "pause-1"})

	require.Error(t, err)
}

func TestFanOut_CancellationStopsSchedulingAndReturnsPartialResults(t *testing.T) {
	fd := &fakeDriver{}
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", fd)

	token := cancel.New()
	token.RequestCancel()
	o := New(reg, token, discardLogger())

	resources := []model.Resource{
		{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "running"},
		{Kind: model.KindInstance, ID: "i-2", Region: "us-east-1", State: "running"},
	}

	results := o.fanOut(t.Context(), resources, func(ctx context.Context, d driver.Driver, r model.Resource) model.OperationResult {
		return d.Pause(ctx, r)
	})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Contains(t, r.Message, "cancelled")
	}
	assert.Equal(t, 0, fd.pauseCalls, "a cancelled token must prevent any driver call from being scheduled")
}

func TestDiscoverAll_CancellationStopsSchedulingNewPairs(t *testing.T) {
	fd := &fakeDriver{resources: []model.Resource{{Kind: model.KindInstance, ID: "i-1", Region: "us-east-1", State: "running"}}}
	reg := newFakeRegistry()
	reg.set(model.KindInstance, "us-east-1", fd)
	reg.set(model.KindDatabase, "us-east-1", fd)

	token := cancel.New()
	token.RequestCancel()
	o := New(reg, token, discardLogger())

	got, err := o.DiscoverAll(t.Context(), []string{"us-east-1"}, []model.Kind{model.KindInstance, model.KindDatabase})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, fd.enumCalls, "a cancelled token must prevent any driver call from being scheduled")
}
