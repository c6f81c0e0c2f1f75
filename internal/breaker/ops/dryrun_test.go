package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func TestDryRunPause(t *testing.T) {
	resources := []model.Resource{
		resource(model.KindInstance, "i-1", "us-east-1", nil),
		resource(model.KindDatabase, "db-1", "us-east-1", nil),
	}

	results := DryRunPause(resources)

	require := assert.New(t)
	require.Len(results, 2)
	for i, r := range results {
		require.True(r.Success)
		require.Equal(model.OpPause, r.Op)
		require.Equal(resources[i].ID, r.Resource.ID)
		require.Contains(r.Message, "[DRY RUN] Would pause")
	}
}

func TestDryRunResume(t *testing.T) {
	resources := []model.Resource{resource(model.KindInstance, "i-1", "us-east-1", nil)}

	results := DryRunResume(resources)

	assert.Len(t, results, 1)
	assert.Equal(t, model.OpResume, results[0].Op)
	assert.Contains(t, results[0].Message, "[DRY RUN] Would resume")
}
