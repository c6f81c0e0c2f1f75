package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func TestDriver_PausableResumable(t *testing.T) {
	d := New(nil, "us-east-1")

	assert.True(t, d.Pausable(model.Resource{State: "available"}))
	assert.False(t, d.Pausable(model.Resource{State: "stopped"}))

	assert.True(t, d.Resumable(model.Resource{State: "stopped"}))
	assert.False(t, d.Resumable(model.Resource{State: "available"}))
}

func TestResourceType(t *testing.T) {
	assert.Equal(t, resourceTypeInstance, resourceType(model.Resource{Metadata: map[string]any{"resource_type": "db_instance"}}))
	assert.Equal(t, resourceTypeCluster, resourceType(model.Resource{Metadata: map[string]any{"resource_type": "db_cluster"}}))
	assert.Equal(t, "", resourceType(model.Resource{}))
}
