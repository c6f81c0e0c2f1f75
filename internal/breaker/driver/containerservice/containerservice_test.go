package containerservice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func TestDriver_Pausable(t *testing.T) {
	d := New(nil, "us-east-1")

	tests := []struct {
		state string
		want  bool
	}{
		{"running", true},
		{"scaling_up", true},
		{"scaling_down", true},
		{"stopped", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Pausable(model.Resource{State: tt.state}), tt.state)
	}
}

func TestDriver_Resumable(t *testing.T) {
	d := New(nil, "us-east-1")

	running := model.Resource{State: "running", Metadata: map[string]any{"desired_count": int32(2)}}
	assert.False(t, d.Resumable(running))

	stopped := model.Resource{State: "stopped", Metadata: map[string]any{"desired_count": int32(0)}}
	assert.True(t, d.Resumable(stopped))

	runningNoDesired := model.Resource{State: "running"}
	assert.True(t, d.Resumable(runningNoDesired))
}
