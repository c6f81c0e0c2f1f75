package instance

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

func TestToResource(t *testing.T) {
	launch := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inst := types.Instance{
		InstanceId:       aws.String("i-1234"),
		InstanceType:     types.InstanceTypeT3Micro,
		State:            &types.InstanceState{Name: types.InstanceStateNameRunning},
		LaunchTime:       &launch,
		PlatformDetails:  aws.String(""),
		Placement:        &types.Placement{AvailabilityZone: aws.String("us-east-1a")},
		VpcId:            aws.String("vpc-1"),
		SubnetId:         aws.String("subnet-1"),
		PrivateIpAddress: aws.String("10.0.0.1"),
		Tags: []types.Tag{
			{Key: aws.String("env"), Value: aws.String("prod")},
		},
	}

	r := toResource(inst, "us-east-1")

	assert.Equal(t, model.KindInstance, r.Kind)
	assert.Equal(t, "i-1234", r.ID)
	assert.Equal(t, "us-east-1", r.Region)
	assert.Equal(t, "running", r.State)
	assert.Equal(t, "prod", r.Tags["env"])
	assert.Equal(t, "linux", r.Metadata["platform"])
	assert.Equal(t, "us-east-1a", r.Metadata["availability_zone"])
	assert.Equal(t, "vpc-1", r.Metadata["vpc_id"])
}

func TestDriver_Pausable(t *testing.T) {
	d := New(nil, "us-east-1")

	assert.True(t, d.Pausable(model.Resource{State: "running"}))
	assert.False(t, d.Pausable(model.Resource{State: "stopped"}))
}

func TestDriver_Resumable(t *testing.T) {
	d := New(nil, "us-east-1")

	assert.True(t, d.Resumable(model.Resource{State: "stopped"}))
	assert.True(t, d.Resumable(model.Resource{State: "stopping"}))
	assert.False(t, d.Resumable(model.Resource{State: "running"}))
}
