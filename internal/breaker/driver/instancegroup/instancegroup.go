// Package instancegroup implements the "instance-group" driver kind
// (Auto Scaling groups).
package instancegroup

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/awsutil"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

var scalingProcesses = []string{
	"Launch", "Terminate", "HealthCheck", "ReplaceUnhealthy",
	"AZRebalance", "AlarmNotification", "ScheduledActions", "AddToLoadBalancer",
}

const (
	capacityPollInterval = 30 * time.Second
	capacityMaxWait      = 10 * time.Minute
)

// Driver enumerates, pauses, and resumes Auto Scaling groups in one region.
type Driver struct {
	client *autoscaling.Client
	region string
}

// New builds a Driver bound to client for region.
func New(client *autoscaling.Client, region string) *Driver {
	return &Driver{client: client, region: region}
}

// Enumerate paginates all groups in the region, deriving state from
// desired capacity and the suspended-process set.
func (d *Driver) Enumerate(ctx context.Context) ([]model.Resource, error) {
	var out []model.Resource

	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(d.client, &autoscaling.DescribeAutoScalingGroupsInput{})
	for paginator.HasMorePages() {
		var page *autoscaling.DescribeAutoScalingGroupsOutput
		op := func(ctx context.Context) error {
			p, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			page = p
			return nil
		}
		if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "autoscaling.DescribeAutoScalingGroups", op); err != nil {
			return nil, breakerrors.WrapService("instancegroup.Enumerate", "region "+d.region, err)
		}

		for _, asg := range page.AutoScalingGroups {
			out = append(out, d.toResource(asg))
		}
	}

	return out, nil
}

func (d *Driver) toResource(asg types.AutoScalingGroup) model.Resource {
	tags := make(map[string]string, len(asg.Tags))
	for _, t := range asg.Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}

	suspended := make([]string, 0, len(asg.SuspendedProcesses))
	for _, p := range asg.SuspendedProcesses {
		suspended = append(suspended, aws.ToString(p.ProcessName))
	}

	desired := aws.ToInt32(asg.DesiredCapacity)
	isSuspended := len(suspended) > 0

	var state string
	switch {
	case isSuspended && desired == 0:
		state = "paused"
	case isSuspended:
		state = "suspended"
	case desired == 0:
		state = "stopped"
	case desired > 0:
		state = "running"
	default:
		state = "unknown"
	}

	instances := make([]map[string]any, 0, len(asg.Instances))
	for _, inst := range asg.Instances {
		instances = append(instances, map[string]any{
			"instance_id":     aws.ToString(inst.InstanceId),
			"lifecycle_state": string(inst.LifecycleState),
			"health_status":   aws.ToString(inst.HealthStatus),
		})
	}

	metadata := map[string]any{
		"desired_capacity":    desired,
		"min_size":            aws.ToInt32(asg.MinSize),
		"max_size":            aws.ToInt32(asg.MaxSize),
		"availability_zones":  asg.AvailabilityZones,
		"vpc_zone_identifier": aws.ToString(asg.VPCZoneIdentifier),
		"suspended_processes": suspended,
		"instances":           instances,
		"target_group_arns":   asg.TargetGroupARNs,
		"load_balancer_names": asg.LoadBalancerNames,
	}
	if asg.LaunchConfigurationName != nil {
		metadata["launch_configuration_name"] = aws.ToString(asg.LaunchConfigurationName)
	}
	if asg.LaunchTemplate != nil {
		metadata["launch_template"] = aws.ToString(asg.LaunchTemplate.LaunchTemplateId)
	}
	if asg.MixedInstancesPolicy != nil {
		metadata["mixed_instances_policy"] = true
	}

	return model.Resource{
		Kind:     model.KindInstanceGroup,
		ID:       aws.ToString(asg.AutoScalingGroupName),
		Region:   d.region,
		State:    state,
		Tags:     tags,
		Metadata: metadata,
	}
}

// Pausable reports whether r is running (unsuspended, positive
// capacity) or already process-suspended but still at nonzero capacity.
func (d *Driver) Pausable(r model.Resource) bool {
	return r.State == "running" || r.State == "suspended"
}

// Resumable reports whether r is in any non-fully-running state.
func (d *Driver) Resumable(r model.Resource) bool {
	return r.State == "stopped" || r.State == "paused" || r.State == "suspended"
}

// Pause suspends the full scaling process set, sets desired capacity to
// zero ignoring cooldowns, then polls every 30s up to 10 minutes for the
// in-service instance count to reach zero.
func (d *Driver) Pause(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if r.State == "paused" {
		return fail(r, model.OpPause, start, fmt.Sprintf("auto scaling group %s is already paused", r.ID))
	}
	if !d.Pausable(r) {
		return fail(r, model.OpPause, start, fmt.Sprintf("auto scaling group %s cannot be paused (current state: %s)", r.ID, r.State))
	}

	suspendOp := func(ctx context.Context) error {
		_, err := d.client.SuspendProcesses(ctx, &autoscaling.SuspendProcessesInput{
			AutoScalingGroupName: &r.ID,
			ScalingProcesses:     scalingProcesses,
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "autoscaling.SuspendProcesses", suspendOp); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("failed to suspend processes for %s: %v", r.ID, err))
	}

	var zero int32
	capacityOp := func(ctx context.Context) error {
		_, err := d.client.SetDesiredCapacity(ctx, &autoscaling.SetDesiredCapacityInput{
			AutoScalingGroupName: &r.ID,
			DesiredCapacity:      &zero,
			HonorCooldown:        aws.Bool(false),
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "autoscaling.SetDesiredCapacity", capacityOp); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("failed to set desired capacity for %s: %v", r.ID, err))
	}

	if err := d.waitForCapacity(ctx, r.ID, 0); err != nil {
		return fail(r, model.OpPause, start, err.Error())
	}

	return succeed(r, model.OpPause, start, fmt.Sprintf("successfully paused auto scaling group %s", r.ID))
}

// Resume resumes the scaling process set and restores the snapshot-time
// desired capacity, then waits for in-service count to match.
func (d *Driver) Resume(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if r.State == "running" {
		return fail(r, model.OpResume, start, fmt.Sprintf("auto scaling group %s is already running", r.ID))
	}
	if !d.Resumable(r) {
		return fail(r, model.OpResume, start, fmt.Sprintf("auto scaling group %s cannot be resumed (current state: %s)", r.ID, r.State))
	}

	desired, ok := r.Metadata["desired_capacity"].(int32)
	if !ok {
		desired = 1
	}

	resumeOp := func(ctx context.Context) error {
		_, err := d.client.ResumeProcesses(ctx, &autoscaling.ResumeProcessesInput{
			AutoScalingGroupName: &r.ID,
			ScalingProcesses:     scalingProcesses,
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "autoscaling.ResumeProcesses", resumeOp); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("failed to resume processes for %s: %v", r.ID, err))
	}

	capacityOp := func(ctx context.Context) error {
		_, err := d.client.SetDesiredCapacity(ctx, &autoscaling.SetDesiredCapacityInput{
			AutoScalingGroupName: &r.ID,
			DesiredCapacity:      &desired,
			HonorCooldown:        aws.Bool(false),
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "autoscaling.SetDesiredCapacity", capacityOp); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("failed to restore desired capacity for %s: %v", r.ID, err))
	}

	if err := d.waitForCapacity(ctx, r.ID, desired); err != nil {
		return fail(r, model.OpResume, start, err.Error())
	}

	return succeed(r, model.OpResume, start, fmt.Sprintf("successfully resumed auto scaling group %s with %d instances", r.ID, desired))
}

// waitForCapacity polls every 30s, up to 10 minutes, until the group's
// in-service instance count equals target. No AWS SDK waiter exists for
// this condition, so it is hand-rolled.
func (d *Driver) waitForCapacity(ctx context.Context, name string, target int32) error {
	deadline := time.Now().Add(capacityMaxWait)

	for {
		out, err := d.client.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
			AutoScalingGroupNames: []string{name},
		})
		if err == nil && len(out.AutoScalingGroups) > 0 {
			var inService int32
			for _, inst := range out.AutoScalingGroups[0].Instances {
				if inst.LifecycleState == types.LifecycleStateInService {
					inService++
				}
			}
			if inService == target {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for auto scaling group %s to reach capacity %d", name, target)
		}

		select {
		case <-time.After(capacityPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func succeed(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: true, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}

func fail(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: false, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}
