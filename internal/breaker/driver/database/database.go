// Package database implements the "database" driver kind, covering
// both RDS instances and Aurora clusters.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/awsutil"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

const (
	resourceTypeInstance = "db_instance"
	resourceTypeCluster  = "db_cluster"

	waiterDelay   = 30 * time.Second
	waiterMaxWait = 30 * time.Minute
)

// Driver enumerates, pauses, and resumes RDS instances and clusters in
// one region.
type Driver struct {
	client *rds.Client
	region string
}

// New builds a Driver bound to client for region.
func New(client *rds.Client, region string) *Driver {
	return &Driver{client: client, region: region}
}

// Enumerate makes two passes: DB instances, then DB clusters, skipping
// rows whose status is "deleting". A per-resource tag lookup failure
// does not fail enumeration; the resource is reported with empty tags.
func (d *Driver) Enumerate(ctx context.Context) ([]model.Resource, error) {
	var out []model.Resource

	instances, err := d.enumerateInstances(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, instances...)

	clusters, err := d.enumerateClusters(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, clusters...)

	return out, nil
}

func (d *Driver) enumerateInstances(ctx context.Context) ([]model.Resource, error) {
	var out []model.Resource

	paginator := rds.NewDescribeDBInstancesPaginator(d.client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		var page *rds.DescribeDBInstancesOutput
		op := func(ctx context.Context) error {
			p, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			page = p
			return nil
		}
		if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.DescribeDBInstances", op); err != nil {
			return nil, breakerrors.WrapService("database.Enumerate", "region "+d.region, err)
		}

		for _, inst := range page.DBInstances {
			if aws.ToString(inst.DBInstanceStatus) == "deleting" {
				continue
			}
			out = append(out, d.instanceToResource(ctx, inst))
		}
	}

	return out, nil
}

func (d *Driver) instanceToResource(ctx context.Context, inst types.DBInstance) model.Resource {
	sgIDs := make([]string, 0, len(inst.VpcSecurityGroups))
	for _, sg := range inst.VpcSecurityGroups {
		sgIDs = append(sgIDs, aws.ToString(sg.VpcSecurityGroupId))
	}

	var subnetGroup string
	if inst.DBSubnetGroup != nil {
		subnetGroup = aws.ToString(inst.DBSubnetGroup.DBSubnetGroupName)
	}

	metadata := map[string]any{
		"engine":              aws.ToString(inst.Engine),
		"engine_version":      aws.ToString(inst.EngineVersion),
		"instance_class":      aws.ToString(inst.DBInstanceClass),
		"storage_type":        aws.ToString(inst.StorageType),
		"multi_az":            aws.ToBool(inst.MultiAZ),
		"vpc_security_groups": sgIDs,
		"db_subnet_group":     subnetGroup,
		"resource_type":       resourceTypeInstance,
	}
	if inst.AllocatedStorage != nil {
		metadata["allocated_storage"] = aws.ToInt32(inst.AllocatedStorage)
	}
	if inst.AvailabilityZone != nil {
		metadata["availability_zone"] = aws.ToString(inst.AvailabilityZone)
	}

	return model.Resource{
		Kind:     model.KindDatabase,
		ID:       aws.ToString(inst.DBInstanceIdentifier),
		Region:   d.region,
		State:    aws.ToString(inst.DBInstanceStatus),
		Tags:     d.lookupTags(ctx, aws.ToString(inst.DBInstanceArn)),
		Metadata: metadata,
	}
}

func (d *Driver) enumerateClusters(ctx context.Context) ([]model.Resource, error) {
	var out []model.Resource

	paginator := rds.NewDescribeDBClustersPaginator(d.client, &rds.DescribeDBClustersInput{})
	for paginator.HasMorePages() {
		var page *rds.DescribeDBClustersOutput
		op := func(ctx context.Context) error {
			p, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			page = p
			return nil
		}
		if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.DescribeDBClusters", op); err != nil {
			return nil, breakerrors.WrapService("database.Enumerate", "region "+d.region, err)
		}

		for _, cl := range page.DBClusters {
			if aws.ToString(cl.Status) == "deleting" {
				continue
			}
			out = append(out, d.clusterToResource(ctx, cl))
		}
	}

	return out, nil
}

func (d *Driver) clusterToResource(ctx context.Context, cl types.DBCluster) model.Resource {
	members := make([]string, 0, len(cl.DBClusterMembers))
	for _, m := range cl.DBClusterMembers {
		members = append(members, aws.ToString(m.DBInstanceIdentifier))
	}
	sgIDs := make([]string, 0, len(cl.VpcSecurityGroups))
	for _, sg := range cl.VpcSecurityGroups {
		sgIDs = append(sgIDs, aws.ToString(sg.VpcSecurityGroupId))
	}

	metadata := map[string]any{
		"engine":              aws.ToString(cl.Engine),
		"engine_version":      aws.ToString(cl.EngineVersion),
		"cluster_members":     members,
		"multi_az":            aws.ToBool(cl.MultiAZ),
		"availability_zones":  cl.AvailabilityZones,
		"vpc_security_groups": sgIDs,
		"db_subnet_group":     aws.ToString(cl.DBSubnetGroup),
		"resource_type":       resourceTypeCluster,
	}

	return model.Resource{
		Kind:     model.KindDatabase,
		ID:       aws.ToString(cl.DBClusterIdentifier),
		Region:   d.region,
		State:    aws.ToString(cl.Status),
		Tags:     d.lookupTags(ctx, aws.ToString(cl.DBClusterArn)),
		Metadata: metadata,
	}
}

// lookupTags fetches the tag set for arn, best-effort; a failure
// returns an empty (non-nil) map rather than an error.
func (d *Driver) lookupTags(ctx context.Context, arn string) map[string]string {
	tags := map[string]string{}
	out, err := d.client.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{ResourceName: &arn})
	if err != nil {
		return tags
	}
	for _, t := range out.TagList {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags
}

// Pausable reports whether r is available (the only stoppable state).
func (d *Driver) Pausable(r model.Resource) bool {
	return r.State == "available"
}

// Resumable reports whether r is stopped.
func (d *Driver) Resumable(r model.Resource) bool {
	return r.State == "stopped"
}

func resourceType(r model.Resource) string {
	t, _ := r.Metadata["resource_type"].(string)
	return t
}

// Pause stops the RDS instance or cluster, then blocks on a
// convergence waiter polling every 30s up to 30 minutes.
func (d *Driver) Pause(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if !d.Pausable(r) {
		return fail(r, model.OpPause, start, fmt.Sprintf("database %s cannot be stopped (current state: %s)", r.ID, r.State))
	}

	switch resourceType(r) {
	case resourceTypeInstance:
		return d.pauseInstance(ctx, r, start)
	case resourceTypeCluster:
		return d.pauseCluster(ctx, r, start)
	default:
		return fail(r, model.OpPause, start, fmt.Sprintf("unknown database resource type for %s", r.ID))
	}
}

func (d *Driver) pauseInstance(ctx context.Context, r model.Resource, start time.Time) model.OperationResult {
	op := func(ctx context.Context) error {
		_, err := d.client.StopDBInstance(ctx, &rds.StopDBInstanceInput{DBInstanceIdentifier: &r.ID})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.StopDBInstance", op); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("failed to stop DB instance %s: %v", r.ID, err))
	}

	waiter := rds.NewDBInstanceStoppedWaiter(d.client, func(o *rds.DBInstanceStoppedWaiterOptions) {
		o.MinDelay = waiterDelay
		o.MaxDelay = waiterDelay
	})
	if err := waiter.Wait(ctx, &rds.DescribeDBInstancesInput{DBInstanceIdentifier: &r.ID}, waiterMaxWait); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("DB instance %s did not reach stopped: %v", r.ID, err))
	}

	return succeed(r, model.OpPause, start, fmt.Sprintf("successfully stopped RDS instance %s", r.ID))
}

func (d *Driver) pauseCluster(ctx context.Context, r model.Resource, start time.Time) model.OperationResult {
	op := func(ctx context.Context) error {
		_, err := d.client.StopDBCluster(ctx, &rds.StopDBClusterInput{DBClusterIdentifier: &r.ID})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.StopDBCluster", op); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("failed to stop DB cluster %s: %v", r.ID, err))
	}

	waiter := rds.NewDBClusterStoppedWaiter(d.client, func(o *rds.DBClusterStoppedWaiterOptions) {
		o.MinDelay = waiterDelay
		o.MaxDelay = waiterDelay
	})
	if err := waiter.Wait(ctx, &rds.DescribeDBClustersInput{DBClusterIdentifier: &r.ID}, waiterMaxWait); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("DB cluster %s did not reach stopped: %v", r.ID, err))
	}

	return succeed(r, model.OpPause, start, fmt.Sprintf("successfully stopped RDS cluster %s", r.ID))
}

// Resume starts the RDS instance or cluster, then waits for available.
func (d *Driver) Resume(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if !d.Resumable(r) {
		return fail(r, model.OpResume, start, fmt.Sprintf("database %s cannot be started (current state: %s)", r.ID, r.State))
	}

	switch resourceType(r) {
	case resourceTypeInstance:
		return d.resumeInstance(ctx, r, start)
	case resourceTypeCluster:
		return d.resumeCluster(ctx, r, start)
	default:
		return fail(r, model.OpResume, start, fmt.Sprintf("unknown database resource type for %s", r.ID))
	}
}

func (d *Driver) resumeInstance(ctx context.Context, r model.Resource, start time.Time) model.OperationResult {
	op := func(ctx context.Context) error {
		_, err := d.client.StartDBInstance(ctx, &rds.StartDBInstanceInput{DBInstanceIdentifier: &r.ID})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.StartDBInstance", op); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("failed to start DB instance %s: %v", r.ID, err))
	}

	waiter := rds.NewDBInstanceAvailableWaiter(d.client, func(o *rds.DBInstanceAvailableWaiterOptions) {
		o.MinDelay = waiterDelay
		o.MaxDelay = waiterDelay
	})
	if err := waiter.Wait(ctx, &rds.DescribeDBInstancesInput{DBInstanceIdentifier: &r.ID}, waiterMaxWait); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("DB instance %s did not reach available: %v", r.ID, err))
	}

	return succeed(r, model.OpResume, start, fmt.Sprintf("successfully started RDS instance %s", r.ID))
}

func (d *Driver) resumeCluster(ctx context.Context, r model.Resource, start time.Time) model.OperationResult {
	op := func(ctx context.Context) error {
		_, err := d.client.StartDBCluster(ctx, &rds.StartDBClusterInput{DBClusterIdentifier: &r.ID})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "rds.StartDBCluster", op); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("failed to start DB cluster %s: %v", r.ID, err))
	}

	waiter := rds.NewDBClusterAvailableWaiter(d.client, func(o *rds.DBClusterAvailableWaiterOptions) {
		o.MinDelay = waiterDelay
		o.MaxDelay = waiterDelay
	})
	if err := waiter.Wait(ctx, &rds.DescribeDBClustersInput{DBClusterIdentifier: &r.ID}, waiterMaxWait); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("DB cluster %s did not reach available: %v", r.ID, err))
	}

	return succeed(r, model.OpResume, start, fmt.Sprintf("successfully started RDS cluster %s", r.ID))
}

func succeed(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: true, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}

func fail(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: false, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}
