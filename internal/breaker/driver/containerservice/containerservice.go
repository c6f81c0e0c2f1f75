// Package containerservice implements the "container-service" driver
// kind (ECS services).
package containerservice

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/awsutil"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

const (
	stableDelay   = 15 * time.Second
	stableMaxWait = 10 * time.Minute
)

// Driver enumerates, pauses, and resumes ECS services in one region.
type Driver struct {
	client *ecs.Client
	region string
}

// New builds a Driver bound to client for region.
func New(client *ecs.Client, region string) *Driver {
	return &Driver{client: client, region: region}
}

// Enumerate lists clusters (ACTIVE only), then services per cluster
// (ACTIVE only), deriving state from desired vs running count.
func (d *Driver) Enumerate(ctx context.Context) ([]model.Resource, error) {
	var clustersOut *ecs.ListClustersOutput
	listOp := func(ctx context.Context) error {
		out, err := d.client.ListClusters(ctx, &ecs.ListClustersInput{})
		if err != nil {
			return err
		}
		clustersOut = out
		return nil
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.ListClusters", listOp); err != nil {
		return nil, breakerrors.WrapService("containerservice.Enumerate", "region "+d.region, err)
	}
	if len(clustersOut.ClusterArns) == 0 {
		return nil, nil
	}

	var describeOut *ecs.DescribeClustersOutput
	describeOp := func(ctx context.Context) error {
		out, err := d.client.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: clustersOut.ClusterArns})
		if err != nil {
			return err
		}
		describeOut = out
		return nil
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.DescribeClusters", describeOp); err != nil {
		return nil, breakerrors.WrapService("containerservice.Enumerate", "region "+d.region, err)
	}

	var out []model.Resource
	for _, cluster := range describeOut.Clusters {
		if aws.ToString(cluster.Status) != "ACTIVE" {
			continue
		}
		resources, err := d.enumerateServices(ctx, cluster)
		if err != nil {
			return nil, err
		}
		out = append(out, resources...)
	}
	return out, nil
}

func (d *Driver) enumerateServices(ctx context.Context, cluster types.Cluster) ([]model.Resource, error) {
	clusterArn := aws.ToString(cluster.ClusterArn)

	var serviceArns []string
	paginator := ecs.NewListServicesPaginator(d.client, &ecs.ListServicesInput{Cluster: &clusterArn})
	for paginator.HasMorePages() {
		var page *ecs.ListServicesOutput
		op := func(ctx context.Context) error {
			p, err := paginator.NextPage(ctx)
			if err != nil {
				return err
			}
			page = p
			return nil
		}
		if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.ListServices", op); err != nil {
			return nil, breakerrors.WrapService("containerservice.Enumerate", "cluster "+clusterArn, err)
		}
		serviceArns = append(serviceArns, page.ServiceArns...)
	}
	if len(serviceArns) == 0 {
		return nil, nil
	}

	var out []model.Resource
	// DescribeServices accepts at most 10 services per call.
	for i := 0; i < len(serviceArns); i += 10 {
		end := min(i+10, len(serviceArns))
		batch := serviceArns[i:end]

		var describeOut *ecs.DescribeServicesOutput
		op := func(ctx context.Context) error {
			o, err := d.client.DescribeServices(ctx, &ecs.DescribeServicesInput{Cluster: &clusterArn, Services: batch})
			if err != nil {
				return err
			}
			describeOut = o
			return nil
		}
		if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.DescribeServices", op); err != nil {
			return nil, breakerrors.WrapService("containerservice.Enumerate", "cluster "+clusterArn, err)
		}

		for _, svc := range describeOut.Services {
			if aws.ToString(svc.Status) != "ACTIVE" {
				continue
			}
			out = append(out, d.toResource(ctx, cluster, svc))
		}
	}
	return out, nil
}

func (d *Driver) toResource(ctx context.Context, cluster types.Cluster, svc types.Service) model.Resource {
	desired := svc.DesiredCount
	running := svc.RunningCount

	var state string
	switch {
	case desired == 0:
		state = "stopped"
	case running == desired:
		state = "running"
	case running < desired:
		state = "scaling_up"
	default:
		state = "scaling_down"
	}

	launchType := string(svc.LaunchType)
	if launchType == "" {
		launchType = "EC2"
	}

	metadata := map[string]any{
		"cluster_name":       aws.ToString(cluster.ClusterName),
		"cluster_arn":        aws.ToString(cluster.ClusterArn),
		"service_arn":        aws.ToString(svc.ServiceArn),
		"task_definition":    aws.ToString(svc.TaskDefinition),
		"desired_count":      desired,
		"running_count":      running,
		"pending_count":      svc.PendingCount,
		"launch_type":        launchType,
		"network_config":     svc.NetworkConfiguration,
		"load_balancers":     svc.LoadBalancers,
		"service_registries": svc.ServiceRegistries,
	}

	return model.Resource{
		Kind:     model.KindContainerService,
		ID:       aws.ToString(svc.ServiceName),
		Region:   d.region,
		State:    state,
		Tags:     d.lookupTags(ctx, aws.ToString(svc.ServiceArn)),
		Metadata: metadata,
	}
}

func (d *Driver) lookupTags(ctx context.Context, arn string) map[string]string {
	tags := map[string]string{}
	out, err := d.client.ListTagsForResource(ctx, &ecs.ListTagsForResourceInput{ResourceArn: &arn})
	if err != nil {
		return tags
	}
	for _, t := range out.Tags {
		tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
	}
	return tags
}

// Pausable reports whether r is actively running at any scale.
func (d *Driver) Pausable(r model.Resource) bool {
	return r.State == "running" || r.State == "scaling_up" || r.State == "scaling_down"
}

// Resumable reports whether r is not already running at its recorded
// desired count.
func (d *Driver) Resumable(r model.Resource) bool {
	desired, _ := r.Metadata["desired_count"].(int32)
	return !(r.State == "running" && desired > 0)
}

// Pause scales the service's desired count to zero and waits for stable.
func (d *Driver) Pause(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if !d.Pausable(r) {
		return fail(r, model.OpPause, start, fmt.Sprintf("ECS service %s is already stopped", r.ID))
	}

	clusterArn, _ := r.Metadata["cluster_arn"].(string)
	var zero int32

	op := func(ctx context.Context) error {
		_, err := d.client.UpdateService(ctx, &ecs.UpdateServiceInput{
			Cluster:      &clusterArn,
			Service:      &r.ID,
			DesiredCount: &zero,
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.UpdateService", op); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("failed to pause ECS service %s: %v", r.ID, err))
	}

	if err := d.waitForStable(ctx, clusterArn, r.ID); err != nil {
		return fail(r, model.OpPause, start, fmt.Sprintf("ECS service %s did not reach stable: %v", r.ID, err))
	}

	return succeed(r, model.OpPause, start, fmt.Sprintf("successfully scaled ECS service %s to 0 tasks", r.ID))
}

// Resume scales the service back to its snapshot-time desired count.
func (d *Driver) Resume(ctx context.Context, r model.Resource) model.OperationResult {
	start := time.Now()

	if !d.Resumable(r) {
		return fail(r, model.OpResume, start, fmt.Sprintf("ECS service %s is already running", r.ID))
	}

	clusterArn, _ := r.Metadata["cluster_arn"].(string)
	desired, ok := r.Metadata["desired_count"].(int32)
	if !ok {
		desired = 1
	}

	op := func(ctx context.Context) error {
		_, err := d.client.UpdateService(ctx, &ecs.UpdateServiceInput{
			Cluster:      &clusterArn,
			Service:      &r.ID,
			DesiredCount: &desired,
		})
		return err
	}
	if err := awsutil.Do(ctx, awsutil.DefaultRetryConfig(), "ecs.UpdateService", op); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("failed to resume ECS service %s: %v", r.ID, err))
	}

	if err := d.waitForStable(ctx, clusterArn, r.ID); err != nil {
		return fail(r, model.OpResume, start, fmt.Sprintf("ECS service %s did not reach stable: %v", r.ID, err))
	}

	return succeed(r, model.OpResume, start, fmt.Sprintf("successfully scaled ECS service %s to %d tasks", r.ID, desired))
}

func (d *Driver) waitForStable(ctx context.Context, clusterArn, serviceName string) error {
	waiter := ecs.NewServicesStableWaiter(d.client, func(o *ecs.ServicesStableWaiterOptions) {
		o.MinDelay = stableDelay
		o.MaxDelay = stableDelay
	})
	return waiter.Wait(ctx, &ecs.DescribeServicesInput{Cluster: &clusterArn, Services: []string{serviceName}}, stableMaxWait)
}

func succeed(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: true, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}

func fail(r model.Resource, op model.Op, start time.Time, msg string) model.OperationResult {
	d := time.Since(start).Seconds()
	return model.OperationResult{Success: false, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC(), DurationSeconds: &d}
}
