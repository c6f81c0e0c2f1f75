// Package orchestrator fans work out across regions, kinds, and
// resources using bounded worker pools, built on
// golang.org/x/sync/errgroup so pool limits and first-error semantics
// come from the library instead of hand-rolled counters.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/cancel"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

const (
	enumerateWorkerLimit = 10
	mutateWorkerLimit    = 5
)

// registryLookup is the subset of *driver.Registry's API the
// orchestrator depends on, narrowed to an interface so tests can
// substitute a fake driver registry without a live AWS session.
type registryLookup interface {
	Get(ctx context.Context, kind model.Kind, region string) (driver.Driver, error)
}

// Orchestrator coordinates discovery, pause, and resume across the
// driver registry, polling a shared cancellation token between units
// of work.
type Orchestrator struct {
	registry registryLookup
	cancel   *cancel.Token
	logger   *slog.Logger
}

// New builds an Orchestrator. logger is threaded explicitly, never a
// package-global.
func New(registry registryLookup, token *cancel.Token, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{registry: registry, cancel: token, logger: logger}
}

type discoverPair struct {
	region string
	kind   model.Kind
}

// DiscoverAll enumerates every (region, kind) pair on a worker pool
// bounded to 10. A per-pair failure produces a warning log and omits
// that pair's resources rather than failing the whole call, unless
// every pair fails, in which case a service-kind error is returned.
func (o *Orchestrator) DiscoverAll(ctx context.Context, regions []string, kinds []model.Kind) ([]model.Resource, error) {
	if len(kinds) == 0 {
		kinds = driver.AllKinds()
	}

	var pairs []discoverPair
	for _, region := range regions {
		for _, kind := range kinds {
			pairs = append(pairs, discoverPair{region: region, kind: kind})
		}
	}

	var (
		mu        sync.Mutex
		resources []model.Resource
		failures  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enumerateWorkerLimit)

	for _, pair := range pairs {
		pair := pair

		if o.cancel.IsCancelled() {
			break
		}

		g.Go(func() error {
			if o.cancel.IsCancelled() {
				return nil
			}

			d, err := o.registry.Get(gctx, pair.kind, pair.region)
			if err != nil {
				o.logger.Warn("driver unavailable for pair", "region", pair.region, "kind", pair.kind, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}

			found, err := d.Enumerate(gctx)
			if err != nil {
				o.logger.Warn("enumeration failed for pair", "region", pair.region, "kind", pair.kind, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			resources = append(resources, found...)
			mu.Unlock()
			return nil
		})
	}

	// errgroup's Go never returns a non-nil error above; Wait only
	// surfaces ctx cancellation from gctx.
	_ = g.Wait()

	if len(pairs) > 0 && failures == len(pairs) {
		return nil, breakerrors.Servicef("orchestrator.DiscoverAll", nil, "discovery failed for all %d region/kind pairs", len(pairs))
	}

	return resources, nil
}

// Pause freezes original state for every resource serially, then fans
// the mutation out across a worker pool bounded to 5. The snapshot is
// assembled and returned even if every pause failed.
func (o *Orchestrator) Pause(ctx context.Context, resources []model.Resource) ([]model.OperationResult, model.Snapshot, error) {
	originalStates := make(map[string]model.OriginalState, len(resources))
	for _, r := range resources {
		metadataCopy := make(map[string]any, len(r.Metadata))
		for k, v := range r.Metadata {
			metadataCopy[k] = v
		}
		originalStates[r.Key()] = model.OriginalState{State: r.State, Metadata: metadataCopy}
	}

	results := o.fanOut(ctx, resources, func(ctx context.Context, d driver.Driver, r model.Resource) model.OperationResult {
		if !d.Pausable(r) {
			return skippedResult(r, model.OpPause, fmt.Sprintf("%s %s is not pausable (current state: %s)", r.Kind, r.ID, r.State))
		}
		return d.Pause(ctx, r)
	})

	snapshot := model.Snapshot{
		ID:                      snapshotID(),
		Timestamp:               time.Now().UTC(),
		Resources:               resources,
		OriginalStates:          originalStates,
		OperationResults:        results,
		EstimatedMonthlySavings: estimatedMonthlySavings(resources),
	}

	return results, snapshot, nil
}

// Resume validates the snapshot, then fans the mutation out across a
// worker pool bounded to 5. It does not mutate the snapshot.
func (o *Orchestrator) Resume(ctx context.Context, snapshot model.Snapshot) ([]model.OperationResult, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return nil, err
	}

	results := o.fanOut(ctx, snapshot.Resources, func(ctx context.Context, d driver.Driver, r model.Resource) model.OperationResult {
		if !d.Resumable(r) {
			return skippedResult(r, model.OpResume, fmt.Sprintf("%s %s is not resumable (current state: %s)", r.Kind, r.ID, r.State))
		}
		return d.Resume(ctx, r)
	})

	return results, nil
}

func validateSnapshot(snapshot model.Snapshot) error {
	if len(snapshot.Resources) == 0 {
		return breakerrors.Statef("orchestrator.Resume", nil, "snapshot %s has no resources", snapshot.ID)
	}
	if len(snapshot.OriginalStates) == 0 {
		return breakerrors.Statef("orchestrator.Resume", nil, "snapshot %s has no original states", snapshot.ID)
	}
	for _, r := range snapshot.Resources {
		if _, ok := snapshot.OriginalStates[r.Key()]; !ok {
			return breakerrors.Statef("orchestrator.Resume", nil, "snapshot %s is missing original state for %s", snapshot.ID, r.Key())
		}
	}
	return nil
}

// fanOut schedules one unit of work per resource on a worker pool
// bounded to mutateWorkerLimit, polling the cancellation token before
// scheduling each unit and after each completion.
func (o *Orchestrator) fanOut(ctx context.Context, resources []model.Resource, work func(ctx context.Context, d driver.Driver, r model.Resource) model.OperationResult) []model.OperationResult {
	results := make([]model.OperationResult, len(resources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mutateWorkerLimit)

	for i, r := range resources {
		i, r := i, r

		if o.cancel.IsCancelled() {
			results[i] = cancelledResult(r)
			continue
		}

		g.Go(func() error {
			d, err := o.registry.Get(gctx, r.Kind, r.Region)
			if err != nil {
				results[i] = failedResult(r, err)
				return nil
			}

			results[i] = work(gctx, d, r)

			if o.cancel.IsCancelled() {
				o.logger.Debug("cancellation observed after unit completion", "resource", r.Key())
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func skippedResult(r model.Resource, op model.Op, msg string) model.OperationResult {
	return model.OperationResult{Success: false, Resource: r, Op: op, Message: msg, Timestamp: time.Now().UTC()}
}

func failedResult(r model.Resource, err error) model.OperationResult {
	return model.OperationResult{Success: false, Resource: r, Message: err.Error(), Timestamp: time.Now().UTC()}
}

func cancelledResult(r model.Resource) model.OperationResult {
	return model.OperationResult{Success: false, Resource: r, Message: breakerrors.Cancelled("orchestrator.fanOut").Error(), Timestamp: time.Now().UTC()}
}

func estimatedMonthlySavings(resources []model.Resource) float64 {
	var total float64
	for _, r := range resources {
		if r.CostHint != nil {
			total += *r.CostHint * 24 * 30
		}
	}
	return total
}

var (
	snapshotIDMu   sync.Mutex
	lastSnapshotAt string
	snapshotSeq    int
)

// snapshotID returns "pause-<UTC yyyymmdd-HHMMSS>", disambiguated with
// a numeric suffix only when called more than once within the same
// second.
func snapshotID() string {
	snapshotIDMu.Lock()
	defer snapshotIDMu.Unlock()

	stamp := time.Now().UTC().Format("20060102-150405")
	if stamp == lastSnapshotAt {
		snapshotSeq++
		return fmt.Sprintf("pause-%s-%d", stamp, snapshotSeq)
	}

	lastSnapshotAt = stamp
	snapshotSeq = 0
	return fmt.Sprintf("pause-%s", stamp)
}
