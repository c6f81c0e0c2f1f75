// Package driver defines the polymorphic Driver interface every kind
// implements, and a registry that caches one driver per (kind, region).
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver/containerservice"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver/database"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver/instance"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver/instancegroup"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/session"
)

// Driver is the capability set every resource kind implements:
// enumerate, test pausability/resumability, and perform the mutation.
type Driver interface {
	Enumerate(ctx context.Context) ([]model.Resource, error)
	Pausable(r model.Resource) bool
	Pause(ctx context.Context, r model.Resource) model.OperationResult
	Resumable(r model.Resource) bool
	Resume(ctx context.Context, r model.Resource) model.OperationResult
}

// key identifies one cached driver instance.
type key struct {
	kind   model.Kind
	region string
}

// Registry lazily constructs and caches one Driver per (kind, region)
// for the lifetime of an orchestrator run.
type Registry struct {
	sess *session.Session

	mu      sync.Mutex
	drivers map[key]Driver
}

// NewRegistry builds a Registry backed by sess.
func NewRegistry(sess *session.Session) *Registry {
	return &Registry{sess: sess, drivers: make(map[key]Driver)}
}

// Get returns the cached driver for (kind, region), constructing it on
// first use. Unknown kinds fail fast with a configuration-kind error.
func (r *Registry) Get(ctx context.Context, kind model.Kind, region string) (Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key{kind: kind, region: region}
	if d, ok := r.drivers[k]; ok {
		return d, nil
	}

	d, err := r.build(ctx, kind, region)
	if err != nil {
		return nil, err
	}
	r.drivers[k] = d
	return d, nil
}

func (r *Registry) build(ctx context.Context, kind model.Kind, region string) (Driver, error) {
	switch kind {
	case model.KindInstance:
		client, err := r.sess.EC2(ctx, region)
		if err != nil {
			return nil, err
		}
		return instance.New(client, region), nil

	case model.KindDatabase:
		client, err := r.sess.RDS(ctx, region)
		if err != nil {
			return nil, err
		}
		return database.New(client, region), nil

	case model.KindContainerService:
		client, err := r.sess.ECS(ctx, region)
		if err != nil {
			return nil, err
		}
		return containerservice.New(client, region), nil

	case model.KindInstanceGroup:
		client, err := r.sess.AutoScaling(ctx, region)
		if err != nil {
			return nil, err
		}
		return instancegroup.New(client, region), nil

	default:
		return nil, breakerrors.Configurationf("driver.Registry.Get", "unknown resource kind %q", fmt.Sprint(kind))
	}
}

// AllKinds lists every kind the registry can build a driver for, in a
// stable order used by DiscoverAll when no kind filter is supplied.
func AllKinds() []model.Kind {
	return []model.Kind{
		model.KindInstance,
		model.KindDatabase,
		model.KindContainerService,
		model.KindInstanceGroup,
	}
}
