package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

// fakeDriver is a hand-written stand-in for driver.Driver, letting
// orchestrator tests exercise DiscoverAll/Pause/Resume/fanOut without a
// live AWS session.
type fakeDriver struct {
	mu sync.Mutex

	resources  []model.Resource
	enumErr    error
	enumCalls  int
	pauseCalls int

	pausableFn  func(r model.Resource) bool
	resumableFn func(r model.Resource) bool
	pauseFn     func(r model.Resource) model.OperationResult
	resumeFn    func(r model.Resource) model.OperationResult
}

func (d *fakeDriver) Enumerate(ctx context.Context) ([]model.Resource, error) {
	d.mu.Lock()
	d.enumCalls++
	d.mu.Unlock()
	if d.enumErr != nil {
		return nil, d.enumErr
	}
	return d.resources, nil
}

func (d *fakeDriver) Pausable(r model.Resource) bool {
	if d.pausableFn != nil {
		return d.pausableFn(r)
	}
	return r.State == "running"
}

func (d *fakeDriver) Resumable(r model.Resource) bool {
	if d.resumableFn != nil {
		return d.resumableFn(r)
	}
	return r.State == "stopped"
}

func (d *fakeDriver) Pause(ctx context.Context, r model.Resource) model.OperationResult {
	d.mu.Lock()
	d.pauseCalls++
	d.mu.Unlock()
	if d.pauseFn != nil {
		return d.pauseFn(r)
	}
	return model.OperationResult{Success: true, Resource: r, Op: model.OpPause, Message: "paused"}
}

func (d *fakeDriver) Resume(ctx context.Context, r model.Resource) model.OperationResult {
	if d.resumeFn != nil {
		return d.resumeFn(r)
	}
	return model.OperationResult{Success: true, Resource: r, Op: model.OpResume, Message: "resumed"}
}

// fakeRegistry satisfies registryLookup, dispatching by (kind, region)
// to a preconfigured fakeDriver or a preconfigured error.
type fakeRegistry struct {
	mu      sync.Mutex
	drivers map[string]driver.Driver
	errs    map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{drivers: make(map[string]driver.Driver), errs: make(map[string]error)}
}

func regKey(kind model.Kind, region string) string {
	return fmt.Sprintf("%s:%s", kind, region)
}

func (f *fakeRegistry) set(kind model.Kind, region string, d driver.Driver) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drivers[regKey(kind, region)] = d
}

func (f *fakeRegistry) setErr(kind model.Kind, region string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[regKey(kind, region)] = err
}

func (f *fakeRegistry) Get(ctx context.Context, kind model.Kind, region string) (driver.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[regKey(kind, region)]; ok {
		return nil, err
	}
	if d, ok := f.drivers[regKey(kind, region)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("no driver registered for %s/%s", kind, region)
}
