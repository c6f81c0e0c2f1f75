// Package ops implements the filter and dry-run layer that sits
// between discovery and mutation, grounded on the Python
// PauseResumeOperations._apply_resource_filters / _is_resource_pausable.
package ops

import "github.com/aravindh-murugesan/coldsnap/internal/breaker/model"

// Filter narrows a discovered resource set before pause. All populated
// fields combine with AND; within Tags/ExcludeTags, every key/value
// pair must hold.
type Filter struct {
	Kinds       []model.Kind
	Regions     []string
	Tags        map[string]string
	ExcludeTags map[string]string
	IDs         []string
	ExcludeIDs  []string
}

// Apply returns the subset of resources matching f. A zero-value
// Filter matches everything.
func Apply(resources []model.Resource, f Filter) []model.Resource {
	out := resources

	if len(f.Kinds) > 0 {
		out = filterFunc(out, func(r model.Resource) bool { return containsKind(f.Kinds, r.Kind) })
	}
	if len(f.Regions) > 0 {
		out = filterFunc(out, func(r model.Resource) bool { return containsString(f.Regions, r.Region) })
	}
	for k, v := range f.Tags {
		out = filterFunc(out, func(r model.Resource) bool { return r.Tags[k] == v })
	}
	for k, v := range f.ExcludeTags {
		out = filterFunc(out, func(r model.Resource) bool { return r.Tags[k] != v })
	}
	if len(f.IDs) > 0 {
		out = filterFunc(out, func(r model.Resource) bool { return containsString(f.IDs, r.ID) })
	}
	if len(f.ExcludeIDs) > 0 {
		out = filterFunc(out, func(r model.Resource) bool { return !containsString(f.ExcludeIDs, r.ID) })
	}

	return out
}

func filterFunc(resources []model.Resource, keep func(model.Resource) bool) []model.Resource {
	out := make([]model.Resource, 0, len(resources))
	for _, r := range resources {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func containsKind(kinds []model.Kind, k model.Kind) bool {
	for _, candidate := range kinds {
		if candidate == k {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// Pausable narrows resources to those a pause-rule check (the driver's
// own Pausable) currently holds for.
func Pausable(resources []model.Resource, pausable func(model.Resource) bool) []model.Resource {
	return filterFunc(resources, pausable)
}
