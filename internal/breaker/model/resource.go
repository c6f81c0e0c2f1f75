// Package model defines the immutable data types shared across the
// discovery, pause, resume, and snapshot-persistence stages.
package model

import (
	"fmt"
	"time"
)

// Kind identifies one of the four resource families coldsnap can pause.
type Kind string

const (
	KindInstance         Kind = "instance"
	KindDatabase         Kind = "database"
	KindContainerService Kind = "container-service"
	KindInstanceGroup    Kind = "instance-group"
)

// Op identifies which phase produced an OperationResult.
type Op string

const (
	OpDiscover Op = "discover"
	OpPause    Op = "pause"
	OpResume   Op = "resume"
)

// Resource is an immutable descriptor of one cloud resource as observed
// at enumeration time. Drivers never mutate a Resource in place; Pause
// and Resume construct new Resource/OperationResult values.
type Resource struct {
	Kind     Kind
	ID       string
	Region   string
	State    string
	Tags     map[string]string
	Metadata map[string]any
	CostHint *float64
}

// Key returns the composite "kind:region:id" identifier used throughout
// snapshot.OriginalStates. Callers must never allow ':' inside Kind,
// Region, or ID (enforced by drivers at enumerate time).
func (r Resource) Key() string {
	return fmt.Sprintf("%s:%s:%s", r.Kind, r.Region, r.ID)
}

// OperationResult is the always-constructed outcome of one attempted
// mutation (or a dry-run/skip of one). No error crosses the orchestrator
// boundary without first being wrapped into one of these.
type OperationResult struct {
	Success         bool
	Resource        Resource
	Op              Op
	Message         string
	Timestamp       time.Time
	DurationSeconds *float64
}

// OriginalState is the state+metadata tuple captured for a Resource
// before any pause mutation is allowed to run.
type OriginalState struct {
	State    string
	Metadata map[string]any
}

// Snapshot is the immutable, authoritative pre-pause record. It is the
// sole input Resume consults.
type Snapshot struct {
	ID                      string
	Timestamp               time.Time
	Resources               []Resource
	OriginalStates          map[string]OriginalState
	OperationResults        []OperationResult
	EstimatedMonthlySavings float64
}

// PrimaryRegion returns the region of the first resource, or "" if the
// snapshot has none. Used by the store to tag a snapshot's region for
// LoadLatest filtering.
func (s Snapshot) PrimaryRegion() string {
	if len(s.Resources) == 0 {
		return ""
	}
	return s.Resources[0].Region
}
