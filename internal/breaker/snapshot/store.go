// Package snapshot persists Snapshot values to a directory of
// self-describing JSON files, one per snapshot id, grounded on the
// Python SnapshotManager's temp-file-then-replace save path.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/breakerrors"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/model"
)

// Store is a directory of "<snapshot-id>.json" files.
type Store struct {
	dir string
}

// DefaultDir returns "$HOME/.coldsnap/snapshots".
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", breakerrors.Configurationf("snapshot.DefaultDir", "could not resolve home directory: %v", err)
	}
	return filepath.Join(home, ".coldsnap", "snapshots"), nil
}

// Open ensures dir exists and returns a Store rooted there.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, breakerrors.Statef("snapshot.Open", err, "could not create snapshot directory %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// wireSnapshot is the on-disk shape: forward-compatible because it
// decodes into plain maps/slices rather than requiring exact field
// sets, and unknown top-level fields are simply dropped on re-encode
// rather than rejected on decode.
type wireSnapshot struct {
	ID                      string                       `json:"snapshot_id"`
	Timestamp               string                       `json:"timestamp"`
	Region                  string                       `json:"region"`
	Resources               []wireResource               `json:"resources"`
	OriginalStates          map[string]wireOriginalState `json:"original_states"`
	OperationResults        []wireOperationResult        `json:"operation_results"`
	EstimatedMonthlySavings float64                      `json:"total_estimated_savings"`
}

type wireResource struct {
	Kind     string            `json:"kind"`
	ID       string            `json:"id"`
	Region   string            `json:"region"`
	State    string            `json:"state"`
	Tags     map[string]string `json:"tags"`
	Metadata map[string]any    `json:"metadata"`
	CostHint *float64          `json:"cost_hint,omitempty"`
}

type wireOriginalState struct {
	State    string         `json:"current_state"`
	Metadata map[string]any `json:"metadata"`
}

type wireOperationResult struct {
	Success         bool         `json:"success"`
	Resource        wireResource `json:"resource"`
	Op              string       `json:"op"`
	Message         string       `json:"message"`
	Timestamp       string       `json:"timestamp"`
	DurationSeconds *float64     `json:"duration_seconds,omitempty"`
}

func toWire(s model.Snapshot) wireSnapshot {
	w := wireSnapshot{
		ID:                      s.ID,
		Timestamp:               s.Timestamp.UTC().Format(time.RFC3339),
		Region:                  s.PrimaryRegion(),
		EstimatedMonthlySavings: s.EstimatedMonthlySavings,
	}
	for _, r := range s.Resources {
		w.Resources = append(w.Resources, toWireResource(r))
	}
	w.OriginalStates = make(map[string]wireOriginalState, len(s.OriginalStates))
	for k, v := range s.OriginalStates {
		w.OriginalStates[k] = wireOriginalState{State: v.State, Metadata: v.Metadata}
	}
	for _, r := range s.OperationResults {
		w.OperationResults = append(w.OperationResults, toWireResult(r))
	}
	return w
}

func toWireResource(r model.Resource) wireResource {
	return wireResource{
		Kind:     string(r.Kind),
		ID:       r.ID,
		Region:   r.Region,
		State:    r.State,
		Tags:     r.Tags,
		Metadata: r.Metadata,
		CostHint: r.CostHint,
	}
}

func toWireResult(r model.OperationResult) wireOperationResult {
	return wireOperationResult{
		Success:         r.Success,
		Resource:        toWireResource(r.Resource),
		Op:              string(r.Op),
		Message:         r.Message,
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339),
		DurationSeconds: r.DurationSeconds,
	}
}

func fromWire(w wireSnapshot) (model.Snapshot, error) {
	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("invalid timestamp %q: %w", w.Timestamp, err)
	}

	s := model.Snapshot{
		ID:                      w.ID,
		Timestamp:               ts,
		EstimatedMonthlySavings: w.EstimatedMonthlySavings,
		OriginalStates:          make(map[string]model.OriginalState, len(w.OriginalStates)),
	}
	for _, wr := range w.Resources {
		s.Resources = append(s.Resources, fromWireResource(wr))
	}
	for k, v := range w.OriginalStates {
		s.OriginalStates[k] = model.OriginalState{State: v.State, Metadata: v.Metadata}
	}
	for _, wr := range w.OperationResults {
		result, err := fromWireResult(wr)
		if err != nil {
			return model.Snapshot{}, err
		}
		s.OperationResults = append(s.OperationResults, result)
	}

	return s, nil
}

func fromWireResource(w wireResource) model.Resource {
	return model.Resource{
		Kind:     model.Kind(w.Kind),
		ID:       w.ID,
		Region:   w.Region,
		State:    w.State,
		Tags:     w.Tags,
		Metadata: w.Metadata,
		CostHint: w.CostHint,
	}
}

func fromWireResult(w wireOperationResult) (model.OperationResult, error) {
	ts, err := time.Parse(time.RFC3339, w.Timestamp)
	if err != nil {
		return model.OperationResult{}, fmt.Errorf("invalid result timestamp %q: %w", w.Timestamp, err)
	}
	return model.OperationResult{
		Success:         w.Success,
		Resource:        fromWireResource(w.Resource),
		Op:              model.Op(w.Op),
		Message:         w.Message,
		Timestamp:       ts,
		DurationSeconds: w.DurationSeconds,
	}, nil
}

// Save serialises snapshot to a temporary sibling file, then
// atomically replaces the target. On any failure the temp file is
// cleaned up.
func (s *Store) Save(snap model.Snapshot) error {
	data, err := json.MarshalIndent(toWire(snap), "", "  ")
	if err != nil {
		return breakerrors.Statef("snapshot.Save", err, "failed to serialize snapshot %s", snap.ID)
	}

	target := s.path(snap.ID)
	tmp := target + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return breakerrors.Statef("snapshot.Save", err, "failed to write temp file for snapshot %s", snap.ID)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return breakerrors.Statef("snapshot.Save", err, "failed to commit snapshot %s", snap.ID)
	}

	return nil
}

// Load returns the snapshot for id, or (zero, nil) if it doesn't exist.
// A parse failure is a storage-corruption error.
func (s *Store) Load(id string) (model.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, breakerrors.Statef("snapshot.Load", err, "failed to read snapshot %s", id)
	}

	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return model.Snapshot{}, false, breakerrors.Statef("snapshot.Load", err, "snapshot %s is corrupted", id)
	}

	snap, err := fromWire(w)
	if err != nil {
		return model.Snapshot{}, false, breakerrors.Statef("snapshot.Load", err, "snapshot %s is corrupted", id)
	}
	return snap, true, nil
}

// Summary is the lightweight listing entry returned by List.
type Summary struct {
	ID                      string
	Timestamp               time.Time
	Region                  string
	ResourceCount           int
	EstimatedMonthlySavings float64
}

// List returns a summary per readable snapshot file. Unreadable files
// are skipped, not errored.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, breakerrors.Statef("snapshot.List", err, "failed to read snapshot directory %s", s.dir)
	}

	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		id := entry.Name()[:len(entry.Name())-len(".json")]
		snap, ok, err := s.Load(id)
		if err != nil || !ok {
			continue
		}

		out = append(out, Summary{
			ID:                      snap.ID,
			Timestamp:               snap.Timestamp,
			Region:                  snap.PrimaryRegion(),
			ResourceCount:           len(snap.Resources),
			EstimatedMonthlySavings: snap.EstimatedMonthlySavings,
		})
	}

	return out, nil
}

// LoadLatest returns the most recent snapshot, optionally filtered by
// region, or (zero, false, nil) if none match.
func (s *Store) LoadLatest(region string) (model.Snapshot, bool, error) {
	summaries, err := s.List()
	if err != nil {
		return model.Snapshot{}, false, err
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	for _, sum := range summaries {
		if region != "" && sum.Region != region {
			continue
		}
		return s.Load(sum.ID)
	}

	return model.Snapshot{}, false, nil
}

// Delete removes the snapshot file for id and reports whether it existed.
func (s *Store) Delete(id string) (bool, error) {
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, breakerrors.Statef("snapshot.Delete", err, "failed to delete snapshot %s", id)
	}
	return true, nil
}

// Trim retains the keepN most recent snapshots and deletes the rest,
// returning the count removed.
func (s *Store) Trim(keepN int) (int, error) {
	summaries, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(summaries) <= keepN {
		return 0, nil
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Timestamp.After(summaries[j].Timestamp)
	})

	removed := 0
	for _, sum := range summaries[keepN:] {
		ok, err := s.Delete(sum.ID)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
