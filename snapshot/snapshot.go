// Package snapshot persists a point-in-time StateChart checkpoint, mirroring
// the teacher pack's JSONPersister/YAMLPersister file-based persistence
// (comalice-statechartx/internal/production/persister.go) but stamping each
// save with a google/uuid revision id rather than overwriting in place, so a
// host can keep a small history of checkpoints per machine id.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Snapshot is the serializable view of a StateChart at one instant.
type Snapshot struct {
	MachineID     string         `json:"machine_id" yaml:"machine_id"`
	Revision      string         `json:"revision" yaml:"revision"`
	Configuration []string       `json:"configuration" yaml:"configuration"`
	DataModel     map[string]any `json:"data_model" yaml:"data_model"`
	Timestamp     time.Time      `json:"timestamp" yaml:"timestamp"`
}

// Store persists and retrieves Snapshots keyed by machine id.
type Store interface {
	Save(ctx context.Context, snap Snapshot) (revision string, err error)
	Load(ctx context.Context, machineID string) (Snapshot, error)
	// LoadRevision loads one specific previously saved revision.
	LoadRevision(ctx context.Context, machineID, revision string) (Snapshot, error)
	// ListRevisions returns every revision id recorded for machineID,
	// oldest first.
	ListRevisions(ctx context.Context, machineID string) ([]string, error)
}

func stampRevision(snap *Snapshot) {
	snap.Revision = uuid.NewString()
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
}

func revisionFileName(machineID, revision, ext string) string {
	return machineID + "." + revision + "." + ext
}

func latestFileName(machineID, ext string) string {
	return machineID + ".latest." + ext
}

// JSONStore is a directory-based Store using encoding/json, grounded on the
// teacher's JSONPersister.
type JSONStore struct {
	dir string
}

// NewJSONStore creates dir if needed and returns a JSONStore rooted there.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) Save(ctx context.Context, snap Snapshot) (string, error) {
	stampRevision(&snap)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}
	revFn := filepath.Join(s.dir, revisionFileName(snap.MachineID, snap.Revision, "json"))
	if err := os.WriteFile(revFn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", revFn, err)
	}
	latestFn := filepath.Join(s.dir, latestFileName(snap.MachineID, "json"))
	if err := os.WriteFile(latestFn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", latestFn, err)
	}
	return snap.Revision, nil
}

func (s *JSONStore) Load(ctx context.Context, machineID string) (Snapshot, error) {
	return s.loadFile(filepath.Join(s.dir, latestFileName(machineID, "json")), machineID)
}

func (s *JSONStore) LoadRevision(ctx context.Context, machineID, revision string) (Snapshot, error) {
	return s.loadFile(filepath.Join(s.dir, revisionFileName(machineID, revision, "json")), machineID)
}

func (s *JSONStore) loadFile(fn, machineID string) (Snapshot, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("json unmarshal: %w", err)
	}
	return snap, nil
}

func (s *JSONStore) ListRevisions(ctx context.Context, machineID string) ([]string, error) {
	return listRevisions(s.dir, machineID, "json")
}

// YAMLStore is a directory-based Store using gopkg.in/yaml.v3, grounded on
// the teacher's YAMLPersister.
type YAMLStore struct {
	dir string
}

// NewYAMLStore creates dir if needed and returns a YAMLStore rooted there.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &YAMLStore{dir: dir}, nil
}

func (s *YAMLStore) Save(ctx context.Context, snap Snapshot) (string, error) {
	stampRevision(&snap)
	data, err := yaml.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("yaml marshal: %w", err)
	}
	revFn := filepath.Join(s.dir, revisionFileName(snap.MachineID, snap.Revision, "yaml"))
	if err := os.WriteFile(revFn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", revFn, err)
	}
	latestFn := filepath.Join(s.dir, latestFileName(snap.MachineID, "yaml"))
	if err := os.WriteFile(latestFn, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", latestFn, err)
	}
	return snap.Revision, nil
}

func (s *YAMLStore) Load(ctx context.Context, machineID string) (Snapshot, error) {
	return s.loadFile(filepath.Join(s.dir, latestFileName(machineID, "yaml")), machineID)
}

func (s *YAMLStore) LoadRevision(ctx context.Context, machineID, revision string) (Snapshot, error) {
	return s.loadFile(filepath.Join(s.dir, revisionFileName(machineID, revision, "yaml")), machineID)
}

func (s *YAMLStore) loadFile(fn, machineID string) (Snapshot, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, fmt.Errorf("machine %q: %w", machineID, os.ErrNotExist)
		}
		return Snapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("yaml unmarshal: %w", err)
	}
	return snap, nil
}

func (s *YAMLStore) ListRevisions(ctx context.Context, machineID string) ([]string, error) {
	return listRevisions(s.dir, machineID, "yaml")
}

// listRevisions scans dir for machineID.<revision>.<ext> files, returning
// the embedded revision ids sorted by file modification time (oldest
// first). The "latest" pointer file is excluded.
func listRevisions(dir, machineID, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("readdir %s: %w", dir, err)
	}
	prefix := machineID + "."
	suffix := "." + ext
	type stamped struct {
		revision string
		modTime  time.Time
	}
	var found []stamped
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || len(name) <= len(prefix)+len(suffix) {
			continue
		}
		if name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
			continue
		}
		revision := name[len(prefix) : len(name)-len(suffix)]
		if revision == "latest" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, stamped{revision: revision, modTime: info.ModTime()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].modTime.Before(found[j].modTime) })
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.revision
	}
	return out, nil
}
