package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	snapshotsDir = "snapshots"
	indexFile    = "index.json"
)

// Store persists snapshots as JSON files under a root directory with
// an index for fast listing.
type Store struct {
	mu      sync.RWMutex
	rootDir string
	index   *Index
}

// NewStore creates or opens a store at rootDir.
func NewStore(rootDir string) (*Store, error) {
	s := &Store{rootDir: rootDir}

	if err := os.MkdirAll(filepath.Join(rootDir, snapshotsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	if err := s.loadIndex(); err != nil {
		s.index = &Index{Snapshots: []Summary{}, UpdatedAt: time.Now()}
	}
	return s, nil
}

// Save persists a snapshot and updates the index. The parent is set to
// the latest prior snapshot of the same dataset when unset.
func (s *Store) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.ParentID == "" {
		if prev := s.latestLocked(snap.Dataset); prev != nil {
			snap.ParentID = prev.ID
		}
	}

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path(snap.ID), raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.index.Snapshots = append(s.index.Snapshots, snap.Summary())
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Load retrieves a snapshot by ID.
func (s *Store) Load(id string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadLocked(id)
}

func (s *Store) loadLocked(id string) (*Snapshot, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// Resolve looks a snapshot up by tag, exact ID, or unique ID prefix.
func (s *Store) Resolve(ref string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sum := range s.index.Snapshots {
		if sum.Tag != "" && sum.Tag == ref {
			return s.loadLocked(sum.ID)
		}
	}

	var matches []string
	for _, sum := range s.index.Snapshots {
		if sum.ID == ref {
			return s.loadLocked(sum.ID)
		}
		if strings.HasPrefix(sum.ID, ref) {
			matches = append(matches, sum.ID)
		}
	}
	switch len(matches) {
	case 1:
		return s.loadLocked(matches[0])
	case 0:
		return nil, fmt.Errorf("snapshot %q not found", ref)
	default:
		return nil, fmt.Errorf("snapshot ref %q is ambiguous (%d matches)", ref, len(matches))
	}
}

// Latest returns the newest snapshot for a dataset, or nil when none
// exists.
func (s *Store) Latest(dataset string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := s.latestLocked(dataset)
	if sum == nil {
		return nil, nil
	}
	return s.loadLocked(sum.ID)
}

func (s *Store) latestLocked(dataset string) *Summary {
	var latest *Summary
	for i := range s.index.Snapshots {
		sum := &s.index.Snapshots[i]
		if sum.Dataset != dataset {
			continue
		}
		if latest == nil || sum.CreatedAt.After(latest.CreatedAt) {
			latest = sum
		}
	}
	return latest
}

// List returns all summaries, newest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, len(s.index.Snapshots))
	copy(out, s.index.Snapshots)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Tag assigns a tag to a stored snapshot.
func (s *Store) Tag(id, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.loadLocked(id)
	if err != nil {
		return err
	}
	snap.Tag = tag

	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(s.path(id), raw, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	for i := range s.index.Snapshots {
		if s.index.Snapshots[i].ID == id {
			s.index.Snapshots[i].Tag = tag
			break
		}
	}
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

// Delete removes a snapshot and its index entry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove snapshot: %w", err)
	}

	filtered := s.index.Snapshots[:0]
	for _, sum := range s.index.Snapshots {
		if sum.ID != id {
			filtered = append(filtered, sum)
		}
	}
	s.index.Snapshots = filtered
	s.index.UpdatedAt = time.Now()
	return s.saveIndex()
}

func (s *Store) path(id string) string {
	return filepath.Join(s.rootDir, snapshotsDir, id+".json")
}

func (s *Store) loadIndex() error {
	raw, err := os.ReadFile(filepath.Join(s.rootDir, indexFile))
	if err != nil {
		return err
	}
	s.index = &Index{}
	return json.Unmarshal(raw, s.index)
}

func (s *Store) saveIndex() error {
	raw, err := json.MarshalIndent(s.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.rootDir, indexFile), raw, 0o644)
}
