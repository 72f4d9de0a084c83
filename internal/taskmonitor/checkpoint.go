// Package taskmonitor implements crash-safe checkpointing for long-running
// tasks (spec.md §4.3): durable, rename-into-place JSON checkpoint files
// plus the resume protocol the Trainer drives on startup.
package taskmonitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/aristath/chronotrader/internal/domain"
)

// CheckpointStore durably persists TaskCheckpoint records under a single
// directory, one file per task id (spec.md §6:
// results/checkpoints/<task_id>.json). Only one process may hold the
// directory open for writing at a time (spec.md §5 shared-resource
// policy), enforced by an advisory flock on a sidecar .lock file.
type CheckpointStore struct {
	dir      string
	mu       sync.Mutex
	lockFile *os.File
}

// OpenCheckpointStore creates dir if necessary and acquires the advisory
// directory lock. It returns an error if another process already holds it.
func OpenCheckpointStore(dir string) (*CheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("taskmonitor: create checkpoint dir: %w", err)
	}
	lockPath := filepath.Join(dir, ".lock")
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("taskmonitor: open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("taskmonitor: checkpoint directory %q is held by another process: %w", dir, err)
	}
	return &CheckpointStore{dir: dir, lockFile: f}, nil
}

// Close releases the directory lock.
func (s *CheckpointStore) Close() error {
	if s.lockFile == nil {
		return nil
	}
	syscall.Flock(int(s.lockFile.Fd()), syscall.LOCK_UN)
	return s.lockFile.Close()
}

func (s *CheckpointStore) path(taskID string) string {
	return filepath.Join(s.dir, taskID+".json")
}

// Read returns the checkpoint for taskID, or ok=false if none exists yet.
func (s *CheckpointStore) Read(taskID string) (*domain.TaskCheckpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(taskID)
}

func (s *CheckpointStore) read(taskID string) (*domain.TaskCheckpoint, bool, error) {
	raw, err := os.ReadFile(s.path(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("taskmonitor: read checkpoint: %w", err)
	}
	var cp domain.TaskCheckpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, false, &CheckpointCorrupt{TaskID: taskID, Cause: err}
	}
	return &cp, true, nil
}

// List returns every checkpoint currently on disk, used by the trainer's
// periodic stale-checkpoint sweep.
func (s *CheckpointStore) List() ([]domain.TaskCheckpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("taskmonitor: list checkpoint dir: %w", err)
	}
	var out []domain.TaskCheckpoint
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		taskID := e.Name()[:len(e.Name())-len(".json")]
		cp, ok, err := s.read(taskID)
		if err != nil || !ok {
			continue
		}
		out = append(out, *cp)
	}
	return out, nil
}

// Write durably persists cp: marshal to JSON, write to a temp file in the
// same directory, fsync, then atomically rename over the target path. This
// is the write-temp-then-rename idiom the teacher's reliability package
// uses for crash-staged restores, generalized here to checkpoints — a
// reader never observes a torn file.
func (s *CheckpointStore) Write(cp domain.TaskCheckpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(cp)
}

func (s *CheckpointStore) write(cp domain.TaskCheckpoint) error {
	raw, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("taskmonitor: marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, cp.TaskID+".*.tmp")
	if err != nil {
		return fmt.Errorf("taskmonitor: create temp checkpoint file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("taskmonitor: write temp checkpoint file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("taskmonitor: sync temp checkpoint file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("taskmonitor: close temp checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(cp.TaskID)); err != nil {
		return fmt.Errorf("taskmonitor: rename checkpoint into place: %w", err)
	}
	return nil
}
