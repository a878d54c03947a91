// Package store is Alfred's on-disk state layer: atomic read/write of
// TaskState, per-task advisory file locks, and the append-only turn
// log with its manifest index. Every write goes through writeAtomic;
// every read-then-write sequence happens inside a held TaskLock.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// Store roots every task's on-disk directory under WorkspaceRoot:
//
//	{workspace_root}/{task_id}/task_state.json
//	{workspace_root}/{task_id}/.state.lock
//	{workspace_root}/{task_id}/manifest.json
//	{workspace_root}/{task_id}/scratchpad.md
//	{workspace_root}/{task_id}/turns/NNN-{state}-{ts}.json
type Store struct {
	workspaceRoot string
}

// New creates a Store rooted at workspaceRoot. The root is created
// lazily, on first write.
func New(workspaceRoot string) *Store {
	return &Store{workspaceRoot: workspaceRoot}
}

func (s *Store) taskDir(taskID string) string {
	return filepath.Join(s.workspaceRoot, taskID)
}

func (s *Store) taskStatePath(taskID string) string {
	return filepath.Join(s.taskDir(taskID), "task_state.json")
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return alferrors.Fatalf("creating directory %s: %v", dir, err)
	}
	return nil
}

// LoadTaskState reads a task's persisted state. If the task has never
// been touched before, it returns a fresh TaskState at StatusNew rather
// than an error — first touch is a normal, expected lifecycle event
// (§3 Lifecycles).
func (s *Store) LoadTaskState(taskID string) (*model.TaskState, error) {
	path := s.taskStatePath(taskID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return model.NewTaskState(taskID, model.StatusNew), nil
	}
	if err != nil {
		return nil, alferrors.Fatalf("reading task state for %s: %v", taskID, err)
	}

	var state model.TaskState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, alferrors.Fatalf("corrupt task state JSON for %s: %v", taskID, err)
	}
	if state.CompletedToolOutputs == nil {
		state.CompletedToolOutputs = make(map[string]any)
	}
	return &state, nil
}

// SaveTaskState atomically persists a task's state. Callers must hold
// the task's lock.
func (s *Store) SaveTaskState(state *model.TaskState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return alferrors.Fatalf("marshaling task state for %s: %v", state.TaskID, err)
	}
	return writeAtomic(s.taskStatePath(state.TaskID), data, 0o644)
}
