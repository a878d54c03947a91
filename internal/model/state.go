package model

import "time"

// WorkflowState is the per-active-tool slice of state for one task: what
// state the tool's internal state machine is in, and whatever the tool's
// context loaders and submitted artifacts have accumulated.
type WorkflowState struct {
	TaskID       string         `json:"task_id"`
	ToolName     string         `json:"tool_name"`
	CurrentState string         `json:"current_state"`
	ContextStore map[string]any `json:"context_store"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Get returns a context_store value and whether it was present.
func (w *WorkflowState) Get(key string) (any, bool) {
	if w.ContextStore == nil {
		return nil, false
	}
	v, ok := w.ContextStore[key]
	return v, ok
}

// Set writes a context_store value, allocating the map if necessary.
func (w *WorkflowState) Set(key string, value any) {
	if w.ContextStore == nil {
		w.ContextStore = make(map[string]any)
	}
	w.ContextStore[key] = value
}

// Delete removes a context_store key. A no-op if absent.
func (w *WorkflowState) Delete(key string) {
	if w.ContextStore == nil {
		return
	}
	delete(w.ContextStore, key)
}

// ArtifactKey returns the context_store key under which a work state's
// submitted artifact is stored: "{state}_artifact".
func ArtifactKey(state string) string {
	return state + "_artifact"
}

// ContextArtifactKey is the fixed key mirroring the current review's
// subject artifact, regardless of which state produced it.
const ContextArtifactKey = "artifact_content"

// TaskState is the persisted record of record for one task: its
// authoritative status, the single in-progress workflow tool (if any),
// and the outputs every completed tool has left behind.
type TaskState struct {
	TaskID              string            `json:"task_id"`
	TaskStatus          TaskStatus        `json:"task_status"`
	ActiveToolState     *WorkflowState    `json:"active_tool_state"`
	CompletedToolOutputs map[string]any   `json:"completed_tool_outputs"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

// NewTaskState creates a TaskState freshly hydrated for a task that has
// never been touched by the engine before.
func NewTaskState(taskID string, status TaskStatus) *TaskState {
	return &TaskState{
		TaskID:               taskID,
		TaskStatus:           status,
		CompletedToolOutputs: make(map[string]any),
		UpdatedAt:            time.Now().UTC(),
	}
}
