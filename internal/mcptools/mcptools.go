// Package mcptools adapts internal/handler's plain Go methods onto the
// mcpserver.Tool interface: one small type per MCP tool, each declaring
// its own name, description, and JSON-Schema input shape, the same way
// the reference server's internal/tools/workflow package wraps its
// Emergent-backed operations rather than routing every tool through a
// single generic dispatcher at the transport layer.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alfred-dev/alfred/internal/handler"
	"github.com/alfred-dev/alfred/internal/mcpserver"
	"github.com/alfred-dev/alfred/internal/model"
)

// RegisterAll registers every Alfred MCP tool against reg, wired to h.
func RegisterAll(reg *mcpserver.Registry, h *handler.Handler) {
	reg.Register(NewWorkOnTask(h))
	reg.Register(NewGetNextTask(h))
	reg.Register(NewEntryTool(h, "create_spec", "Draft a product requirements spec for a task from raw PRD content.", taskIDSchema(`, "prd_content": {"type": "string", "description": "Raw PRD content to draft the spec from"}`, "prd_content")))
	reg.Register(NewEntryTool(h, "create_tasks_from_spec", "Break a drafted spec down into a set of discrete tasks.", taskIDSchema(``)))
	reg.Register(NewCreateTask(h))
	reg.Register(NewEntryTool(h, "plan_task", "Enter the planning workflow for a task: discovery, clarification, contracts, implementation plan, validation.", taskIDSchema(``)))
	reg.Register(NewEntryTool(h, "implement_task", "Enter the implementation workflow for a planned task.", taskIDSchema(``)))
	reg.Register(NewEntryTool(h, "review_task", "Enter the review workflow for an implemented task.", taskIDSchema(``)))
	reg.Register(NewEntryTool(h, "test_task", "Enter the testing workflow for a reviewed task.", taskIDSchema(``)))
	reg.Register(NewEntryTool(h, "finalize_task", "Enter the finalization workflow for a tested task.", taskIDSchema(``)))
	reg.Register(NewSubmitWork(h))
	reg.Register(NewApproveReview(h))
	reg.Register(NewRequestRevision(h))
	reg.Register(NewApproveAndAdvance(h))
	reg.Register(NewMarkSubtaskComplete(h))
}

// taskIDSchema builds the input schema shared by every tool that takes
// at minimum a task_id, with optional extra property fragments (each a
// `"name": {...}` JSON object body) spliced in and their names added to
// the required list.
func taskIDSchema(extraProps string, extraRequired ...string) json.RawMessage {
	required := `"task_id"`
	for _, r := range extraRequired {
		required += fmt.Sprintf(`, %q`, r)
	}
	return json.RawMessage(fmt.Sprintf(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task to operate on"}%s
  },
  "required": [%s]
}`, extraProps, required))
}

func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, v)
}

func resultFor(resp *model.ToolResponse, err error) (*mcpserver.ToolsCallResult, error) {
	if err != nil {
		return nil, err
	}
	result, merr := mcpserver.JSONResult(resp)
	if merr != nil {
		return nil, merr
	}
	result.IsError = resp.Status == model.StatusError
	return result, nil
}

// EntryTool is the adapter shared by every tool whose whole job is to
// invoke the generic handler for one named workflow tool: plan_task,
// implement_task, review_task, test_task, finalize_task, create_spec,
// and create_tasks_from_spec. They differ only in name, description,
// and input schema, so one type serves all seven.
type EntryTool struct {
	handler     *handler.Handler
	name        string
	description string
	schema      json.RawMessage
}

// NewEntryTool builds an EntryTool bound to toolName in the registry.
func NewEntryTool(h *handler.Handler, toolName, description string, schema json.RawMessage) *EntryTool {
	return &EntryTool{handler: h, name: toolName, description: description, schema: schema}
}

func (t *EntryTool) Name() string               { return t.name }
func (t *EntryTool) Description() string        { return t.description }
func (t *EntryTool) InputSchema() json.RawMessage { return t.schema }

func (t *EntryTool) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var args map[string]any
	if err := unmarshalParams(params, &args); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	resp, err := t.handler.Invoke(ctx, t.name, args)
	return resultFor(resp, err)
}

// CreateTask adapts create_task, the one simple (non-workflow) tool.
type CreateTask struct {
	handler *handler.Handler
}

// NewCreateTask builds the create_task adapter.
func NewCreateTask(h *handler.Handler) *CreateTask { return &CreateTask{handler: h} }

func (t *CreateTask) Name() string        { return "create_task" }
func (t *CreateTask) Description() string { return "Create a new ad-hoc task record outside the main phase pipeline." }
func (t *CreateTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "Unique identifier for the new task"},
    "content": {"type": "string", "description": "Free-form markdown context for the task"}
  },
  "required": ["task_id", "content"]
}`)
}

func (t *CreateTask) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var args map[string]any
	if err := unmarshalParams(params, &args); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	resp, err := t.handler.Invoke(ctx, "create_task", args)
	return resultFor(resp, err)
}

// WorkOnTask adapts work_on_task.
type WorkOnTask struct {
	handler *handler.Handler
}

func NewWorkOnTask(h *handler.Handler) *WorkOnTask { return &WorkOnTask{handler: h} }

func (t *WorkOnTask) Name() string        { return "work_on_task" }
func (t *WorkOnTask) Description() string { return "Route a task to the tool that owns its current status, without transitioning anything." }
func (t *WorkOnTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task to route"}
  },
  "required": ["task_id"]
}`)
}

func (t *WorkOnTask) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID string `json:"task_id"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	resp, err := t.handler.WorkOnTask(ctx, p.TaskID)
	return resultFor(resp, err)
}

// GetNextTask adapts get_next_task.
type GetNextTask struct {
	handler *handler.Handler
}

func NewGetNextTask(h *handler.Handler) *GetNextTask { return &GetNextTask{handler: h} }

func (t *GetNextTask) Name() string        { return "get_next_task" }
func (t *GetNextTask) Description() string { return "Return a ranked recommendation for which non-done task to work on next." }
func (t *GetNextTask) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *GetNextTask) Execute(ctx context.Context, _ json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	resp, err := t.handler.GetNextTask(ctx)
	return resultFor(resp, err)
}

// SubmitWork adapts submit_work.
type SubmitWork struct {
	handler *handler.Handler
}

func NewSubmitWork(h *handler.Handler) *SubmitWork { return &SubmitWork{handler: h} }

func (t *SubmitWork) Name() string        { return "submit_work" }
func (t *SubmitWork) Description() string { return "Submit the current work state's artifact for AI review." }
func (t *SubmitWork) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task to submit work for"},
    "artifact": {"type": "object", "description": "The work-state artifact, shape depends on the active tool's current state"}
  },
  "required": ["task_id", "artifact"]
}`)
}

func (t *SubmitWork) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID   string         `json:"task_id"`
		Artifact map[string]any `json:"artifact"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	if p.Artifact == nil {
		return mcpserver.ErrorResult("artifact is required"), nil
	}
	resp, err := t.handler.SubmitWork(ctx, p.TaskID, p.Artifact)
	return resultFor(resp, err)
}

// ApproveReview adapts approve_review: provide_review with is_approved=true.
type ApproveReview struct {
	handler *handler.Handler
}

func NewApproveReview(h *handler.Handler) *ApproveReview { return &ApproveReview{handler: h} }

func (t *ApproveReview) Name() string        { return "approve_review" }
func (t *ApproveReview) Description() string { return "Approve the current AI-review or human-review state, advancing the workflow." }
func (t *ApproveReview) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task whose active review to approve"}
  },
  "required": ["task_id"]
}`)
}

func (t *ApproveReview) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID string `json:"task_id"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	resp, err := t.handler.ProvideReview(ctx, p.TaskID, true, "")
	return resultFor(resp, err)
}

// RequestRevision adapts request_revision: provide_review with is_approved=false.
type RequestRevision struct {
	handler *handler.Handler
}

func NewRequestRevision(h *handler.Handler) *RequestRevision { return &RequestRevision{handler: h} }

func (t *RequestRevision) Name() string        { return "request_revision" }
func (t *RequestRevision) Description() string { return "Reject the current review state with required feedback, sending the work state back for revision." }
func (t *RequestRevision) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task whose active review to reject"},
    "feedback_notes": {"type": "string", "description": "Required feedback explaining what needs to change"}
  },
  "required": ["task_id", "feedback_notes"]
}`)
}

func (t *RequestRevision) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID        string `json:"task_id"`
		FeedbackNotes string `json:"feedback_notes"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	if p.FeedbackNotes == "" {
		return mcpserver.ErrorResult("feedback_notes is required"), nil
	}
	resp, err := t.handler.ProvideReview(ctx, p.TaskID, false, p.FeedbackNotes)
	return resultFor(resp, err)
}

// ApproveAndAdvance adapts approve_and_advance.
type ApproveAndAdvance struct {
	handler *handler.Handler
}

func NewApproveAndAdvance(h *handler.Handler) *ApproveAndAdvance { return &ApproveAndAdvance{handler: h} }

func (t *ApproveAndAdvance) Name() string        { return "approve_and_advance" }
func (t *ApproveAndAdvance) Description() string {
	return "After a workflow tool reaches its terminal state, record its output and advance the task's status to the next phase."
}
func (t *ApproveAndAdvance) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task to advance"}
  },
  "required": ["task_id"]
}`)
}

func (t *ApproveAndAdvance) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID string `json:"task_id"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	resp, err := t.handler.ApproveAndAdvance(ctx, p.TaskID)
	return resultFor(resp, err)
}

// MarkSubtaskComplete adapts mark_subtask_complete.
type MarkSubtaskComplete struct {
	handler *handler.Handler
}

func NewMarkSubtaskComplete(h *handler.Handler) *MarkSubtaskComplete {
	return &MarkSubtaskComplete{handler: h}
}

func (t *MarkSubtaskComplete) Name() string        { return "mark_subtask_complete" }
func (t *MarkSubtaskComplete) Description() string {
	return "Mark one subtask of the active implementation plan as complete. Does not transition state or write a turn."
}
func (t *MarkSubtaskComplete) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "task_id": {"type": "string", "description": "The task implementing the plan"},
    "subtask_id": {"type": "string", "description": "The subtask_id to mark complete, as listed in the implementation plan"}
  },
  "required": ["task_id", "subtask_id"]
}`)
}

func (t *MarkSubtaskComplete) Execute(ctx context.Context, params json.RawMessage) (*mcpserver.ToolsCallResult, error) {
	var p struct {
		TaskID    string `json:"task_id"`
		SubtaskID string `json:"subtask_id"`
	}
	if err := unmarshalParams(params, &p); err != nil {
		return mcpserver.ErrorResult(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if p.TaskID == "" {
		return mcpserver.ErrorResult("task_id is required"), nil
	}
	if p.SubtaskID == "" {
		return mcpserver.ErrorResult("subtask_id is required"), nil
	}
	resp, err := t.handler.MarkSubtaskComplete(ctx, p.TaskID, p.SubtaskID)
	return resultFor(resp, err)
}
