package model

import "context"

// ToolKind distinguishes the two shapes a ToolDefinition can take.
// Per the engine's design notes, this is expressed as a sum type rather
// than one struct with every field optional: a workflow tool's fields
// and a simple tool's fields are never both populated.
type ToolKind int

const (
	// KindWorkflow is a tool with a multi-state submit/review/approve
	// graph, built by the state-machine builder.
	KindWorkflow ToolKind = iota
	// KindSimple is a tool with no state machine: one function, one
	// response.
	KindSimple
)

// ContextLoader populates a newly-entered WorkflowState's context_store
// from the task and its current persisted state. It runs once per
// workflow-tool invocation, right after the WorkflowState is hydrated
// (or created).
type ContextLoader func(ctx context.Context, task *Task, state *TaskState) (map[string]any, error)

// SimpleLogic is the entire implementation of a simple tool: no state
// machine, just a function from call arguments to a response.
type SimpleLogic func(ctx context.Context, args map[string]any) (*ToolResponse, error)

// ArtifactSchema is an opaque reference to a compiled JSON Schema,
// resolved and validated against by internal/validation. It is declared
// here as an interface so internal/model has no dependency on the
// schema compiler.
type ArtifactSchema interface {
	// ValidateAndNormalize checks a submitted artifact against the
	// schema, applying the `operation` field normalization described in
	// spec.md §4.7 first. Returns the (possibly normalized) artifact or
	// a descriptive error.
	ValidateAndNormalize(raw map[string]any) (map[string]any, error)
}

// ToolDefinition is the static, load-time description of one MCP tool.
// Exactly one of the workflow-only or simple-only field groups is
// populated, per Kind.
type ToolDefinition struct {
	Name        string
	Kind        ToolKind
	Description string

	// --- workflow tools only ---
	WorkStates     []string                  // W1..Wn, in order
	DispatchState  string                    // optional state before W1
	TerminalState  string                    // required for workflow tools
	InitialState   string                    // dispatch state or W1
	EntryStatuses  map[TaskStatus]bool       // statuses this tool is willing to start from
	ExitStatus     TaskStatus                // status assigned on reaching TerminalState
	HasExitStatus  bool                      // ExitStatus is meaningful iff true
	RequiredStatus TaskStatus                // if set, the task must be in this status to invoke
	HasRequiredStatus bool
	// InProgressStatus, when set, is applied to the task as soon as a
	// new WorkflowState is created for this tool — the "in_development"/
	// "in_review" mirror of an entry status. Not part of spec.md's core
	// handler algorithm.
	InProgressStatus    TaskStatus
	HasInProgressStatus bool
	DispatchOnInit bool
	ProducesArtifacts bool
	RequiresArtifactFrom string // tool_name this tool's context loader pulls a handoff artifact from
	ContextLoader  ContextLoader
	ArtifactMap    map[string]ArtifactSchema // work_state -> schema ("no schema" = accept any object)

	// --- simple tools only ---
	Logic SimpleLogic
}

// IsWorkflow reports whether this definition describes a workflow tool.
func (d *ToolDefinition) IsWorkflow() bool { return d.Kind == KindWorkflow }

// FinalWorkState returns the last work state in a workflow tool's list,
// i.e. the one whose human-review approval produces the tool's final
// artifact. Panics if called on a tool with no work states — a load-time
// invariant violation should never let such a tool reach runtime.
func (d *ToolDefinition) FinalWorkState() string {
	if len(d.WorkStates) == 0 {
		panic("tooldef: FinalWorkState called on a tool with no work states: " + d.Name)
	}
	return d.WorkStates[len(d.WorkStates)-1]
}

// ToolResponse is the uniform response shape returned by every handler
// invocation, workflow or simple.
type ToolResponse struct {
	Status     string `json:"status"` // "success" | "error" | "choices_needed"
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	NextPrompt string `json:"next_prompt,omitempty"`
}

const (
	StatusSuccess       = "success"
	StatusError         = "error"
	StatusChoicesNeeded = "choices_needed"
)

// ErrorResponse builds a standard error ToolResponse.
func ErrorResponse(message string) *ToolResponse {
	return &ToolResponse{Status: StatusError, Message: message}
}

// SuccessResponse builds a standard success ToolResponse.
func SuccessResponse(message, nextPrompt string, data any) *ToolResponse {
	return &ToolResponse{Status: StatusSuccess, Message: message, Data: data, NextPrompt: nextPrompt}
}
