package model

import "context"

// TaskProvider is the external collaborator that owns task definitions.
// The core only ever calls these four methods; concrete providers
// (local markdown, Jira, Linear) are out of scope for the engine
// itself.
type TaskProvider interface {
	GetTask(ctx context.Context, taskID string) (*Task, error)
	GetAllTasks(ctx context.Context) ([]*Task, error)
	GetNextTask(ctx context.Context) (*ToolResponse, error)
	UpdateTaskStatus(ctx context.Context, taskID string, newStatus TaskStatus) (bool, error)
	// CreateTask persists a brand new task definition. Not part of the
	// four-method contract spec.md binds for the core's own use, but
	// needed by the create_task tool, which is itself a supplemental
	// convenience rather than a core-specified workflow tool.
	CreateTask(ctx context.Context, task *Task) error
}
