package tooldef

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfred-dev/alfred/internal/model"
)

type fakeProvider struct {
	tasks map[string]*model.Task
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{tasks: make(map[string]*model.Task)}
}

func (f *fakeProvider) GetTask(_ context.Context, taskID string) (*model.Task, error) {
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, assertErr
	}
	return t, nil
}
func (f *fakeProvider) GetAllTasks(context.Context) ([]*model.Task, error) { return nil, nil }
func (f *fakeProvider) GetNextTask(context.Context) (*model.ToolResponse, error) {
	return nil, nil
}
func (f *fakeProvider) UpdateTaskStatus(context.Context, string, model.TaskStatus) (bool, error) {
	return true, nil
}
func (f *fakeProvider) CreateTask(_ context.Context, t *model.Task) error {
	f.tasks[t.TaskID] = t
	return nil
}

var assertErr = &notFound{}

type notFound struct{}

func (e *notFound) Error() string { return "not found" }

func TestBuildDefinitions_AllValid(t *testing.T) {
	defs := BuildDefinitions(newFakeProvider())
	reg, err := NewRegistry(defs)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 8)
}

func TestToolForStatus_CoversPipeline(t *testing.T) {
	reg, err := NewRegistry(BuildDefinitions(newFakeProvider()))
	require.NoError(t, err)

	cases := map[model.TaskStatus]string{
		model.StatusNew:                 "create_spec",
		model.StatusSpecCompleted:       "create_tasks_from_spec",
		model.StatusTasksCreated:        "plan_task",
		model.StatusReadyForDevelopment: "implement_task",
		model.StatusReadyForReview:      "review_task",
		model.StatusReadyForTesting:     "test_task",
		model.StatusReadyForFinalization: "finalize_task",
	}
	for status, want := range cases {
		d, ok := reg.ToolForStatus(status)
		require.True(t, ok, "status %s", status)
		assert.Equal(t, want, d.Name, "status %s", status)
	}

	_, ok := reg.ToolForStatus(model.StatusDone)
	assert.False(t, ok, "done is terminal and owned by no tool")
}

func TestNewRegistry_RejectsDuplicateNames(t *testing.T) {
	defs := BuildDefinitions(newFakeProvider())
	defs = append(defs, defs[0])
	_, err := NewRegistry(defs)
	require.Error(t, err)
}

func TestNewRegistry_RejectsWorkflowToolWithLogic(t *testing.T) {
	defs := []*model.ToolDefinition{{
		Name:          "bad",
		Kind:          model.KindWorkflow,
		WorkStates:    []string{"w"},
		TerminalState: "done",
		InitialState:  "w",
		EntryStatuses: statusSet(model.StatusNew),
		HasExitStatus: true,
		ExitStatus:    model.StatusDone,
		Logic:         func(context.Context, map[string]any) (*model.ToolResponse, error) { return nil, nil },
	}}
	_, err := NewRegistry(defs)
	require.Error(t, err)
}

func TestCreateTaskLogic_RejectsExisting(t *testing.T) {
	provider := newFakeProvider()
	provider.tasks["AL-01"] = &model.Task{TaskID: "AL-01"}
	logic := createTaskLogic(provider)

	resp, err := logic(context.Background(), map[string]any{"task_id": "AL-01", "content": "x"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusError, resp.Status)
}
