package tooldef

import (
	"context"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// handoffContextLoader returns a ContextLoader that pulls the named
// predecessor tool's completed artifact into the new tool state's
// context_store under the fixed artifact_content key, per the open
// question on honoring requires_artifact_from uniformly rather than
// reading completed_tool_outputs in one place and the turn log in
// another.
func handoffContextLoader(fromTool string) model.ContextLoader {
	return func(_ context.Context, task *model.Task, state *model.TaskState) (map[string]any, error) {
		artifact, ok := state.CompletedToolOutputs[fromTool]
		if !ok {
			return nil, alferrors.InvalidStatef(
				"task %s: entering a tool that requires %s's output, but no such output is recorded",
				task.TaskID, fromTool)
		}
		return map[string]any{model.ContextArtifactKey: artifact}, nil
	}
}

// BuildDefinitions returns the seven workflow tool definitions plus the
// create_task simple tool, wired against the given TaskProvider. The
// remaining simple tools (work_on_task, get_next_task, submit_work,
// approve_review, request_revision, approve_and_advance,
// mark_subtask_complete) are transition drivers that act on whichever
// workflow tool is currently active for a task; they live in
// internal/handler rather than this registry, since routing among
// workflow tools is exactly the concern tooldef itself exists to avoid
// depending on.
func BuildDefinitions(provider model.TaskProvider) []*model.ToolDefinition {
	return []*model.ToolDefinition{
		{
			Name:          "create_spec",
			Kind:          model.KindWorkflow,
			Description:   "Draft a product requirements spec for a task from raw PRD content.",
			WorkStates:    []string{"drafting"},
			TerminalState: "spec_drafted",
			InitialState:  "drafting",
			EntryStatuses: statusSet(model.StatusNew),
			ExitStatus:    model.StatusSpecCompleted,
			HasExitStatus: true,
			InProgressStatus:    model.StatusCreatingSpec,
			HasInProgressStatus: true,
			ProducesArtifacts:   true,
		},
		{
			Name:          "create_tasks_from_spec",
			Kind:          model.KindWorkflow,
			Description:   "Break a drafted spec down into a set of discrete tasks.",
			WorkStates:    []string{"breakdown"},
			TerminalState: "tasks_ready",
			InitialState:  "breakdown",
			EntryStatuses: statusSet(model.StatusSpecCompleted),
			ExitStatus:    model.StatusTasksCreated,
			HasExitStatus: true,
			InProgressStatus:    model.StatusCreatingTasks,
			HasInProgressStatus: true,
			ProducesArtifacts:     true,
			RequiresArtifactFrom:  "create_spec",
			ContextLoader:         handoffContextLoader("create_spec"),
		},
		{
			Name:          "plan_task",
			Kind:          model.KindWorkflow,
			Description:   "Plan a task: discover context, clarify scope, define contracts, write an implementation plan, and validate it.",
			WorkStates:    []string{"discovery", "clarification", "contracts", "implementation_plan", "validation"},
			TerminalState: "verified",
			InitialState:  "discovery",
			EntryStatuses: statusSet(model.StatusTasksCreated),
			ExitStatus:    model.StatusReadyForDevelopment,
			HasExitStatus: true,
			InProgressStatus:    model.StatusPlanning,
			HasInProgressStatus: true,
			ProducesArtifacts:   true,
		},
		{
			Name:          "implement_task",
			Kind:          model.KindWorkflow,
			Description:   "Implement a planned task.",
			WorkStates:    []string{"implementing"},
			TerminalState: "implemented",
			InitialState:  "implementing",
			EntryStatuses: statusSet(model.StatusReadyForDevelopment, model.StatusRevisionsRequested),
			ExitStatus:    model.StatusReadyForReview,
			HasExitStatus: true,
			InProgressStatus:    model.StatusInDevelopment,
			HasInProgressStatus: true,
			ProducesArtifacts:    true,
			RequiresArtifactFrom: "plan_task",
			ContextLoader:        handoffContextLoader("plan_task"),
		},
		{
			Name:          "review_task",
			Kind:          model.KindWorkflow,
			Description:   "Review an implementation against the plan and acceptance criteria.",
			WorkStates:    []string{"code_review"},
			TerminalState: "reviewed",
			InitialState:  "code_review",
			EntryStatuses: statusSet(model.StatusReadyForReview),
			ExitStatus:    model.StatusReadyForTesting,
			HasExitStatus: true,
			InProgressStatus:    model.StatusInReview,
			HasInProgressStatus: true,
			ProducesArtifacts:    true,
			RequiresArtifactFrom: "implement_task",
			ContextLoader:        handoffContextLoader("implement_task"),
		},
		{
			Name:          "test_task",
			Kind:          model.KindWorkflow,
			Description:   "Verify acceptance criteria for a reviewed implementation.",
			WorkStates:    []string{"testing"},
			TerminalState: "tested",
			InitialState:  "testing",
			EntryStatuses: statusSet(model.StatusReadyForTesting),
			ExitStatus:    model.StatusReadyForFinalization,
			HasExitStatus: true,
			InProgressStatus:    model.StatusInTesting,
			HasInProgressStatus: true,
			ProducesArtifacts:    true,
			RequiresArtifactFrom: "review_task",
			ContextLoader:        handoffContextLoader("review_task"),
		},
		{
			Name:          "finalize_task",
			Kind:          model.KindWorkflow,
			Description:   "Finalize a tested task: changelog entry, cleanup, done.",
			WorkStates:    []string{"finalizing"},
			TerminalState: "finalized",
			InitialState:  "finalizing",
			EntryStatuses: statusSet(model.StatusReadyForFinalization),
			ExitStatus:    model.StatusDone,
			HasExitStatus: true,
			InProgressStatus:    model.StatusInFinalization,
			HasInProgressStatus: true,
			ProducesArtifacts:    true,
			RequiresArtifactFrom: "test_task",
			ContextLoader:        handoffContextLoader("test_task"),
		},
		{
			Name:        "create_task",
			Kind:        model.KindSimple,
			Description: "Create a new ad-hoc task record outside the main phase pipeline.",
			Logic:       createTaskLogic(provider),
		},
	}
}

func statusSet(statuses ...model.TaskStatus) map[model.TaskStatus]bool {
	set := make(map[model.TaskStatus]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

func createTaskLogic(provider model.TaskProvider) model.SimpleLogic {
	return func(ctx context.Context, args map[string]any) (*model.ToolResponse, error) {
		taskID, _ := args["task_id"].(string)
		content, _ := args["content"].(string)
		if taskID == "" {
			return model.ErrorResponse("create_task requires a non-empty task_id"), nil
		}
		if content == "" {
			return model.ErrorResponse("create_task requires non-empty content"), nil
		}
		if _, err := provider.GetTask(ctx, taskID); err == nil {
			return model.ErrorResponse("task " + taskID + " already exists"), nil
		}
		task := &model.Task{
			TaskID:     taskID,
			Title:      taskID,
			Context:    content,
			TaskStatus: model.StatusNew,
		}
		if err := provider.CreateTask(ctx, task); err != nil {
			return nil, err
		}
		return model.SuccessResponse("task "+taskID+" created", "", map[string]any{"task_id": taskID}), nil
	}
}
