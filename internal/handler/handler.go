// Package handler is the generic tool handler: the single execution
// path shared by every workflow tool invocation (task lookup, state
// hydration, context loading, dispatch, persistence, prompt
// rendering), plus the free-function transition drivers that act on
// whichever workflow tool is currently active for a task (submit_work,
// provide_review, approve_and_advance, mark_subtask_complete,
// work_on_task, get_next_task).
package handler

import (
	"context"
	"strings"
	"time"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
	"github.com/alfred-dev/alfred/internal/promptctx"
	"github.com/alfred-dev/alfred/internal/prompttemplate"
	"github.com/alfred-dev/alfred/internal/router"
	"github.com/alfred-dev/alfred/internal/store"
	"github.com/alfred-dev/alfred/internal/tooldef"
	"github.com/alfred-dev/alfred/internal/workflow"
)

// Handler wires every collaborator the core needs: the state store,
// the tool registry, the workflow engine, the status router, the task
// provider, and the template renderer.
type Handler struct {
	Store          *store.Store
	Registry       *tooldef.Registry
	Engine         *workflow.Engine
	Router         *router.Router
	Provider       model.TaskProvider
	Renderer       *prompttemplate.Renderer
	AutonomousMode bool
}

// New builds a Handler from its collaborators.
func New(s *store.Store, reg *tooldef.Registry, eng *workflow.Engine, r *router.Router, provider model.TaskProvider, renderer *prompttemplate.Renderer, autonomousMode bool) *Handler {
	return &Handler{
		Store:          s,
		Registry:       reg,
		Engine:         eng,
		Router:         r,
		Provider:       provider,
		Renderer:       renderer,
		AutonomousMode: autonomousMode,
	}
}

func taskIDFromArgs(args map[string]any) (string, bool) {
	id, ok := args["task_id"].(string)
	return id, ok && id != ""
}

// Invoke is the generic handler entry point, used by every tool-entry
// MCP registration (workflow tools and simple tools alike). Simple
// tools bypass task resolution entirely and run their logic function
// directly against the call arguments — create_task, the only simple
// tool in this registry, creates a task that does not exist yet, so
// there is nothing for a generic "resolve the task" step to resolve.
func (h *Handler) Invoke(ctx context.Context, toolName string, args map[string]any) (*model.ToolResponse, error) {
	def, ok := h.Registry.Get(toolName)
	if !ok {
		return nil, alferrors.NotFoundf("unknown tool %q", toolName)
	}

	if def.Kind == model.KindSimple {
		return def.Logic(ctx, args)
	}

	taskID, ok := taskIDFromArgs(args)
	if !ok {
		return model.ErrorResponse(toolName + " requires a non-empty task_id"), nil
	}

	task, err := h.Provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	lock, err := h.Store.Lock(taskID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}

	if def.HasRequiredStatus && state.TaskStatus != def.RequiredStatus {
		return model.ErrorResponse(
			toolName + " requires task status " + string(def.RequiredStatus) +
				"; task " + taskID + " is " + string(state.TaskStatus)), nil
	}

	now := time.Now().UTC()
	startingFresh := state.ActiveToolState == nil || state.ActiveToolState.ToolName != toolName
	if startingFresh {
		if !def.EntryStatuses[state.TaskStatus] {
			return model.ErrorResponse(
				toolName + " does not accept task status " + string(state.TaskStatus)), nil
		}
		state.ActiveToolState = &model.WorkflowState{
			TaskID:       taskID,
			ToolName:     toolName,
			CurrentState: def.InitialState,
			ContextStore: make(map[string]any),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if def.HasInProgressStatus {
			state.TaskStatus = def.InProgressStatus
		}
		// Entry-call arguments beyond task_id (create_spec's prd_content,
		// create_tasks_from_spec's content) are caller-supplied seed data
		// for the tool's first state, not task lookup keys; surface them
		// in the context_store the same way a context_loader's output
		// would be, so templates and later states can reference them.
		for k, v := range args {
			if k == "task_id" {
				continue
			}
			state.ActiveToolState.Set(k, v)
		}
	}
	ws := state.ActiveToolState

	if def.ContextLoader != nil {
		loaded, err := def.ContextLoader(ctx, task, state)
		if err != nil {
			return nil, err
		}
		for k, v := range loaded {
			ws.Set(k, v)
		}
	}

	if def.DispatchOnInit && ws.CurrentState == def.DispatchState {
		next, err := h.Engine.ExecuteTrigger(toolName, ws.CurrentState, workflow.TriggerDispatch)
		if err != nil {
			return nil, err
		}
		ws.CurrentState = next
	}

	ws.UpdatedAt = now
	state.UpdatedAt = now
	if err := h.Store.SaveTaskState(state); err != nil {
		return nil, err
	}
	if startingFresh && def.HasInProgressStatus {
		if _, err := h.Provider.UpdateTaskStatus(ctx, taskID, state.TaskStatus); err != nil {
			return nil, err
		}
	}

	return h.renderForState(ctx, task, ws, toolName, nil)
}

// renderForState assembles the prompt context for ws's current state
// and renders it. Review states get the AssembleReview treatment
// (subject artifact + summary); every other state gets the plain
// assembly plus any one-shot overlays a driver wants visible.
func (h *Handler) renderForState(ctx context.Context, task *model.Task, ws *model.WorkflowState, toolName string, overlays map[string]any) (*model.ToolResponse, error) {
	latest, err := h.Store.LatestArtifactsByState(task.TaskID)
	if err != nil {
		return nil, err
	}

	promptKey := prompttemplate.PromptKey(toolName, ws.CurrentState)

	var pctx promptctx.Context
	if isReviewState(ws.CurrentState) {
		subject, _ := ws.Get(model.ContextArtifactKey)
		pctx = promptctx.AssembleReview(task, ws, latest, subject)
	} else {
		pctx = promptctx.Assemble(task, ws, latest, overlays)
	}

	rendered, err := h.Renderer.Render(promptKey, pctx)
	if err != nil {
		return nil, err
	}
	return model.SuccessResponse(toolName+" is now in state "+ws.CurrentState, rendered, map[string]any{
		"tool_name":     toolName,
		"current_state": ws.CurrentState,
	}), nil
}

func isReviewState(state string) bool {
	return strings.HasSuffix(state, "_awaiting_ai_review") || strings.HasSuffix(state, "_awaiting_human_review")
}

// baseWorkState strips a review suffix from a state name, returning
// the work state it belongs to. Returns state unchanged if it carries
// no review suffix.
func baseWorkState(state string) string {
	if s, ok := strings.CutSuffix(state, "_awaiting_ai_review"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(state, "_awaiting_human_review"); ok {
		return s
	}
	return state
}

func reviewKind(state string) string {
	if strings.HasSuffix(state, "_awaiting_ai_review") {
		return "ai_review"
	}
	return "human_review"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
