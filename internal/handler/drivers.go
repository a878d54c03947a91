package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
	"github.com/alfred-dev/alfred/internal/router"
	"github.com/alfred-dev/alfred/internal/validation"
	"github.com/alfred-dev/alfred/internal/workflow"
)

// SubmitWork implements submit_work: validate the submitted artifact
// against the current work state's schema, persist it to the turn
// log, fire the submit trigger, and render the resulting review
// prompt.
func (h *Handler) SubmitWork(ctx context.Context, taskID string, artifact map[string]any) (*model.ToolResponse, error) {
	lock, err := h.Store.Lock(taskID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}
	ws := state.ActiveToolState
	if ws == nil {
		return model.ErrorResponse("task " + taskID + " has no active tool to submit work to"), nil
	}
	def, ok := h.Registry.Get(ws.ToolName)
	if !ok {
		return nil, alferrors.Fatalf("active tool %q has no registered definition", ws.ToolName)
	}

	S := ws.CurrentState
	if !contains(def.WorkStates, S) {
		return model.ErrorResponse(
			"submit_work is only valid in a work state; " + ws.ToolName + " is currently in " + S), nil
	}

	validated := artifact
	if schema, ok := def.ArtifactMap[S]; ok {
		normalized, err := schema.ValidateAndNormalize(artifact)
		if err != nil {
			return model.ErrorResponse(err.Error()), nil
		}
		validated = normalized
	}

	if ws.ToolName == "implement_task" && S == "implementing" {
		if planRaw, ok := ws.Get(model.ContextArtifactKey); ok {
			if plan, ok := planRaw.(map[string]any); ok {
				if err := validation.CrossCheckImplementationManifest(plan, validated); err != nil {
					return model.ErrorResponse(err.Error()), nil
				}
			}
		}
	}

	ws.Set(model.ArtifactKey(S), validated)
	ws.Set(model.ContextArtifactKey, validated)

	var revisionOfPtr *int
	if raw, ok := ws.Get("revision_turn_number"); ok {
		if n, ok := toInt(raw); ok {
			revisionOfPtr = &n
		}
	}
	var revisionFeedback string
	if raw, ok := ws.Get("feedback_notes"); ok {
		revisionFeedback, _ = raw.(string)
	}

	artifactData, err := json.Marshal(validated)
	if err != nil {
		return nil, alferrors.Fatalf("marshaling submitted artifact for %s: %v", taskID, err)
	}

	turn := &model.Turn{
		StateName:        S,
		ToolName:         ws.ToolName,
		ArtifactData:     artifactData,
		RevisionOf:       revisionOfPtr,
		RevisionFeedback: revisionFeedback,
	}
	appended, err := h.Store.AppendTurn(taskID, turn)
	if err != nil {
		return nil, err
	}
	ws.Delete("revision_turn_number")
	ws.Delete("feedback_notes")

	manifest, err := h.Store.LoadManifest(taskID)
	if err != nil {
		return nil, err
	}
	manifest.RecordTurn(appended, S)
	if err := h.Store.SaveManifest(manifest); err != nil {
		return nil, err
	}

	task, err := h.Provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := h.Store.RegenerateScratchpad(task, state); err != nil {
		return nil, err
	}

	next, err := h.Engine.ExecuteTrigger(ws.ToolName, S, workflow.SubmitTrigger(S))
	if err != nil {
		return nil, err
	}
	ws.CurrentState = next
	ws.UpdatedAt = time.Now().UTC()
	state.UpdatedAt = ws.UpdatedAt
	if err := h.Store.SaveTaskState(state); err != nil {
		return nil, err
	}

	return h.renderForState(ctx, task, ws, ws.ToolName, nil)
}

// ProvideReview implements provide_review (exposed to MCP as
// approve_review / request_revision depending on is_approved): fires
// ai_approve, human_approve, or request_revision depending on the
// current review state and the caller's decision, including the
// autonomous-mode bypass from ai_review straight to human_approve.
//
// When the fired trigger (including any autonomous-mode bypass) lands
// the tool in its terminal state, this same call finalizes it: the
// completed artifact is recorded under completed_tool_outputs,
// active_tool_state is cleared, and exit_status is applied to
// task_status, so a single approve_review call is enough to leave the
// task ready for its next tool.
func (h *Handler) ProvideReview(ctx context.Context, taskID string, isApproved bool, feedbackNotes string) (*model.ToolResponse, error) {
	lock, err := h.Store.Lock(taskID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}
	ws := state.ActiveToolState
	if ws == nil || !isReviewState(ws.CurrentState) {
		return model.ErrorResponse("task " + taskID + " has no active review to act on"), nil
	}
	def, ok := h.Registry.Get(ws.ToolName)
	if !ok {
		return nil, alferrors.Fatalf("active tool %q has no registered definition", ws.ToolName)
	}
	S := ws.CurrentState

	task, err := h.Provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !isApproved {
		if feedbackNotes == "" {
			return model.ErrorResponse("request_revision requires non-empty feedback_notes"), nil
		}
		artifactData, err := json.Marshal(map[string]any{
			"state_to_revise": baseWorkState(S),
			"feedback":        feedbackNotes,
			"requested_by":    reviewKind(S),
		})
		if err != nil {
			return nil, alferrors.Fatalf("marshaling revision request for %s: %v", taskID, err)
		}
		turn := &model.Turn{StateName: model.MetaStateRevisionRequest, ToolName: ws.ToolName, ArtifactData: artifactData}
		appended, err := h.Store.AppendTurn(taskID, turn)
		if err != nil {
			return nil, err
		}
		manifest, err := h.Store.LoadManifest(taskID)
		if err != nil {
			return nil, err
		}
		manifest.RecordTurn(appended, S)
		if err := h.Store.SaveManifest(manifest); err != nil {
			return nil, err
		}

		ws.Set("revision_turn_number", appended.TurnNumber)
		ws.Set("feedback_notes", feedbackNotes)

		next, err := h.Engine.ExecuteTrigger(ws.ToolName, S, workflow.TriggerRequestRevision)
		if err != nil {
			return nil, err
		}
		ws.CurrentState = next
		ws.UpdatedAt = time.Now().UTC()
		state.UpdatedAt = ws.UpdatedAt
		if err := h.Store.SaveTaskState(state); err != nil {
			return nil, err
		}
		return h.renderForState(ctx, task, ws, ws.ToolName, map[string]any{"feedback_notes": feedbackNotes})
	}

	ws.Delete("feedback_notes")
	trigger := workflow.TriggerHumanApprove
	if S == workflow.AIReviewState(baseWorkState(S)) {
		trigger = workflow.TriggerAIApprove
	}
	next, err := h.Engine.ExecuteTrigger(ws.ToolName, S, trigger)
	if err != nil {
		return nil, err
	}
	ws.CurrentState = next

	if trigger == workflow.TriggerAIApprove && h.AutonomousMode && !h.Engine.IsTerminal(ws.ToolName, ws.CurrentState) {
		next2, err := h.Engine.ExecuteTrigger(ws.ToolName, ws.CurrentState, workflow.TriggerHumanApprove)
		if err != nil {
			return nil, err
		}
		ws.CurrentState = next2
	}

	ws.UpdatedAt = time.Now().UTC()
	state.UpdatedAt = ws.UpdatedAt

	if h.Engine.IsTerminal(ws.ToolName, ws.CurrentState) {
		return h.finalizeTerminalTool(ctx, task, state, ws, def)
	}

	if err := h.Store.SaveTaskState(state); err != nil {
		return nil, err
	}

	return h.renderForState(ctx, task, ws, ws.ToolName, nil)
}

// finalizeTerminalTool wraps up a workflow tool that has just reached
// its terminal state: it renders the terminal-state prompt while the
// state is still live, then records the completed artifact under
// completed_tool_outputs, clears active_tool_state, and applies
// exit_status to task_status in the same persisted write.
func (h *Handler) finalizeTerminalTool(ctx context.Context, task *model.Task, state *model.TaskState, ws *model.WorkflowState, def *model.ToolDefinition) (*model.ToolResponse, error) {
	rendered, err := h.renderForState(ctx, task, ws, ws.ToolName, nil)
	if err != nil {
		return nil, err
	}

	finalState := def.FinalWorkState()
	finalArtifact, _ := ws.Get(model.ArtifactKey(finalState))

	toolName := ws.ToolName
	if state.CompletedToolOutputs == nil {
		state.CompletedToolOutputs = make(map[string]any)
	}
	state.CompletedToolOutputs[toolName] = finalArtifact
	state.ActiveToolState = nil
	if def.HasExitStatus {
		state.TaskStatus = def.ExitStatus
	}
	state.UpdatedAt = time.Now().UTC()
	if err := h.Store.SaveTaskState(state); err != nil {
		return nil, err
	}
	if _, err := h.Provider.UpdateTaskStatus(ctx, task.TaskID, state.TaskStatus); err != nil {
		return nil, err
	}

	rendered.Message = fmt.Sprintf("%s complete; task %s is now %s", toolName, task.TaskID, state.TaskStatus)
	if nextTool, ok := h.Router.ToolForStatus(state.TaskStatus); ok {
		rendered.Message += fmt.Sprintf("; call %s to continue", nextTool.Name)
		if data, ok := rendered.Data.(map[string]any); ok {
			data["next_tool"] = nextTool.Name
		}
	}
	return rendered, nil
}

// ApproveAndAdvance implements approve_and_advance: a defensive,
// idempotent entry point that finalizes a workflow tool which has
// reached its terminal state but, for whatever reason, was not
// already finalized by provide_review (e.g. recovery after a crash
// between firing the last trigger and persisting). Refuses if the
// active tool has not yet reached its terminal state; a no-op error
// if there is no active tool at all, since provide_review already
// clears active_tool_state on the normal path.
func (h *Handler) ApproveAndAdvance(ctx context.Context, taskID string) (*model.ToolResponse, error) {
	lock, err := h.Store.Lock(taskID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}
	ws := state.ActiveToolState
	if ws == nil {
		return model.ErrorResponse("task " + taskID + " has no active tool to advance"), nil
	}
	def, ok := h.Registry.Get(ws.ToolName)
	if !ok {
		return nil, alferrors.Fatalf("active tool %q has no registered definition", ws.ToolName)
	}

	if !h.Engine.IsTerminal(ws.ToolName, ws.CurrentState) {
		remaining := h.Engine.ValidTriggers(ws.ToolName, ws.CurrentState)
		return model.ErrorResponse(fmt.Sprintf(
			"%s is not yet complete (currently in %s); remaining triggers before it can advance: %v",
			ws.ToolName, ws.CurrentState, remaining)), nil
	}

	task, err := h.Provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return h.finalizeTerminalTool(ctx, task, state, ws, def)
}

// MarkSubtaskComplete implements mark_subtask_complete: valid only
// inside implement_task, before its manifest has been submitted (so
// artifact_content still holds the handed-off implementation plan
// rather than the submitted manifest). It never writes a Turn and
// never transitions state.
func (h *Handler) MarkSubtaskComplete(ctx context.Context, taskID, subtaskID string) (*model.ToolResponse, error) {
	lock, err := h.Store.Lock(taskID)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}
	ws := state.ActiveToolState
	if ws == nil || ws.ToolName != "implement_task" {
		return model.ErrorResponse("mark_subtask_complete is only valid while implement_task is active"), nil
	}

	planRaw, ok := ws.Get(model.ContextArtifactKey)
	if !ok {
		return model.ErrorResponse("no implementation plan is available to validate subtask_id against"), nil
	}
	plan, ok := planRaw.(map[string]any)
	if !ok {
		return model.ErrorResponse("no implementation plan is available to validate subtask_id against"), nil
	}
	subtasksRaw, _ := plan["subtasks"].([]any)

	found := false
	for _, item := range subtasksRaw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := entry["subtask_id"].(string); id == subtaskID {
			found = true
			break
		}
	}
	if !found {
		return model.ErrorResponse("unknown subtask_id " + subtaskID), nil
	}

	completed := map[string]bool{}
	if raw, ok := ws.Get("completed_subtasks"); ok {
		if list, ok := raw.([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					completed[s] = true
				}
			}
		} else if list, ok := raw.([]string); ok {
			for _, s := range list {
				completed[s] = true
			}
		}
	}
	completed[subtaskID] = true

	sorted := make([]string, 0, len(completed))
	for s := range completed {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)
	ws.Set("completed_subtasks", sorted)
	ws.UpdatedAt = time.Now().UTC()
	state.UpdatedAt = ws.UpdatedAt
	if err := h.Store.SaveTaskState(state); err != nil {
		return nil, err
	}

	total := len(subtasksRaw)
	done := len(sorted)
	pct := 0
	if total > 0 {
		pct = (100*done + total/2) / total
	}
	message := fmt.Sprintf("%d/%d subtasks complete (%d%%)", done, total, pct)
	return model.SuccessResponse(message, "", map[string]any{"completed_subtasks": sorted}), nil
}

// WorkOnTask implements work_on_task: a thin advisory wrapper that
// routes a task to the tool owning its current status without
// transitioning anything.
func (h *Handler) WorkOnTask(ctx context.Context, taskID string) (*model.ToolResponse, error) {
	task, err := h.Provider.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	state, err := h.Store.LoadTaskState(taskID)
	if err != nil {
		return nil, err
	}
	if h.Router.IsTerminal(state.TaskStatus) {
		return model.SuccessResponse("task "+taskID+" is done", "", map[string]any{"task_status": state.TaskStatus}), nil
	}
	tool, ok := h.Router.ToolForStatus(state.TaskStatus)
	if !ok {
		return model.ErrorResponse("no tool owns status " + string(state.TaskStatus)), nil
	}
	return model.SuccessResponse(
		"task "+taskID+" (status "+string(state.TaskStatus)+") is owned by "+tool.Name, "",
		map[string]any{"tool_name": tool.Name, "task_status": state.TaskStatus, "task_title": task.Title}), nil
}

// GetNextTask implements get_next_task: ranks every non-done task by
// the status-router's recommendation key, using each task's
// authoritative status from the state store rather than the
// provider's possibly-stale cached copy.
func (h *Handler) GetNextTask(ctx context.Context) (*model.ToolResponse, error) {
	tasks, err := h.Provider.GetAllTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		state, err := h.Store.LoadTaskState(t.TaskID)
		if err != nil {
			return nil, err
		}
		t.TaskStatus = state.TaskStatus
	}

	ranked := router.RankTasks(tasks)
	if len(ranked) == 0 {
		return model.SuccessResponse("no remaining tasks", "", map[string]any{}), nil
	}
	top := ranked[0]
	return model.SuccessResponse(
		"recommended next task: "+top.TaskID+" (status "+string(top.TaskStatus)+")", "",
		map[string]any{"task_id": top.TaskID, "task_status": top.TaskStatus}), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
