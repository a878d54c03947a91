// Package promptctx assembles the rendering context handed to the
// external Template Renderer: task fields, active-tool identity, the
// context_store, the latest artifact per state folded from the turn
// log, and any one-shot overlays a transition driver wants to inject.
package promptctx

import (
	"encoding/json"

	"github.com/alfred-dev/alfred/internal/model"
)

// Context is the union of data a prompt template may reference, keyed
// by the same loose string-keyed map a text/template renderer expects.
type Context map[string]any

// Assemble builds the rendering context for one invocation. latestByState
// is the turn log folded to the latest artifact per state (see
// internal/store.LatestArtifactsByState); overlays are one-shot values
// such as artifact_content or feedback_notes that a transition driver
// wants visible to just this render.
func Assemble(task *model.Task, ws *model.WorkflowState, latestByState map[string]json.RawMessage, overlays map[string]any) Context {
	ctx := Context{
		"task_id":                task.TaskID,
		"title":                  task.Title,
		"context":                task.Context,
		"implementation_details": task.ImplementationDetails,
		"acceptance_criteria":    task.AcceptanceCriteria,
	}

	if ws != nil {
		ctx["tool_name"] = ws.ToolName
		ctx["current_state"] = ws.CurrentState
		for k, v := range ws.ContextStore {
			ctx[k] = v
		}
	}

	for state, raw := range latestByState {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			continue
		}
		ctx[state] = decoded
		if fields, ok := decoded.(map[string]any); ok {
			for field, v := range fields {
				ctx[state+"_"+field] = v
			}
		}
	}

	for k, v := range overlays {
		ctx[k] = v
	}

	return ctx
}

// ArtifactSummary derives the short summary shown for a review state's
// subject artifact: its title/summary field if present, otherwise a
// truncated serialization.
func ArtifactSummary(artifact any) string {
	if fields, ok := artifact.(map[string]any); ok {
		if s, ok := fields["summary"].(string); ok && s != "" {
			return s
		}
		if t, ok := fields["title"].(string); ok && t != "" {
			return t
		}
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		return ""
	}
	const maxLen = 200
	if len(data) > maxLen {
		return string(data[:maxLen]) + "..."
	}
	return string(data)
}

// AssembleReview builds the context for a review state, adding
// artifact_content (the subject artifact) and artifact_summary on top
// of the base assembly.
func AssembleReview(task *model.Task, ws *model.WorkflowState, latestByState map[string]json.RawMessage, subjectArtifact any) Context {
	overlays := map[string]any{
		model.ContextArtifactKey: subjectArtifact,
		"artifact_summary":      ArtifactSummary(subjectArtifact),
	}
	return Assemble(task, ws, latestByState, overlays)
}
