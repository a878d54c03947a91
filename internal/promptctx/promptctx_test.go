package promptctx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alfred-dev/alfred/internal/model"
)

func TestAssemble_IncludesTaskFieldsAndContextStore(t *testing.T) {
	task := &model.Task{TaskID: "AL-01", Title: "Do the thing", AcceptanceCriteria: []string{"works"}}
	ws := &model.WorkflowState{
		ToolName:     "plan_task",
		CurrentState: "discovery",
		ContextStore: map[string]any{"revision_turn_number": 3},
	}

	ctx := Assemble(task, ws, nil, nil)
	assert.Equal(t, "AL-01", ctx["task_id"])
	assert.Equal(t, "plan_task", ctx["tool_name"])
	assert.Equal(t, "discovery", ctx["current_state"])
	assert.Equal(t, 3, ctx["revision_turn_number"])
}

func TestAssemble_FlattensLatestArtifactFields(t *testing.T) {
	task := &model.Task{TaskID: "AL-01"}
	latest := map[string]json.RawMessage{
		"discovery": json.RawMessage(`{"complexity":"LOW"}`),
	}

	ctx := Assemble(task, nil, latest, nil)
	assert.Equal(t, "LOW", ctx["discovery_complexity"])
	discoveryObj, ok := ctx["discovery"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, "LOW", discoveryObj["complexity"])
}

func TestAssemble_OverlaysWinOverContextStore(t *testing.T) {
	task := &model.Task{TaskID: "AL-01"}
	ws := &model.WorkflowState{ContextStore: map[string]any{"feedback_notes": "old"}}

	ctx := Assemble(task, ws, nil, map[string]any{"feedback_notes": "new"})
	assert.Equal(t, "new", ctx["feedback_notes"])
}

func TestArtifactSummary_PrefersSummaryThenTitleThenTruncation(t *testing.T) {
	assert.Equal(t, "s", ArtifactSummary(map[string]any{"summary": "s", "title": "t"}))
	assert.Equal(t, "t", ArtifactSummary(map[string]any{"title": "t"}))
	assert.NotEmpty(t, ArtifactSummary(map[string]any{"foo": "bar"}))
}
