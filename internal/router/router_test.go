package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfred-dev/alfred/internal/model"
	"github.com/alfred-dev/alfred/internal/tooldef"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	reg, err := tooldef.NewRegistry(tooldef.BuildDefinitions(nil))
	require.NoError(t, err)
	return New(reg)
}

func TestToolForStatus_And_NextStatus(t *testing.T) {
	r := newTestRouter(t)

	d, ok := r.ToolForStatus(model.StatusReadyForDevelopment)
	require.True(t, ok)
	assert.Equal(t, "implement_task", d.Name)

	next, ok := r.NextStatus(model.StatusReadyForDevelopment)
	require.True(t, ok)
	assert.Equal(t, model.StatusReadyForReview, next)
}

func TestIsTerminal(t *testing.T) {
	r := newTestRouter(t)
	assert.True(t, r.IsTerminal(model.StatusDone))
	assert.False(t, r.IsTerminal(model.StatusNew))
}

func TestRankTasks_ExcludesDoneAndOrdersByPhase(t *testing.T) {
	tasks := []*model.Task{
		{TaskID: "AL-01", TaskStatus: model.StatusNew},
		{TaskID: "AL-02", TaskStatus: model.StatusPlanning},
		{TaskID: "AL-03", TaskStatus: model.StatusReadyForDevelopment},
		{TaskID: "AL-04", TaskStatus: model.StatusInReview},
		{TaskID: "AL-05", TaskStatus: model.StatusDone},
	}

	ranked := RankTasks(tasks)
	require.Len(t, ranked, 4)

	var ids []string
	for _, t := range ranked {
		ids = append(ids, t.TaskID)
	}
	assert.NotContains(t, ids, "AL-05")

	assert.Equal(t, "AL-04", ids[0], "in-progress status ranks first")
	assert.Equal(t, "AL-01", ids[len(ids)-1], "brand-new status ranks last")
}

func TestRankTasks_OlderSuffixBeatsNewerWithinSamePhase(t *testing.T) {
	tasks := []*model.Task{
		{TaskID: "AL-05", TaskStatus: model.StatusNew},
		{TaskID: "AL-01", TaskStatus: model.StatusNew},
	}
	ranked := RankTasks(tasks)
	assert.Equal(t, "AL-01", ranked[0].TaskID, "older task ids are boosted")
}

func TestNumericSuffix(t *testing.T) {
	assert.Equal(t, 1, numericSuffix("AL-01"))
	assert.Equal(t, 42, numericSuffix("TASK-042"))
	assert.Equal(t, 0, numericSuffix("no-digits"))
}
