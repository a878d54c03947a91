package prompttemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptKey_ReviewStatesMapToSentinels(t *testing.T) {
	assert.Equal(t, "review.ai_review", PromptKey("plan_task", "discovery_awaiting_ai_review"))
	assert.Equal(t, "review.human_review", PromptKey("implement_task", "implementing_awaiting_human_review"))
	assert.Equal(t, "plan_task.discovery", PromptKey("plan_task", "discovery"))
}

func TestNew_CompilesEveryEmbeddedTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.NotEmpty(t, r.templates)

	for _, key := range []string{
		"plan_task.discovery", "plan_task.verified",
		"implement_task.implementing", "review_task.code_review",
		"test_task.testing", "finalize_task.finalizing",
		"review.ai_review", "review.human_review",
	} {
		_, ok := r.templates[key]
		assert.True(t, ok, "missing template for key %s", key)
	}
}

func TestRender_SubstitutesContext(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.Render("plan_task.discovery", map[string]any{
		"task_id": "AL-01",
		"context": "some context",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "AL-01")
}

func TestRender_MissingTemplateIsHardError(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	_, err = r.Render("nonexistent.key", nil)
	require.Error(t, err)
}
