package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_SingleWorkState(t *testing.T) {
	g, err := Build("plan_task", []string{"discovery"}, "verified", "")
	require.NoError(t, err)

	assert.Equal(t, "discovery", g.InitialState)
	assert.True(t, g.HasState("discovery"))
	assert.True(t, g.HasState("discovery_awaiting_ai_review"))
	assert.True(t, g.HasState("discovery_awaiting_human_review"))
	assert.True(t, g.HasState("verified"))
	assert.Len(t, g.States(), 4)
}

func TestBuild_MultipleWorkStates_Chains(t *testing.T) {
	g, err := Build("plan_task", []string{"discovery", "clarification", "contracts"}, "verified", "")
	require.NoError(t, err)

	to, err := g.ExecuteTrigger("discovery_awaiting_human_review", TriggerHumanApprove)
	require.NoError(t, err)
	assert.Equal(t, "clarification", to)

	to, err = g.ExecuteTrigger("contracts_awaiting_human_review", TriggerHumanApprove)
	require.NoError(t, err)
	assert.Equal(t, "verified", to, "last work state's human_approve must land on the terminal state")
}

func TestBuild_WithDispatchState(t *testing.T) {
	g, err := Build("implement_task", []string{"implementing"}, "done", "dispatch")
	require.NoError(t, err)

	assert.Equal(t, "dispatch", g.InitialState)
	to, err := g.ExecuteTrigger("dispatch", TriggerDispatch)
	require.NoError(t, err)
	assert.Equal(t, "implementing", to)
}

func TestBuild_ReviewCycleSixTransitions(t *testing.T) {
	g, err := Build("t", []string{"w"}, "done", "")
	require.NoError(t, err)

	cases := []struct {
		from, trigger, want string
	}{
		{"w", "submit_w", "w_awaiting_ai_review"},
		{"w", TriggerRequestRevision, "w"},
		{"w_awaiting_ai_review", TriggerAIApprove, "w_awaiting_human_review"},
		{"w_awaiting_ai_review", TriggerRequestRevision, "w"},
		{"w_awaiting_human_review", TriggerHumanApprove, "done"},
		{"w_awaiting_human_review", TriggerRequestRevision, "w"},
	}
	for _, c := range cases {
		to, err := g.ExecuteTrigger(c.from, c.trigger)
		require.NoError(t, err)
		assert.Equal(t, c.want, to, "trigger %s from %s", c.trigger, c.from)
	}
}

func TestExecuteTrigger_InvalidTransition(t *testing.T) {
	g, err := Build("t", []string{"w"}, "done", "")
	require.NoError(t, err)

	_, err = g.ExecuteTrigger("w", "human_approve")
	require.Error(t, err)
}

func TestBuild_NoWorkStates_Errors(t *testing.T) {
	_, err := Build("t", nil, "done", "")
	require.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	g1, err := Build("t", []string{"a", "b"}, "done", "")
	require.NoError(t, err)
	g2, err := Build("t", []string{"a", "b"}, "done", "")
	require.NoError(t, err)

	assert.ElementsMatch(t, g1.States(), g2.States())
	for _, s := range g1.States() {
		assert.ElementsMatch(t, g1.ValidTriggers(s), g2.ValidTriggers(s), "state %s", s)
	}
}

func TestValidTriggers_ReviewStateHasExactlyTwoTriggers(t *testing.T) {
	g, err := Build("t", []string{"w1", "w2"}, "done", "")
	require.NoError(t, err)

	triggers := g.ValidTriggers("w1_awaiting_ai_review")
	assert.ElementsMatch(t, []string{TriggerAIApprove, TriggerRequestRevision}, triggers)
}

func TestEngine_RegisterAndExecute(t *testing.T) {
	e := NewEngine()
	g, err := Build("plan_task", []string{"discovery"}, "verified", "")
	require.NoError(t, err)
	e.Register(g)

	to, err := e.ExecuteTrigger("plan_task", "discovery", "submit_discovery")
	require.NoError(t, err)
	assert.Equal(t, "discovery_awaiting_ai_review", to)

	assert.True(t, e.IsTerminal("plan_task", "verified"))
	assert.False(t, e.IsTerminal("plan_task", "discovery"))
}

func TestEngine_UnknownTool(t *testing.T) {
	e := NewEngine()
	_, err := e.ExecuteTrigger("nonexistent", "w", "submit_w")
	require.Error(t, err)
}
