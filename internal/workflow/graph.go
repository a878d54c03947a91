// Package workflow builds and evaluates the state/transition graphs
// behind every workflow tool. The builder expands a tool's declared
// work states into the standard work/ai_review/human_review triad; the
// engine that walks the resulting graph is pure and holds no task
// state of its own — every call takes the current state explicitly and
// returns the next one. A 50-line lookup table over a map is all this
// needs; no state-machine library pulls its weight here.
package workflow

import (
	"fmt"
	"sort"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

// Standard trigger names. ai_approve, human_approve and request_revision
// recur once per work state; (state, trigger) pairs are always unique
// even though the trigger names are not.
const (
	TriggerDispatch       = "dispatch"
	TriggerAIApprove      = "ai_approve"
	TriggerHumanApprove   = "human_approve"
	TriggerRequestRevision = "request_revision"
)

// SubmitTrigger returns the trigger name for submitting a work state's
// artifact: "submit_{state}".
func SubmitTrigger(workState string) string {
	return "submit_" + workState
}

// AIReviewState returns the awaiting-AI-review state name derived from
// a work state. This is the only legal naming for that review phase.
func AIReviewState(workState string) string {
	return workState + "_awaiting_ai_review"
}

// HumanReviewState returns the awaiting-human-review state name derived
// from a work state. This is the only legal naming for that review phase.
func HumanReviewState(workState string) string {
	return workState + "_awaiting_human_review"
}

type edge struct {
	state   string
	trigger string
}

// Graph is the complete, built set of states and transitions for one
// workflow tool. It is immutable once built and safe for concurrent
// reads.
type Graph struct {
	ToolName      string
	InitialState  string
	TerminalState string
	DispatchState string
	WorkStates    []string

	states      map[string]bool
	transitions map[edge]string
}

// Build expands workStates into the full review-cycle graph. dispatchState
// may be empty, meaning there is no separate dispatch phase before the
// first work state.
func Build(toolName string, workStates []string, terminalState, dispatchState string) (*Graph, error) {
	if len(workStates) == 0 {
		return nil, alferrors.Fatalf("workflow: tool %q declares no work states", toolName)
	}
	if terminalState == "" {
		return nil, alferrors.Fatalf("workflow: tool %q declares no terminal state", toolName)
	}

	g := &Graph{
		ToolName:      toolName,
		TerminalState: terminalState,
		DispatchState: dispatchState,
		WorkStates:    append([]string(nil), workStates...),
		states:        make(map[string]bool),
		transitions:   make(map[edge]string),
	}

	if dispatchState != "" {
		g.states[dispatchState] = true
		g.InitialState = dispatchState
		g.addTransition(dispatchState, TriggerDispatch, workStates[0])
	} else {
		g.InitialState = workStates[0]
	}

	for i, w := range workStates {
		aiReview := AIReviewState(w)
		humanReview := HumanReviewState(w)
		g.states[w] = true
		g.states[aiReview] = true
		g.states[humanReview] = true

		next := terminalState
		if i+1 < len(workStates) {
			next = workStates[i+1]
		}

		g.addTransition(w, SubmitTrigger(w), aiReview)
		g.addTransition(w, TriggerRequestRevision, w)
		g.addTransition(aiReview, TriggerAIApprove, humanReview)
		g.addTransition(aiReview, TriggerRequestRevision, w)
		g.addTransition(humanReview, TriggerHumanApprove, next)
		g.addTransition(humanReview, TriggerRequestRevision, w)
	}
	g.states[terminalState] = true

	return g, nil
}

func (g *Graph) addTransition(state, trigger, to string) {
	g.transitions[edge{state, trigger}] = to
}

// HasState reports whether state is part of this graph.
func (g *Graph) HasState(state string) bool {
	return g.states[state]
}

// States returns every state in the graph, in no particular order.
func (g *Graph) States() []string {
	out := make([]string, 0, len(g.states))
	for s := range g.states {
		out = append(out, s)
	}
	return out
}

// IsTerminal reports whether state is the graph's terminal state.
func (g *Graph) IsTerminal(state string) bool {
	return state == g.TerminalState
}

// IsWorkState reports whether state is one of the original (non-review,
// non-terminal, non-dispatch) work states.
func (g *Graph) IsWorkState(state string) bool {
	for _, w := range g.WorkStates {
		if w == state {
			return true
		}
	}
	return false
}

// ValidTriggers returns every trigger that has an outgoing edge from
// state, in deterministic order.
func (g *Graph) ValidTriggers(state string) []string {
	var triggers []string
	for e := range g.transitions {
		if e.state == state {
			triggers = append(triggers, e.trigger)
		}
	}
	sort.Strings(triggers)
	return triggers
}

// ExecuteTrigger looks up the (state, trigger) edge and returns the
// destination state. Returns an InvalidTransition error if no such edge
// exists.
func (g *Graph) ExecuteTrigger(state, trigger string) (string, error) {
	to, ok := g.transitions[edge{state, trigger}]
	if !ok {
		return "", alferrors.InvalidTransitionf(
			"no transition for trigger %q from state %q in tool %q", trigger, state, g.ToolName)
	}
	return to, nil
}

// String summarizes the graph as its tool name and its state and
// transition counts, for debugging. It does not list the edges.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{tool=%s, states=%d, transitions=%d}", g.ToolName, len(g.states), len(g.transitions))
}
