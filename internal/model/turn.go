package model

import (
	"encoding/json"
	"time"
)

// MetaStateRevisionRequest is the state_name recorded for a revision
// request turn. It is not a real workflow state — no ToolDefinition
// declares it as a work state or review state — so it must be excluded
// whenever turn history is folded into a "latest by state" view.
const MetaStateRevisionRequest = "revision_request"

// Turn is one immutable entry in a task's append-only event log: either
// a submitted artifact, or a revision request.
type Turn struct {
	TurnNumber       int             `json:"turn_number"`
	StateName        string          `json:"state_name"`
	ToolName         string          `json:"tool_name"`
	Timestamp        time.Time       `json:"timestamp"`
	ArtifactData     json.RawMessage `json:"artifact_data"`
	RevisionOf       *int            `json:"revision_of,omitempty"`
	RevisionFeedback string          `json:"revision_feedback,omitempty"`
}

// IsMeta reports whether this turn is a meta-turn (currently only
// revision requests) rather than a submitted work artifact.
func (t *Turn) IsMeta() bool {
	return t.StateName == MetaStateRevisionRequest
}

// TaskManifest is the O(1)-lookup sibling of the turn log: the latest
// turn number observed per state, plus summary counters.
type TaskManifest struct {
	TaskID            string         `json:"task_id"`
	CreatedAt         time.Time      `json:"created_at"`
	LastUpdated       time.Time      `json:"last_updated"`
	CurrentState      string         `json:"current_state"`
	TotalTurns        int            `json:"total_turns"`
	LatestTurnsByState map[string]int `json:"latest_turns_by_state"`
}

// NewTaskManifest creates an empty manifest for a newly observed task.
func NewTaskManifest(taskID string) *TaskManifest {
	now := time.Now().UTC()
	return &TaskManifest{
		TaskID:             taskID,
		CreatedAt:          now,
		LastUpdated:        now,
		LatestTurnsByState: make(map[string]int),
	}
}

// RecordTurn folds a newly-appended turn into the manifest. Meta turns
// update TotalTurns and LastUpdated but are excluded from
// LatestTurnsByState, per the invariant that latest_turns_by_state[s]
// tracks only genuine work/review states.
func (m *TaskManifest) RecordTurn(t *Turn, currentState string) {
	m.TotalTurns = t.TurnNumber
	m.LastUpdated = t.Timestamp
	m.CurrentState = currentState
	if !t.IsMeta() {
		if m.LatestTurnsByState == nil {
			m.LatestTurnsByState = make(map[string]int)
		}
		m.LatestTurnsByState[t.StateName] = t.TurnNumber
	}
}
