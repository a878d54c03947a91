package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alfred-dev/alfred/internal/model"
)

func (s *Store) scratchpadPath(taskID string) string {
	return s.taskDir(taskID) + "/scratchpad.md"
}

// RegenerateScratchpad rebuilds the human-readable markdown view of a
// task from its turn log. The scratchpad is disposable — entirely
// derived from the turn log — and is regenerated wholesale after every
// submit rather than patched incrementally.
func (s *Store) RegenerateScratchpad(task *model.Task, state *model.TaskState) error {
	turns, err := s.LoadAllTurns(task.TaskID)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Task %s\n\n", task.TaskID)
	fmt.Fprintf(&b, "**Status:** %s\n\n", state.TaskStatus)
	if state.ActiveToolState != nil {
		fmt.Fprintf(&b, "**Active tool:** %s (%s)\n\n", state.ActiveToolState.ToolName, state.ActiveToolState.CurrentState)
	}

	latest := make(map[string]*model.Turn)
	var order []string
	var revisions []*model.Turn
	for _, t := range turns {
		if t.IsMeta() {
			revisions = append(revisions, t)
			continue
		}
		if _, seen := latest[t.StateName]; !seen {
			order = append(order, t.StateName)
		}
		latest[t.StateName] = t
	}
	sort.Strings(order)

	for _, state := range order {
		t := latest[state]
		fmt.Fprintf(&b, "## %s (turn %d)\n\n", state, t.TurnNumber)
		b.WriteString(renderArtifact(t.ArtifactData))
		b.WriteString("\n\n")
	}

	if len(revisions) > 0 {
		b.WriteString("## Revision History\n\n")
		for _, r := range revisions {
			fmt.Fprintf(&b, "- turn %d: %s\n", r.TurnNumber, r.RevisionFeedback)
		}
	}

	return writeAtomic(s.scratchpadPath(task.TaskID), []byte(b.String()), 0o644)
}

func renderArtifact(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "_(no artifact)_"
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return string(raw)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- **%s**: %v\n", k, fields[k])
	}
	return b.String()
}
