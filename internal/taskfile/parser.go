// Package taskfile is Alfred's default TaskProvider: task definitions
// live as line-oriented markdown files under {tasks_root}/{task_id}.md.
// Grounded in the reference's own line-oriented entity parsers
// (internal/emergent's object parsing), this is a hand-rolled scanner
// rather than a markdown library — no library in the pack targets this
// exact ad-hoc `## `-section format.
package taskfile

import (
	"bufio"
	"strings"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

const (
	sectionTitle                 = "title"
	sectionContext               = "context"
	sectionImplementationDetails = "implementation details"
	sectionAcceptanceCriteria    = "acceptance criteria"
	sectionPriority              = "priority"
	sectionDevNotes              = "dev notes"
	sectionACVerification        = "ac verification"
	sectionDependencies          = "dependencies"
)

// ParseTask parses one task definition file's contents. The first line
// must be "# TASK: {task_id}"; section headers are "## {name}",
// matched case-insensitively. taskID is the file's expected task_id,
// used only to validate the header matches the filename.
func ParseTask(taskID string, data []byte) (*model.Task, error) {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))

	if !scanner.Scan() {
		return nil, alferrors.Fatalf("task file for %s is empty", taskID)
	}
	header := strings.TrimSpace(scanner.Text())
	const headerPrefix = "# TASK:"
	if !strings.HasPrefix(header, headerPrefix) {
		return nil, alferrors.Fatalf("task file for %s: expected header %q, got %q", taskID, headerPrefix, header)
	}
	headerTaskID := strings.TrimSpace(strings.TrimPrefix(header, headerPrefix))
	if headerTaskID != "" && headerTaskID != taskID {
		return nil, alferrors.Fatalf("task file for %s: header declares task_id %q", taskID, headerTaskID)
	}

	sections := make(map[string][]string)
	var current string
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "## ") {
			current = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "## ")))
			continue
		}
		if current == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	if err := scanner.Err(); err != nil {
		return nil, alferrors.Fatalf("reading task file for %s: %v", taskID, err)
	}

	task := &model.Task{TaskID: taskID, TaskStatus: model.StatusNew}
	task.Title = joinLines(sections[sectionTitle])
	task.Context = joinLines(sections[sectionContext])
	task.ImplementationDetails = joinLines(sections[sectionImplementationDetails])
	task.AcceptanceCriteria = listItems(sections[sectionAcceptanceCriteria])
	task.ACVerificationSteps = listItems(sections[sectionACVerification])
	task.DevNotes = joinLines(sections[sectionDevNotes])

	if task.Title == "" {
		return nil, alferrors.ValidationErrorf("task file for %s: missing required ## Title section", taskID)
	}
	if task.Context == "" {
		return nil, alferrors.ValidationErrorf("task file for %s: missing required ## Context section", taskID)
	}
	if task.ImplementationDetails == "" {
		return nil, alferrors.ValidationErrorf("task file for %s: missing required ## Implementation Details section", taskID)
	}
	if len(task.AcceptanceCriteria) == 0 {
		return nil, alferrors.ValidationErrorf("task file for %s: missing required ## Acceptance Criteria section", taskID)
	}

	return task, nil
}

func joinLines(lines []string) string {
	var nonEmpty []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(l))
		}
	}
	return strings.Join(nonEmpty, "\n")
}

// listItems extracts "- item" bullet lines, in order, ignoring blanks
// and anything not starting with a dash.
func listItems(lines []string) []string {
	var items []string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "-") {
			items = append(items, strings.TrimSpace(strings.TrimPrefix(trimmed, "-")))
		}
	}
	return items
}

// RenderTask serializes a Task back into the on-disk markdown format,
// for CreateTask and for caching a remote provider's response locally.
func RenderTask(task *model.Task) []byte {
	var b strings.Builder
	b.WriteString("# TASK: " + task.TaskID + "\n\n")
	b.WriteString("## Title\n" + task.Title + "\n\n")
	b.WriteString("## Context\n" + task.Context + "\n\n")
	b.WriteString("## Implementation Details\n" + task.ImplementationDetails + "\n\n")
	b.WriteString("## Acceptance Criteria\n")
	for _, ac := range task.AcceptanceCriteria {
		b.WriteString("- " + ac + "\n")
	}
	b.WriteString("\n")
	if len(task.ACVerificationSteps) > 0 {
		b.WriteString("## AC Verification\n")
		for _, step := range task.ACVerificationSteps {
			b.WriteString("- " + step + "\n")
		}
		b.WriteString("\n")
	}
	if task.DevNotes != "" {
		b.WriteString("## Dev Notes\n" + task.DevNotes + "\n\n")
	}
	return []byte(b.String())
}
