// Package router implements status routing: pure lookups over the tool
// definitions registry answering "what runs next?" without touching
// any task's persisted state.
package router

import (
	"sort"
	"strconv"
	"strings"

	"github.com/alfred-dev/alfred/internal/model"
	"github.com/alfred-dev/alfred/internal/tooldef"
)

// Router answers status-routing queries against a read-only registry.
type Router struct {
	registry *tooldef.Registry
}

// New builds a Router over registry.
func New(registry *tooldef.Registry) *Router {
	return &Router{registry: registry}
}

// ToolForStatus scans entry_statuses across all tools and returns the
// one willing to start from status.
func (r *Router) ToolForStatus(status model.TaskStatus) (*model.ToolDefinition, bool) {
	return r.registry.ToolForStatus(status)
}

// NextStatus finds the tool owning status and returns its exit_status.
func (r *Router) NextStatus(status model.TaskStatus) (model.TaskStatus, bool) {
	d, ok := r.registry.ToolForStatus(status)
	if !ok || !d.HasExitStatus {
		return "", false
	}
	return d.ExitStatus, true
}

// IsTerminal reports whether status is the lifecycle's terminal status.
func (r *Router) IsTerminal(status model.TaskStatus) bool {
	return status == model.StatusDone
}

// NextTaskCandidate is one task considered by GetNextTask's ranking.
type NextTaskCandidate struct {
	Task *model.Task
	Rank rankKey
}

// rankKey is the lexicographic sort key from spec.md §4.6:
// (is_in_progress_phase, is_ready_phase, numeric_suffix_of_task_id).
// Lower sorts first; both phase indicators are inverted (0 beats 1) so
// that in-progress work is recommended ahead of ready-but-unstarted
// work, which in turn is recommended ahead of brand-new work. The
// suffix is not inverted: lower task numbers sort first, boosting
// older tasks within the same phase.
type rankKey struct {
	notInProgress int
	notReady      int
	suffix        int
}

func less(a, b rankKey) bool {
	if a.notInProgress != b.notInProgress {
		return a.notInProgress < b.notInProgress
	}
	if a.notReady != b.notReady {
		return a.notReady < b.notReady
	}
	return a.suffix < b.suffix
}

// inProgressStatuses are statuses where a tool is mid-phase in spec
// authoring, task breakdown, development, review, testing or
// finalization. Planning ranks with the ready statuses instead, and
// "new" is in neither set, so it ranks last.
var inProgressStatuses = map[model.TaskStatus]bool{
	model.StatusCreatingSpec:   true,
	model.StatusCreatingTasks:  true,
	model.StatusInDevelopment:  true,
	model.StatusInReview:       true,
	model.StatusInTesting:      true,
	model.StatusInFinalization: true,
}

var readyStatuses = map[model.TaskStatus]bool{
	model.StatusPlanning:             true,
	model.StatusSpecCompleted:        true,
	model.StatusTasksCreated:         true,
	model.StatusReadyForDevelopment:  true,
	model.StatusReadyForReview:       true,
	model.StatusRevisionsRequested:   true,
	model.StatusReadyForTesting:      true,
	model.StatusReadyForFinalization: true,
}

func keyFor(task *model.Task) rankKey {
	k := rankKey{notInProgress: 1, notReady: 1}
	if inProgressStatuses[task.TaskStatus] {
		k.notInProgress = 0
	} else if readyStatuses[task.TaskStatus] {
		k.notReady = 0
	}
	k.suffix = numericSuffix(task.TaskID)
	return k
}

// numericSuffix extracts the trailing run of digits from a task_id
// (e.g. "AL-01" -> 1), treating non-numeric or absent suffixes as 0.
func numericSuffix(taskID string) int {
	i := len(taskID)
	for i > 0 && taskID[i-1] >= '0' && taskID[i-1] <= '9' {
		i--
	}
	digits := taskID[i:]
	if digits == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimLeft(digits, "0"))
	if err != nil {
		return 0
	}
	return n
}

// RankTasks orders non-done tasks by the get_next_task recommendation
// key, most-recommended first. Ties are broken by task_id for
// determinism.
func RankTasks(tasks []*model.Task) []*model.Task {
	var candidates []*model.Task
	for _, t := range tasks {
		if t.TaskStatus == model.StatusDone {
			continue
		}
		candidates = append(candidates, t)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ki, kj := keyFor(candidates[i]), keyFor(candidates[j])
		if ki != kj {
			return less(ki, kj)
		}
		return candidates[i].TaskID < candidates[j].TaskID
	})
	return candidates
}
