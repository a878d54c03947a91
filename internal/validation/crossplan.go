package validation

import (
	"sort"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

// CrossCheckImplementationManifest checks that an implementation
// manifest's completed_subtasks is a superset of the subtask_ids
// recorded in the earlier implementation-plan artifact. A missing
// subtask produces an error naming the completion percentage and the
// missing set; extra completed subtasks not in the plan are silently
// accepted.
func CrossCheckImplementationManifest(plan map[string]any, manifest map[string]any) error {
	planned := subtaskIDs(plan)
	if len(planned) == 0 {
		return nil
	}

	completed := stringSet(manifest["completed_subtasks"])

	var missing []string
	for _, id := range planned {
		if !completed[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	done := len(planned) - len(missing)
	pct := (100*done + len(planned)/2) / len(planned) // rounds to nearest integer percent
	return alferrors.ValidationErrorf(
		"implementation manifest incomplete: %d%% of subtasks done, missing %v", pct, missing)
}

func subtaskIDs(plan map[string]any) []string {
	raw, ok := plan["subtasks"].([]any)
	if !ok {
		return nil
	}
	var ids []string
	for _, item := range raw {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := entry["subtask_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func stringSet(v any) map[string]bool {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	set := make(map[string]bool, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			set[s] = true
		}
	}
	return set
}
