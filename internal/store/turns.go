package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

func (s *Store) turnsDir(taskID string) string {
	return filepath.Join(s.taskDir(taskID), "turns")
}

func (s *Store) manifestPath(taskID string) string {
	return filepath.Join(s.taskDir(taskID), "manifest.json")
}

// turnFileNames lists the turns directory in turn_number order. File
// names sort lexicographically the same as numerically because the
// turn number is zero-padded to three digits.
func (s *Store) turnFileNames(taskID string) ([]string, error) {
	entries, err := os.ReadDir(s.turnsDir(taskID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, alferrors.Fatalf("listing turns for %s: %v", taskID, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// nextTurnNumber derives the next turn number from a directory scan,
// never from timestamps — timestamps are for humans, not ordering.
func (s *Store) nextTurnNumber(taskID string) (int, error) {
	names, err := s.turnFileNames(taskID)
	if err != nil {
		return 0, err
	}
	return len(names) + 1, nil
}

// AppendTurn assigns the turn its dense 1-indexed turn number, writes
// it atomically as "{turn_number:03d}-{state_name}-{timestamp}.json",
// and returns the now-complete Turn. Callers must hold the task's lock.
func (s *Store) AppendTurn(taskID string, turn *model.Turn) (*model.Turn, error) {
	n, err := s.nextTurnNumber(taskID)
	if err != nil {
		return nil, err
	}
	turn.TurnNumber = n
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	data, err := json.MarshalIndent(turn, "", "  ")
	if err != nil {
		return nil, alferrors.Fatalf("marshaling turn %d for %s: %v", n, taskID, err)
	}

	name := turnFileName(n, turn.StateName, turn.Timestamp)
	path := filepath.Join(s.turnsDir(taskID), name)
	if err := writeAtomic(path, data, 0o644); err != nil {
		return nil, err
	}
	return turn, nil
}

func turnFileName(n int, state string, ts time.Time) string {
	return fmt.Sprintf("%03d-%s-%d.json", n, state, ts.Unix())
}

// LoadAllTurns returns every turn for a task in turn_number order.
func (s *Store) LoadAllTurns(taskID string) ([]*model.Turn, error) {
	names, err := s.turnFileNames(taskID)
	if err != nil {
		return nil, err
	}
	turns := make([]*model.Turn, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.turnsDir(taskID), name))
		if err != nil {
			return nil, alferrors.Fatalf("reading turn file %s: %v", name, err)
		}
		var t model.Turn
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, alferrors.Fatalf("corrupt turn file %s: %v", name, err)
		}
		turns = append(turns, &t)
	}
	return turns, nil
}

// LatestArtifactsByState folds the turn log, keeping the last artifact
// per state_name and skipping meta turns (revision requests).
func (s *Store) LatestArtifactsByState(taskID string) (map[string]json.RawMessage, error) {
	turns, err := s.LoadAllTurns(taskID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]json.RawMessage)
	for _, t := range turns {
		if t.IsMeta() {
			continue
		}
		out[t.StateName] = t.ArtifactData
	}
	return out, nil
}

// LoadManifest reads a task's manifest, creating a fresh empty one if
// none exists yet.
func (s *Store) LoadManifest(taskID string) (*model.TaskManifest, error) {
	data, err := os.ReadFile(s.manifestPath(taskID))
	if os.IsNotExist(err) {
		return model.NewTaskManifest(taskID), nil
	}
	if err != nil {
		return nil, alferrors.Fatalf("reading manifest for %s: %v", taskID, err)
	}
	var m model.TaskManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, alferrors.Fatalf("corrupt manifest JSON for %s: %v", taskID, err)
	}
	if m.LatestTurnsByState == nil {
		m.LatestTurnsByState = make(map[string]int)
	}
	return &m, nil
}

// SaveManifest atomically persists a task's manifest.
func (s *Store) SaveManifest(m *model.TaskManifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return alferrors.Fatalf("marshaling manifest for %s: %v", m.TaskID, err)
	}
	return writeAtomic(s.manifestPath(m.TaskID), data, 0o644)
}
