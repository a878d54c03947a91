package taskfile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// Provider is the built-in TaskProvider: task definitions are markdown
// files under tasksRoot, one per task_id. task_status on the returned
// Task is a local cache only — internal/store's TaskState is what the
// rest of the system actually trusts for status.
type Provider struct {
	tasksRoot string

	mu    sync.Mutex
	cache map[string]*model.Task
}

var _ model.TaskProvider = (*Provider)(nil)

// New returns a Provider rooted at tasksRoot. The directory is created
// lazily on first write; reads against a missing directory just see no
// tasks.
func New(tasksRoot string) *Provider {
	return &Provider{tasksRoot: tasksRoot, cache: make(map[string]*model.Task)}
}

func (p *Provider) path(taskID string) string {
	return filepath.Join(p.tasksRoot, taskID+".md")
}

// GetTask reads and parses {tasks_root}/{task_id}.md, caching the
// result. A cached task_status (set by a prior UpdateTaskStatus call)
// is preserved across reloads so repeated lookups don't clobber it
// with the file's always-"new" baseline.
func (p *Provider) GetTask(_ context.Context, taskID string) (*model.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(taskID)
}

func (p *Provider) loadLocked(taskID string) (*model.Task, error) {
	data, err := os.ReadFile(p.path(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, alferrors.NotFoundf("task %s not found", taskID)
		}
		return nil, alferrors.Fatalf("reading task %s: %v", taskID, err)
	}
	task, err := ParseTask(taskID, data)
	if err != nil {
		return nil, err
	}
	if cached, ok := p.cache[taskID]; ok {
		task.TaskStatus = cached.TaskStatus
	}
	p.cache[taskID] = task
	return task, nil
}

// GetAllTasks parses every *.md file under tasksRoot. A missing root
// directory is treated as zero tasks rather than an error.
func (p *Provider) GetAllTasks(_ context.Context) ([]*model.Task, error) {
	entries, err := os.ReadDir(p.tasksRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, alferrors.Fatalf("reading tasks root %s: %v", p.tasksRoot, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var tasks []*model.Task
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		taskID := strings.TrimSuffix(e.Name(), ".md")
		task, err := p.loadLocked(taskID)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].TaskID < tasks[j].TaskID })
	return tasks, nil
}

// GetNextTask is the provider's own convenience recommendation,
// independent of internal/router's status-aware ranking: the
// lexicographically first task not already done, by the provider's
// cached notion of status. The "work_on_task"/"get_next_task" MCP
// operations rank over internal/store's authoritative TaskState
// instead and do not call this method.
func (p *Provider) GetNextTask(ctx context.Context) (*model.ToolResponse, error) {
	tasks, err := p.GetAllTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.TaskStatus != model.StatusDone {
			return model.SuccessResponse("next task", "", map[string]any{"task_id": t.TaskID}), nil
		}
	}
	return model.SuccessResponse("no remaining tasks", "", map[string]any{}), nil
}

// UpdateTaskStatus updates the provider's local cache of a task's
// status. The markdown file itself carries no status field (see
// ParseTask), so this never rewrites the file; it exists so the core
// can keep the provider's view in sync with the authoritative state
// store for providers (Jira, Linear, ...) where it would matter.
func (p *Provider) UpdateTaskStatus(ctx context.Context, taskID string, newStatus model.TaskStatus) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	task, ok := p.cache[taskID]
	if !ok {
		loaded, err := p.loadLocked(taskID)
		if err != nil {
			return false, err
		}
		task = loaded
	}
	task.TaskStatus = newStatus
	p.cache[taskID] = task
	return true, nil
}

// CreateTask writes a new task definition file. It fails if one
// already exists for this task_id.
func (p *Provider) CreateTask(_ context.Context, task *model.Task) error {
	path := p.path(task.TaskID)
	if _, err := os.Stat(path); err == nil {
		return alferrors.InvalidStatef("task %s already exists", task.TaskID)
	}
	if err := os.MkdirAll(p.tasksRoot, 0o755); err != nil {
		return alferrors.Fatalf("creating tasks root %s: %v", p.tasksRoot, err)
	}
	if task.AcceptanceCriteria == nil {
		task.AcceptanceCriteria = []string{}
	}
	if err := os.WriteFile(path, RenderTask(task), 0o644); err != nil {
		return alferrors.Fatalf("writing task %s: %v", task.TaskID, err)
	}

	p.mu.Lock()
	p.cache[task.TaskID] = task
	p.mu.Unlock()
	return nil
}
