package workflow

import (
	"sync"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

// Engine evaluates transitions over a set of built graphs. It holds no
// per-task state — every method takes the tool name (which selects the
// graph) and current state explicitly — so a single Engine is shared
// across every task and tool for the process's lifetime.
type Engine struct {
	mu     sync.RWMutex
	graphs map[string]*Graph
}

// NewEngine creates an engine with no graphs registered.
func NewEngine() *Engine {
	return &Engine{graphs: make(map[string]*Graph)}
}

// Register adds a built graph under its tool name. Building graphs is
// deterministic (I5): calling Build twice on the same inputs and
// registering both yields byte-identical transition sets, so Register
// is idempotent in effect even though it overwrites the map entry.
func (e *Engine) Register(g *Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.graphs[g.ToolName] = g
}

// Graph returns the registered graph for a tool name, or nil.
func (e *Engine) Graph(toolName string) *Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graphs[toolName]
}

// ExecuteTrigger fires trigger from currentState in the named tool's
// graph and returns the resulting state.
func (e *Engine) ExecuteTrigger(toolName, currentState, trigger string) (string, error) {
	g := e.Graph(toolName)
	if g == nil {
		return "", unknownTool(toolName)
	}
	return g.ExecuteTrigger(currentState, trigger)
}

// ValidTriggers returns the triggers available from currentState in the
// named tool's graph.
func (e *Engine) ValidTriggers(toolName, currentState string) []string {
	g := e.Graph(toolName)
	if g == nil {
		return nil
	}
	return g.ValidTriggers(currentState)
}

// IsTerminal reports whether state is the named tool's terminal state.
func (e *Engine) IsTerminal(toolName, state string) bool {
	g := e.Graph(toolName)
	if g == nil {
		return false
	}
	return g.IsTerminal(state)
}

func unknownTool(name string) error {
	return alferrors.Fatalf("workflow: no graph registered for tool %q", name)
}
