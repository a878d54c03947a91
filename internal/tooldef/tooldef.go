// Package tooldef holds the static, process-wide table of Alfred's
// workflow and simple tool definitions: a Registry value built once
// at startup and read-only thereafter, exactly the way the reference
// server keeps its tool registry as a value constructed in main and
// passed by reference rather than mutable package state.
package tooldef

import (
	"fmt"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// Registry is the validated, read-only table of every ToolDefinition.
type Registry struct {
	tools map[string]*model.ToolDefinition
	order []string
}

// NewRegistry validates and wraps a list of tool definitions. It
// enforces the load-time shape invariants from the design: workflow
// tools need a full state-machine description, simple tools need
// exactly a logic function, and dispatch_on_init tools need a dispatch
// state that is also their initial state.
func NewRegistry(defs []*model.ToolDefinition) (*Registry, error) {
	r := &Registry{tools: make(map[string]*model.ToolDefinition, len(defs))}
	for _, d := range defs {
		if err := validate(d); err != nil {
			return nil, err
		}
		if _, exists := r.tools[d.Name]; exists {
			return nil, alferrors.Fatalf("tooldef: duplicate tool name %q", d.Name)
		}
		r.tools[d.Name] = d
		r.order = append(r.order, d.Name)
	}
	return r, nil
}

func validate(d *model.ToolDefinition) error {
	if d.Name == "" {
		return alferrors.Fatalf("tooldef: tool definition with empty name")
	}
	switch d.Kind {
	case model.KindWorkflow:
		if len(d.WorkStates) == 0 {
			return alferrors.Fatalf("tooldef: workflow tool %q has no work states", d.Name)
		}
		if d.TerminalState == "" {
			return alferrors.Fatalf("tooldef: workflow tool %q has no terminal state", d.Name)
		}
		if d.InitialState == "" {
			return alferrors.Fatalf("tooldef: workflow tool %q has no initial state", d.Name)
		}
		if len(d.EntryStatuses) == 0 {
			return alferrors.Fatalf("tooldef: workflow tool %q has no entry statuses", d.Name)
		}
		if !d.HasExitStatus {
			return alferrors.Fatalf("tooldef: workflow tool %q declares no exit_status", d.Name)
		}
		if d.Logic != nil {
			return alferrors.Fatalf("tooldef: workflow tool %q must not declare Logic", d.Name)
		}
		if d.DispatchOnInit {
			if d.DispatchState == "" {
				return alferrors.Fatalf("tooldef: tool %q has dispatch_on_init but no dispatch state", d.Name)
			}
			if d.InitialState != d.DispatchState {
				return alferrors.Fatalf("tooldef: tool %q has dispatch_on_init but initial_state != dispatch_state", d.Name)
			}
		}
	case model.KindSimple:
		if len(d.WorkStates) != 0 || d.TerminalState != "" || d.InitialState != "" || len(d.EntryStatuses) != 0 {
			return alferrors.Fatalf("tooldef: simple tool %q must not declare state-machine fields", d.Name)
		}
		if d.Logic == nil {
			return alferrors.Fatalf("tooldef: simple tool %q has no logic function", d.Name)
		}
	default:
		return alferrors.Fatalf("tooldef: tool %q has unknown kind", d.Name)
	}
	return nil
}

// Get returns the named tool's definition, or false if unknown.
func (r *Registry) Get(name string) (*model.ToolDefinition, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// MustGet is Get but panics on an unknown name; reserved for startup
// wiring where an unknown tool name is a programmer error, not a
// runtime condition.
func (r *Registry) MustGet(name string) *model.ToolDefinition {
	d, ok := r.tools[name]
	if !ok {
		panic(fmt.Sprintf("tooldef: unknown tool %q", name))
	}
	return d
}

// All returns every tool definition, in registration order.
func (r *Registry) All() []*model.ToolDefinition {
	out := make([]*model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// ToolForStatus scans entry_statuses across every workflow tool and
// returns the one that accepts status. Definitions must be curated so
// that at most one tool claims a given non-terminal status; the first
// match (in registration order) wins if curation ever slips.
func (r *Registry) ToolForStatus(status model.TaskStatus) (*model.ToolDefinition, bool) {
	for _, name := range r.order {
		d := r.tools[name]
		if d.Kind != model.KindWorkflow {
			continue
		}
		if d.EntryStatuses[status] {
			return d, true
		}
	}
	return nil, false
}
