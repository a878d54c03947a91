// Package prompttemplate is Alfred's default Template Renderer: Go
// text/template files embedded into the binary via go:embed, keyed by
// "{tool_name}.{state}", with the two sentinel keys "review.ai_review"
// and "review.human_review" standing in for every `_awaiting_*_review`
// state across every tool. A missing template is a hard error — the
// core does not guess at prompt text.
package prompttemplate

import (
	"embed"
	"strings"
	"text/template"

	"github.com/alfred-dev/alfred/internal/alferrors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer compiles every embedded template once at construction and
// serves Render calls against the compiled set; the cache is read-only
// after startup, per the concurrency model's shared-state rules.
type Renderer struct {
	templates map[string]*template.Template
}

// New compiles the embedded templates. Construction failure (a
// malformed template file shipped with the binary) is a startup-time
// fatal error, not a runtime one.
func New() (*Renderer, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, alferrors.Fatalf("reading embedded templates: %v", err)
	}

	r := &Renderer{templates: make(map[string]*template.Template, len(entries))}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".tmpl")
		data, err := templateFS.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, alferrors.Fatalf("reading template %s: %v", e.Name(), err)
		}
		tmpl, err := template.New(key).Parse(string(data))
		if err != nil {
			return nil, alferrors.Fatalf("parsing template %s: %v", e.Name(), err)
		}
		r.templates[key] = tmpl
	}
	return r, nil
}

// PromptKey resolves a (tool_name, state) pair to its template key. A
// review state always maps to one of the two sentinel keys regardless
// of which tool or work state it belongs to.
func PromptKey(toolName, state string) string {
	switch {
	case strings.HasSuffix(state, "_awaiting_ai_review"):
		return "review.ai_review"
	case strings.HasSuffix(state, "_awaiting_human_review"):
		return "review.human_review"
	default:
		return toolName + "." + state
	}
}

// Render renders the template for promptKey against ctx. A missing
// template is a hard, surfaced error.
func (r *Renderer) Render(promptKey string, ctx map[string]any) (string, error) {
	tmpl, ok := r.templates[promptKey]
	if !ok {
		return "", alferrors.NotFoundf("no prompt template registered for key %q", promptKey)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, ctx); err != nil {
		return "", alferrors.Fatalf("rendering template %q: %v", promptKey, err)
	}
	return b.String(), nil
}
