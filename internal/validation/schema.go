// Package validation schema-checks submitted artifacts against the
// per-(tool, work_state) JSON Schemas declared in a ToolDefinition's
// artifact_map, normalizes the operation field before validating, and
// runs the implementation-manifest cross-plan check.
package validation

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// Schema wraps a compiled JSON Schema so internal/model's ArtifactSchema
// interface has a concrete implementation without internal/model
// depending on the schema compiler.
type Schema struct {
	name     string
	compiled *jsonschema.Schema
}

// Compile parses and compiles a JSON Schema document (already decoded
// into Go values, e.g. via json.Unmarshal into `any`) under the given
// name, used only in error messages.
func Compile(name string, schemaDoc any) (*Schema, error) {
	c := jsonschema.NewCompiler()
	resourceName := name + ".json"
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return nil, alferrors.Fatalf("adding schema resource %s: %v", name, err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return nil, alferrors.Fatalf("compiling schema %s: %v", name, err)
	}
	return &Schema{name: name, compiled: compiled}, nil
}

// ValidateAndNormalize applies the operation-field upper-casing
// normalization, then validates the result against the compiled
// schema. Both the normalized artifact and any validation error are
// returned; on error the artifact is still the normalized one, for the
// caller to include in diagnostics if useful.
func (s *Schema) ValidateAndNormalize(raw map[string]any) (map[string]any, error) {
	normalized := NormalizeOperations(raw)
	if err := s.compiled.Validate(normalized); err != nil {
		return normalized, alferrors.ValidationErrorf("artifact failed schema %q: %v", s.name, err)
	}
	return normalized, nil
}

var _ model.ArtifactSchema = (*Schema)(nil)

// NormalizeOperations returns a deep copy of v with every "operation"
// field (at any nesting depth, including inside arrays such as
// file_breakdown or subtasks) upper-cased, so "create" and "Create"
// both validate against an enum of upper-case values. No other
// normalization is applied.
func NormalizeOperations(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if k == "operation" {
			if s, ok := val.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
		}
		out[k] = normalizeValue(val)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return NormalizeOperations(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
