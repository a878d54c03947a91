package validation

import (
	"encoding/json"

	"github.com/alfred-dev/alfred/internal/alferrors"
	"github.com/alfred-dev/alfred/internal/model"
)

// rawSchema decodes a JSON Schema literal into the `any` tree the
// compiler expects.
func rawSchema(doc string) any {
	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		panic("validation: invalid built-in schema literal: " + err.Error())
	}
	return v
}

const discoverySchemaDoc = `{
  "type": "object",
  "required": ["findings", "files_to_modify", "complexity"],
  "properties": {
    "findings": {"type": "string", "minLength": 1},
    "questions": {"type": "array", "items": {"type": "string"}},
    "files_to_modify": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "complexity": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
    "implementation_context": {"type": "object"}
  }
}`

const implementationPlanSchemaDoc = `{
  "type": "object",
  "required": ["subtasks"],
  "properties": {
    "summary": {"type": "string"},
    "subtasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["subtask_id", "description", "operation"],
        "properties": {
          "subtask_id": {"type": "string", "minLength": 1},
          "description": {"type": "string", "minLength": 1},
          "operation": {"type": "string", "enum": ["CREATE", "MODIFY", "DELETE"]}
        }
      }
    }
  }
}`

const implementationManifestSchemaDoc = `{
  "type": "object",
  "required": ["completed_subtasks"],
  "properties": {
    "completed_subtasks": {"type": "array", "items": {"type": "string"}},
    "notes": {"type": "string"}
  }
}`

const reviewSchemaDoc = `{
  "type": "object",
  "required": ["approved"],
  "properties": {
    "approved": {"type": "boolean"},
    "comments": {"type": "string"}
  }
}`

const testReportSchemaDoc = `{
  "type": "object",
  "required": ["all_passed"],
  "properties": {
    "all_passed": {"type": "boolean"},
    "failures": {"type": "array", "items": {"type": "string"}}
  }
}`

// BuiltInSchemas compiles every schema the core's own phases use,
// returning them keyed by (tool_name, work_state) so callers can assign
// them directly onto the matching ToolDefinition.ArtifactMap.
func BuiltInSchemas() (map[string]map[string]model.ArtifactSchema, error) {
	specs := []struct {
		tool, state, doc string
	}{
		{"plan_task", "discovery", discoverySchemaDoc},
		{"plan_task", "implementation_plan", implementationPlanSchemaDoc},
		{"implement_task", "implementing", implementationManifestSchemaDoc},
		{"review_task", "code_review", reviewSchemaDoc},
		{"test_task", "testing", testReportSchemaDoc},
	}

	out := make(map[string]map[string]model.ArtifactSchema)
	for _, sp := range specs {
		compiled, err := Compile(sp.tool+"."+sp.state, rawSchema(sp.doc))
		if err != nil {
			return nil, alferrors.Fatalf("compiling built-in schema for %s.%s: %v", sp.tool, sp.state, err)
		}
		if out[sp.tool] == nil {
			out[sp.tool] = make(map[string]model.ArtifactSchema)
		}
		out[sp.tool][sp.state] = compiled
	}
	return out, nil
}

// ApplyTo assigns each (tool, state) schema onto the matching
// definition's ArtifactMap. Definitions not present in schemas are
// left untouched — absence of a schema means "accept any JSON object",
// exactly as spec.md §4.7 describes.
func ApplyTo(defs []*model.ToolDefinition, schemas map[string]map[string]model.ArtifactSchema) {
	for _, d := range defs {
		perState, ok := schemas[d.Name]
		if !ok {
			continue
		}
		if d.ArtifactMap == nil {
			d.ArtifactMap = make(map[string]model.ArtifactSchema)
		}
		for state, schema := range perState {
			d.ArtifactMap[state] = schema
		}
	}
}
