package validation

import (
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/cadencehq/cadence/pkg/schema"
)

// snapshotSchemaJSON is the JSON Schema for persisted graph snapshots.
// Embedded as a constant to avoid filesystem dependencies.
const snapshotSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://cadencehq.dev/schemas/snapshot.json",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": { "$ref": "#/$defs/node" }
    },
    "edges": {
      "type": "array",
      "items": { "$ref": "#/$defs/edge" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id", "type", "data"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1
        },
        "type": {
          "type": "string",
          "enum": ["trigger", "event", "action", "switch", "filter"]
        },
        "position": {
          "type": "object",
          "properties": {
            "x": { "type": "number" },
            "y": { "type": "number" }
          }
        },
        "data": { "type": "object" }
      }
    },
    "edge": {
      "type": "object",
      "required": ["id", "source", "target"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1
        },
        "source": {
          "type": "string",
          "minLength": 1
        },
        "target": {
          "type": "string",
          "minLength": 1
        },
        "sourceHandle": { "type": "string" },
        "type": { "type": "string" },
        "data": { "type": "object" }
      }
    }
  }
}`

// SnapshotValidator validates raw snapshot documents against the snapshot
// JSON Schema. It is safe for concurrent use after construction.
type SnapshotValidator struct {
	snapshotSchema *jsonschema.Schema
}

// NewSnapshotValidator creates a validator with the snapshot schema pre-compiled.
func NewSnapshotValidator() (*SnapshotValidator, error) {
	c := jsonschema.NewCompiler()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(snapshotSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot schema: %w", err)
	}
	if err := c.AddResource("https://cadencehq.dev/schemas/snapshot.json", doc); err != nil {
		return nil, fmt.Errorf("add snapshot schema resource: %w", err)
	}

	compiled, err := c.Compile("https://cadencehq.dev/schemas/snapshot.json")
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}

	return &SnapshotValidator{snapshotSchema: compiled}, nil
}

// ValidateJSON checks a raw snapshot document against the schema. A non-nil
// error means the document must be treated as corrupt.
func (v *SnapshotValidator) ValidateJSON(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "snapshot is not valid JSON").WithCause(err)
	}
	if err := v.snapshotSchema.Validate(doc); err != nil {
		return toCadenceError(err)
	}
	return nil
}

// toCadenceError converts a jsonschema.ValidationError into a CadenceError
// carrying the individual violations as details.
func toCadenceError(err error) error {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}
	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error()).WithCause(err)
	}
	return schema.NewErrorf(schema.ErrCodeValidation, "snapshot schema validation failed: %s", violations[0]).
		WithDetails(map[string]any{"violations": violations}).
		WithCause(err)
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
