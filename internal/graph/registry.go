package graph

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/schema"
)

// The registry is the single source of truth for which node types exist and
// what payload a freshly created node of each type starts with. Other
// components consult it before trusting a node's data shape.

var registeredTypes = map[schema.NodeType]bool{
	schema.NodeTypeTrigger: true,
	schema.NodeTypeEvent:   true,
	schema.NodeTypeAction:  true,
	schema.NodeTypeSwitch:  true,
	schema.NodeTypeFilter:  true,
}

// KnownType reports whether t is a registered node type.
func KnownType(t schema.NodeType) bool {
	return registeredTypes[t]
}

// DefaultData returns the default payload for a freshly created node of the
// given type. Unknown types fail with UNKNOWN_NODE_TYPE.
func DefaultData(t schema.NodeType) (json.RawMessage, error) {
	switch t {
	case schema.NodeTypeTrigger, schema.NodeTypeEvent:
		return mustMarshal(schema.EventData{}), nil
	case schema.NodeTypeAction:
		return mustMarshal(schema.ActionData{
			Label:    "Email",
			Subject:  schema.SubjectSpec{Mode: "custom"},
			Sections: []json.RawMessage{},
		}), nil
	case schema.NodeTypeSwitch:
		// A new switch starts with exactly one case holding one rule with an
		// empty eventId pending user selection, and one input socket.
		return mustMarshal(schema.SwitchData{
			Conditions: []json.RawMessage{mustMarshal(SeedCase(""))},
			InputIDs:   []string{"input-1"},
		}), nil
	case schema.NodeTypeFilter:
		return mustMarshal(schema.FilterData{}), nil
	default:
		return nil, schema.NewErrorf(schema.ErrCodeUnknownNodeType, "unknown node type: %s", t)
	}
}

// SeedCase builds the one-case-one-rule starting condition for a switch,
// defaulting the rule's event to eventID (may be empty).
func SeedCase(eventID string) schema.Case {
	return schema.Case{
		ID:    uuid.NewString(),
		Logic: schema.LogicAnd,
		Rules: []schema.Rule{{
			ID:       uuid.NewString(),
			EventID:  eventID,
			Operator: schema.OpHasOccurred,
		}},
	}
}

// NewNode creates a node of the given type at pos with a fresh id and the
// registry's default payload.
func NewNode(t schema.NodeType, pos schema.Position) (schema.Node, error) {
	data, err := DefaultData(t)
	if err != nil {
		return schema.Node{}, err
	}
	return schema.Node{
		ID:       uuid.NewString(),
		Type:     t,
		Position: pos,
		Data:     data,
	}, nil
}
