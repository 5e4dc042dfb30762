package graph

import (
	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/schema"
)

// DefaultSnapshot seeds the starting graph for a campaign with no prior
// snapshot. Batch sequences start as a single email blast; always-on
// sequences start with a trigger wired to a first email.
func DefaultSnapshot(kind schema.SequenceKind) (schema.Snapshot, error) {
	switch kind {
	case schema.SequenceBatch:
		action, err := NewNode(schema.NodeTypeAction, schema.Position{X: 250, Y: 100})
		if err != nil {
			return schema.Snapshot{}, err
		}
		return schema.Snapshot{Nodes: []schema.Node{action}, Edges: []schema.Edge{}}, nil

	case schema.SequenceAlwaysOn:
		trigger, err := NewNode(schema.NodeTypeTrigger, schema.Position{X: 100, Y: 100})
		if err != nil {
			return schema.Snapshot{}, err
		}
		defaultEvent := schema.Catalog()[0].Events[0]
		trigger.Data = mustMarshal(schema.EventData{
			Label:     defaultEvent.Name,
			EventType: defaultEvent.Type,
		})
		action, err := NewNode(schema.NodeTypeAction, schema.Position{X: 400, Y: 100})
		if err != nil {
			return schema.Snapshot{}, err
		}
		edge := schema.Edge{
			ID:     uuid.NewString(),
			Source: trigger.ID,
			Target: action.ID,
			Type:   schema.EdgeTypeDelay,
			Data: mustMarshal(schema.EdgeData{
				Delay:     FormatDelay(schema.DelayData{}),
				DelayData: schema.DelayData{},
			}),
		}
		return schema.Snapshot{
			Nodes: []schema.Node{trigger, action},
			Edges: []schema.Edge{edge},
		}, nil

	default:
		return schema.Snapshot{}, schema.NewErrorf(schema.ErrCodeValidation, "unknown sequence kind: %s", kind)
	}
}
