package graph

import (
	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/schema"
)

// completionMenu is the fixed catalog of node types offered when a connection
// is dropped over empty canvas. Triggers are seeded with the campaign, never
// materialized mid-sequence.
var completionMenu = []schema.NodeType{
	schema.NodeTypeAction,
	schema.NodeTypeSwitch,
	schema.NodeTypeFilter,
	schema.NodeTypeEvent,
}

// CompletionMenu returns the node types the connection-completion assistant
// offers.
func CompletionMenu() []schema.NodeType {
	out := make([]schema.NodeType, len(completionMenu))
	copy(out, completionMenu)
	return out
}

// CompleteConnection materializes a node of the chosen type at the release
// position and wires a zero-duration delay edge from the dragged source
// socket to it, as one atomic unit: if the edge cannot be created the new
// node is rolled back so no orphan is left behind.
func CompleteConnection(s *Store, sourceID, sourceHandle string, t schema.NodeType, pos schema.Position) (schema.Node, schema.Edge, error) {
	node, err := NewNode(t, pos)
	if err != nil {
		return schema.Node{}, schema.Edge{}, err
	}
	if err := s.AddNode(node); err != nil {
		return schema.Node{}, schema.Edge{}, err
	}

	edge := schema.Edge{
		ID:           uuid.NewString(),
		Source:       sourceID,
		Target:       node.ID,
		SourceHandle: sourceHandle,
		Type:         schema.EdgeTypeDelay,
	}
	if err := s.AddEdge(edge); err != nil {
		s.RemoveNode(node.ID)
		return schema.Node{}, schema.Edge{}, err
	}

	// AddEdge filled in the zero-delay payload; return the stored copy.
	stored, _ := s.Edge(edge.ID)
	return node, stored, nil
}
