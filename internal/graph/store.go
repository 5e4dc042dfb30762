package graph

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cadencehq/cadence/pkg/schema"
)

// Store holds the canonical set of nodes and edges for one campaign's
// sequence during an editing session. It exclusively owns node/edge identity
// and lifetime; persistence holds a non-owning mirror of Snapshot().
//
// The store is safe for concurrent use: API handlers, the autosave hook and
// the publish scheduler all reach the same session graph, so every accessor
// takes the store lock. The onChange hook fires after the lock is released,
// which lets the hook read back through Snapshot without deadlocking. Order
// of nodes and edges is insertion order and is preserved by Snapshot/Restore.
type Store struct {
	mu    sync.RWMutex
	nodes []schema.Node
	edges []schema.Edge

	// onChange, when set, fires after every successful mutation. The editing
	// session wires it to the local persistence adapter (autosave).
	onChange func()
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// OnChange registers the mutation hook. Passing nil disables it.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Store) changed() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// nodeIndex and edgeIndex assume the caller holds the lock.
func (s *Store) nodeIndex(id string) int {
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) edgeIndex(id string) int {
	for i := range s.edges {
		if s.edges[i].ID == id {
			return i
		}
	}
	return -1
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (schema.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.nodeIndex(id); i >= 0 {
		return cloneNode(s.nodes[i]), true
	}
	return schema.Node{}, false
}

// Edge returns a copy of the edge with the given id.
func (s *Store) Edge(id string) (schema.Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.edgeIndex(id); i >= 0 {
		return cloneEdge(s.edges[i]), true
	}
	return schema.Edge{}, false
}

// Nodes returns a copy of all nodes in insertion order.
func (s *Store) Nodes() []schema.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneNodes()
}

// Edges returns a copy of all edges in insertion order.
func (s *Store) Edges() []schema.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneEdges()
}

func (s *Store) cloneNodes() []schema.Node {
	out := make([]schema.Node, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func (s *Store) cloneEdges() []schema.Edge {
	out := make([]schema.Edge, len(s.edges))
	for i, e := range s.edges {
		out[i] = cloneEdge(e)
	}
	return out
}

// OutgoingEdges returns the edges whose source is nodeID, in insertion order.
func (s *Store) OutgoingEdges(nodeID string) []schema.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.Edge
	for _, e := range s.edges {
		if e.Source == nodeID {
			out = append(out, cloneEdge(e))
		}
	}
	return out
}

// IncomingEdges returns the edges whose target is nodeID, in insertion order.
func (s *Store) IncomingEdges(nodeID string) []schema.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []schema.Edge
	for _, e := range s.edges {
		if e.Target == nodeID {
			out = append(out, cloneEdge(e))
		}
	}
	return out
}

// AddNode inserts a node. The node type must be registered; an empty Data
// payload is filled with the registry default for the type. Id collisions are
// rejected and leave prior state intact.
func (s *Store) AddNode(n schema.Node) error {
	s.mu.Lock()
	if n.ID == "" {
		s.mu.Unlock()
		return schema.NewError(schema.ErrCodeValidation, "node id is required")
	}
	if s.nodeIndex(n.ID) >= 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeDuplicateID, "node id already exists: %s", n.ID).WithNode(n.ID)
	}
	if len(n.Data) == 0 {
		data, err := DefaultData(n.Type)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		n.Data = data
	} else if !KnownType(n.Type) {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeUnknownNodeType, "unknown node type: %s", n.Type).WithNode(n.ID)
	}
	s.nodes = append(s.nodes, cloneNode(n))
	s.mu.Unlock()
	s.changed()
	return nil
}

// UpdateNode merges the partial payload into the node's existing data. Only
// the top-level keys present in partial are replaced, so independent editors
// of different sub-fields never clobber each other.
func (s *Store) UpdateNode(id string, partial json.RawMessage) error {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeNotFound, "node not found: %s", id).WithNode(id)
	}
	merged, err := mergeData(s.nodes[i].Data, partial)
	if err != nil {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeValidation, "merge node data: %v", err).WithNode(id)
	}
	s.nodes[i].Data = merged
	s.mu.Unlock()
	s.changed()
	return nil
}

// MoveNode updates a node's canvas position. Presentation only.
func (s *Store) MoveNode(id string, pos schema.Position) error {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeNotFound, "node not found: %s", id).WithNode(id)
	}
	s.nodes[i].Position = pos
	s.mu.Unlock()
	s.changed()
	return nil
}

// RemoveNode deletes a node and cascades to every edge whose source or target
// equals id, so no dangling edges remain. Removing an unknown id is a no-op.
func (s *Store) RemoveNode(id string) {
	s.mu.Lock()
	i := s.nodeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.nodes = append(s.nodes[:i], s.nodes[i+1:]...)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept
	s.mu.Unlock()
	s.changed()
}

// AddEdge inserts an edge. Both endpoints must reference existing nodes;
// an edge to a missing node is rejected rather than stored dangling. A delay
// edge with no payload gets a zero-duration default.
func (s *Store) AddEdge(e schema.Edge) error {
	s.mu.Lock()
	if e.ID == "" {
		s.mu.Unlock()
		return schema.NewError(schema.ErrCodeValidation, "edge id is required")
	}
	if s.edgeIndex(e.ID) >= 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeDuplicateID, "edge id already exists: %s", e.ID)
	}
	if s.nodeIndex(e.Source) < 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeDanglingEdge, "edge source references missing node: %s", e.Source)
	}
	if s.nodeIndex(e.Target) < 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeDanglingEdge, "edge target references missing node: %s", e.Target)
	}
	if e.Type == schema.EdgeTypeDelay && len(e.Data) == 0 {
		e.Data = mustMarshal(schema.EdgeData{
			Delay:     FormatDelay(schema.DelayData{}),
			DelayData: schema.DelayData{},
		})
	}
	s.edges = append(s.edges, cloneEdge(e))
	s.mu.Unlock()
	s.changed()
	return nil
}

// UpdateEdge merges the partial payload into the edge's existing data.
func (s *Store) UpdateEdge(id string, partial json.RawMessage) error {
	s.mu.Lock()
	i := s.edgeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeNotFound, "edge not found: %s", id)
	}
	merged, err := mergeData(s.edges[i].Data, partial)
	if err != nil {
		s.mu.Unlock()
		return schema.NewErrorf(schema.ErrCodeValidation, "merge edge data: %v", err)
	}
	s.edges[i].Data = merged
	s.mu.Unlock()
	s.changed()
	return nil
}

// RemoveEdge deletes an edge. Removing an unknown id is a no-op.
func (s *Store) RemoveEdge(id string) {
	s.mu.Lock()
	i := s.edgeIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.edges = append(s.edges[:i], s.edges[i+1:]...)
	s.mu.Unlock()
	s.changed()
}

// Snapshot returns a deep copy of the current graph state. Nodes and edges
// are copied under one lock acquisition, so the pair is mutually consistent.
func (s *Store) Snapshot() schema.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return schema.Snapshot{Nodes: s.cloneNodes(), Edges: s.cloneEdges()}
}

// Restore fully replaces the current state with the given snapshot. This is
// the only supported way to return to a prior state.
func (s *Store) Restore(snap schema.Snapshot) {
	s.mu.Lock()
	s.nodes = make([]schema.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		s.nodes[i] = cloneNode(n)
	}
	s.edges = make([]schema.Edge, len(snap.Edges))
	for i, e := range snap.Edges {
		s.edges[i] = cloneEdge(e)
	}
	s.mu.Unlock()
	s.changed()
}

// mergeData shallow-merges the top-level keys of partial into existing.
// Unknown keys in existing survive untouched, which is what keeps
// collaborator-owned payloads (email sections) round-tripping unchanged.
func mergeData(existing, partial json.RawMessage) (json.RawMessage, error) {
	base := map[string]json.RawMessage{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &base); err != nil {
			return nil, fmt.Errorf("existing data is not an object: %w", err)
		}
	}
	patch := map[string]json.RawMessage{}
	if err := json.Unmarshal(partial, &patch); err != nil {
		return nil, fmt.Errorf("partial data is not an object: %w", err)
	}
	for k, v := range patch {
		base[k] = v
	}
	return json.Marshal(base)
}

func cloneNode(n schema.Node) schema.Node {
	n.Data = cloneRaw(n.Data)
	return n
}

func cloneEdge(e schema.Edge) schema.Edge {
	e.Data = cloneRaw(e.Data)
	return e
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func mustMarshal(v any) json.RawMessage {
	out, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return out
}
