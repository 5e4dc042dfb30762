package validation

import (
	"encoding/json"
	"fmt"

	"github.com/cadencehq/cadence/internal/condition"
	"github.com/cadencehq/cadence/pkg/schema"
)

// ValidateSnapshot performs semantic analysis on a graph snapshot, beyond
// what JSON Schema can express. Errors block publishing; warnings surface in
// the editor but never block.
//
// Errors: duplicate ids, unknown node types, dangling edge endpoints, switch
// cases with zero rules. Warnings: rules referencing events not wired into
// their switch (soft-stale), eventType values outside the catalog, cycles.
func ValidateSnapshot(snap schema.Snapshot) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodesByID := make(map[string]schema.Node, len(snap.Nodes))
	for i, n := range snap.Nodes {
		path := fmt.Sprintf("nodes[%d]", i)
		if _, dup := nodesByID[n.ID]; dup {
			result.AddError(path+".id", schema.ErrCodeDuplicateID,
				fmt.Sprintf("duplicate node id %q", n.ID))
			continue
		}
		nodesByID[n.ID] = n

		switch n.Type {
		case schema.NodeTypeTrigger, schema.NodeTypeEvent:
			var data schema.EventData
			if err := json.Unmarshal(n.Data, &data); err != nil {
				result.AddError(path+".data", schema.ErrCodeValidation,
					fmt.Sprintf("%s payload is malformed: %v", n.Type, err))
				continue
			}
			if data.EventType != "" && !schema.KnownEvent(data.EventType) {
				result.AddWarning(path+".data.eventType", schema.ErrCodeValidation,
					fmt.Sprintf("eventType %q is not in the catalog", data.EventType))
			}
		case schema.NodeTypeAction, schema.NodeTypeFilter:
			// Payload owned jointly with collaborators; shape-checked by JSON Schema.
		case schema.NodeTypeSwitch:
			validateSwitch(n, snap, path, result)
		default:
			result.AddError(path+".type", schema.ErrCodeUnknownNodeType,
				fmt.Sprintf("unknown node type %q", n.Type))
		}
	}

	edgeIDs := make(map[string]bool, len(snap.Edges))
	for i, e := range snap.Edges {
		path := fmt.Sprintf("edges[%d]", i)
		if edgeIDs[e.ID] {
			result.AddError(path+".id", schema.ErrCodeDuplicateID,
				fmt.Sprintf("duplicate edge id %q", e.ID))
		}
		edgeIDs[e.ID] = true
		if _, ok := nodesByID[e.Source]; !ok {
			result.AddError(path+".source", schema.ErrCodeDanglingEdge,
				fmt.Sprintf("edge %q source references missing node %q", e.ID, e.Source))
		}
		if _, ok := nodesByID[e.Target]; !ok {
			result.AddError(path+".target", schema.ErrCodeDanglingEdge,
				fmt.Sprintf("edge %q target references missing node %q", e.ID, e.Target))
		}
	}

	if hasCycle(snap) {
		result.AddWarning("edges", schema.ErrCodeValidation,
			"graph contains a cycle; recipients may revisit steps")
	}

	return result
}

func validateSwitch(n schema.Node, snap schema.Snapshot, path string, result *schema.ValidationResult) {
	var data schema.SwitchData
	if err := json.Unmarshal(n.Data, &data); err != nil {
		result.AddError(path+".data", schema.ErrCodeValidation,
			fmt.Sprintf("switch payload is malformed: %v", err))
		return
	}

	// The legacy flat shape is valid input; resolve it before inspecting.
	cases, _, err := condition.Migrate(data.Conditions, "")
	if err != nil {
		result.AddError(path+".data.conditions", schema.ErrCodeMigrationInProgress, err.Error())
		return
	}

	connected := map[string]bool{}
	for _, e := range snap.Edges {
		if e.Target != n.ID {
			continue
		}
		for _, src := range snap.Nodes {
			if src.ID != e.Source || src.Type != schema.NodeTypeEvent {
				continue
			}
			var ev schema.EventData
			if json.Unmarshal(src.Data, &ev) == nil {
				connected[ev.EventType] = true
			}
		}
	}

	for i, c := range cases {
		casePath := fmt.Sprintf("%s.data.conditions[%d]", path, i)
		if len(c.Rules) == 0 {
			result.AddError(casePath+".rules", schema.ErrCodeValidation,
				"case has no rules; every case needs at least one")
			continue
		}
		for j, r := range c.Rules {
			if r.EventID == "" {
				result.AddWarning(fmt.Sprintf("%s.rules[%d].eventId", casePath, j),
					schema.ErrCodeValidation, "rule has no event selected")
				continue
			}
			if !connected[r.EventID] {
				result.AddWarning(fmt.Sprintf("%s.rules[%d].eventId", casePath, j),
					schema.ErrCodeValidation,
					fmt.Sprintf("rule references event %q which is not connected to this switch", r.EventID))
			}
		}
	}
}

// hasCycle runs a DFS over the directed edges. Cycles are tolerated by the
// authoring model (the source canvas never blocked them) but worth surfacing.
func hasCycle(snap schema.Snapshot) bool {
	adj := make(map[string][]string)
	for _, e := range snap.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int)
	for _, n := range snap.Nodes {
		state[n.ID] = unvisited
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for id, s := range state {
		if s == unvisited && dfs(id) {
			return true
		}
	}
	return false
}
