package compiler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cadencehq/cadence/internal/condition"
	"github.com/cadencehq/cadence/pkg/schema"
)

// Compile flattens a graph snapshot into the linear step list the delivery
// backend executes: one CampaignStep per node, each carrying its outgoing
// edges with resolved delay and branch-condition data.
//
// Compile is a pure function of the snapshot: it mutates nothing, mints no
// ids, and produces structurally identical output for an unchanged graph. Any
// malformed node or edge payload fails the whole call; a partial step list is
// never returned.
func Compile(campaignID string, snap schema.Snapshot) ([]schema.CampaignStep, error) {
	nodes := make(map[string]schema.Node, len(snap.Nodes))
	for _, n := range snap.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return nil, schema.NewErrorf(schema.ErrCodeCompile, "duplicate node id: %s", n.ID).WithNode(n.ID)
		}
		nodes[n.ID] = n
	}

	for _, e := range snap.Edges {
		if _, ok := nodes[e.Source]; !ok {
			return nil, schema.NewErrorf(schema.ErrCodeCompile, "edge %s source references missing node: %s", e.ID, e.Source)
		}
		if _, ok := nodes[e.Target]; !ok {
			return nil, schema.NewErrorf(schema.ErrCodeCompile, "edge %s target references missing node: %s", e.ID, e.Target)
		}
	}

	// Resolve every switch's cases once up front. The pure migration keeps
	// legacy-shaped snapshots compilable without touching the source graph.
	switchCases := make(map[string][]schema.Case)
	for _, n := range snap.Nodes {
		if n.Type != schema.NodeTypeSwitch {
			continue
		}
		var data schema.SwitchData
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeCompile, "switch payload is malformed: %v", err).WithNode(n.ID)
		}
		cases, _, err := condition.Migrate(data.Conditions, firstConnectedEvent(snap, nodes, n.ID))
		if err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeCompile, "resolve switch conditions: %v", err).WithNode(n.ID).WithCause(err)
		}
		switchCases[n.ID] = cases
	}

	steps := make([]schema.CampaignStep, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		step, err := compileNode(campaignID, n, switchCases)
		if err != nil {
			return nil, err
		}
		for _, e := range snap.Edges {
			if e.Source != n.ID {
				continue
			}
			entry, err := compileEdge(e, switchCases[n.ID], n.Type == schema.NodeTypeSwitch)
			if err != nil {
				return nil, err
			}
			step.Edges = append(step.Edges, entry)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func compileNode(campaignID string, n schema.Node, switchCases map[string][]schema.Case) (schema.CampaignStep, error) {
	step := schema.CampaignStep{
		ID:         n.ID,
		CampaignID: campaignID,
		Type:       n.Type,
		Edges:      []schema.StepEdge{},
	}

	switch n.Type {
	case schema.NodeTypeTrigger, schema.NodeTypeEvent:
		var data schema.EventData
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return step, schema.NewErrorf(schema.ErrCodeCompile, "%s payload is malformed: %v", n.Type, err).WithNode(n.ID)
		}
		step.Name = data.Label

	case schema.NodeTypeAction:
		var data schema.ActionData
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return step, schema.NewErrorf(schema.ErrCodeCompile, "action payload is malformed: %v", err).WithNode(n.ID)
		}
		step.Name = data.Label
		subject := data.Subject
		step.Subject = &subject
		step.Sections = data.Sections

	case schema.NodeTypeSwitch:
		cases := switchCases[n.ID]
		config, err := json.Marshal(cases)
		if err != nil {
			return step, schema.NewErrorf(schema.ErrCodeCompile, "marshal switch config: %v", err).WithNode(n.ID)
		}
		step.Name = "Switch"
		step.Config = config

	case schema.NodeTypeFilter:
		var data schema.FilterData
		if err := json.Unmarshal(n.Data, &data); err != nil {
			return step, schema.NewErrorf(schema.ErrCodeCompile, "filter payload is malformed: %v", err).WithNode(n.ID)
		}
		step.Name = data.Label

	default:
		return step, schema.NewErrorf(schema.ErrCodeCompile, "unknown node type: %s", n.Type).WithNode(n.ID)
	}

	if step.Name == "" {
		step.Name = string(n.Type)
	}
	return step, nil
}

func compileEdge(e schema.Edge, cases []schema.Case, fromSwitch bool) (schema.StepEdge, error) {
	entry := schema.StepEdge{
		TargetStepID: e.Target,
		SourceHandle: e.SourceHandle,
	}

	if len(e.Data) > 0 {
		var data schema.EdgeData
		if err := json.Unmarshal(e.Data, &data); err != nil {
			return entry, schema.NewErrorf(schema.ErrCodeCompile, "edge %s payload is malformed: %v", e.ID, err)
		}
		entry.DelayDays = data.DelayData.Days
		entry.DelayHours = data.DelayData.Hours
		entry.DelayMinutes = data.DelayData.Minutes
	}

	// An edge leaving a specific switch case carries that case as its branch
	// condition; the reserved default socket and all other edges carry null.
	if fromSwitch {
		if i, ok := caseIndex(e.SourceHandle); ok {
			if i >= len(cases) {
				return entry, schema.NewErrorf(schema.ErrCodeCompile,
					"edge %s references case %d but switch has %d", e.ID, i, len(cases))
			}
			cond, err := json.Marshal(cases[i])
			if err != nil {
				return entry, schema.NewErrorf(schema.ErrCodeCompile, "marshal edge condition: %v", err)
			}
			entry.Condition = cond
		}
	}
	return entry, nil
}

func caseIndex(handle string) (int, bool) {
	rest, ok := strings.CutPrefix(handle, "case-")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(rest)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func firstConnectedEvent(snap schema.Snapshot, nodes map[string]schema.Node, switchID string) string {
	for _, e := range snap.Edges {
		if e.Target != switchID {
			continue
		}
		src, ok := nodes[e.Source]
		if !ok || src.Type != schema.NodeTypeEvent {
			continue
		}
		var data schema.EventData
		if err := json.Unmarshal(src.Data, &data); err != nil {
			continue
		}
		return data.EventType
	}
	return ""
}
