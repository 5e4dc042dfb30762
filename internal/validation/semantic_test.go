package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/pkg/schema"
)

func node(t *testing.T, typ schema.NodeType) schema.Node {
	t.Helper()
	n, err := graph.NewNode(typ, schema.Position{})
	require.NoError(t, err)
	return n
}

func issueCodes(issues []schema.ValidationIssue) []string {
	out := make([]string, len(issues))
	for i, iss := range issues {
		out[i] = iss.Code
	}
	return out
}

func TestValidateSnapshot_CleanGraph(t *testing.T) {
	snap, err := graph.DefaultSnapshot(schema.SequenceAlwaysOn)
	require.NoError(t, err)

	result := ValidateSnapshot(snap)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
	assert.NoError(t, result.ToError())
}

func TestValidateSnapshot_DuplicateNodeID(t *testing.T) {
	n := node(t, schema.NodeTypeAction)
	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{n, n}})

	assert.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), schema.ErrCodeDuplicateID)
}

func TestValidateSnapshot_UnknownNodeType(t *testing.T) {
	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{
		{ID: "n1", Type: "webhook", Data: json.RawMessage(`{}`)},
	}})

	assert.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), schema.ErrCodeUnknownNodeType)
}

func TestValidateSnapshot_DanglingEdge(t *testing.T) {
	n := node(t, schema.NodeTypeAction)
	result := ValidateSnapshot(schema.Snapshot{
		Nodes: []schema.Node{n},
		Edges: []schema.Edge{{ID: "e1", Source: n.ID, Target: "ghost"}},
	})

	assert.False(t, result.Valid())
	assert.Contains(t, issueCodes(result.Errors), schema.ErrCodeDanglingEdge)
}

func TestValidateSnapshot_NonCatalogEventWarns(t *testing.T) {
	ev := node(t, schema.NodeTypeEvent)
	ev.Data = json.RawMessage(`{"label":"Custom","eventType":"made_up_event"}`)

	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{ev}})
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "made_up_event")
}

func TestValidateSnapshot_StaleRuleWarns(t *testing.T) {
	sw := node(t, schema.NodeTypeSwitch)
	sw.Data = json.RawMessage(`{
		"conditions":[{"id":"c1","logic":"AND","rules":[{"id":"r1","eventId":"webinar_signup","operator":"has_occurred"}]}],
		"inputIds":["input-1"]
	}`)

	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{sw}})
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "webinar_signup")
}

func TestValidateSnapshot_ConnectedRuleIsClean(t *testing.T) {
	ev := node(t, schema.NodeTypeEvent)
	ev.Data = json.RawMessage(`{"label":"Signed up","eventType":"webinar_signup"}`)
	sw := node(t, schema.NodeTypeSwitch)
	sw.Data = json.RawMessage(`{
		"conditions":[{"id":"c1","logic":"AND","rules":[{"id":"r1","eventId":"webinar_signup","operator":"has_occurred"}]}],
		"inputIds":["input-1"]
	}`)

	result := ValidateSnapshot(schema.Snapshot{
		Nodes: []schema.Node{ev, sw},
		Edges: []schema.Edge{{ID: "e1", Source: ev.ID, Target: sw.ID, Type: schema.EdgeTypeDelay}},
	})
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestValidateSnapshot_ZeroRuleCaseIsError(t *testing.T) {
	sw := node(t, schema.NodeTypeSwitch)
	sw.Data = json.RawMessage(`{
		"conditions":[{"id":"c1","logic":"AND","rules":[]}],
		"inputIds":["input-1"]
	}`)

	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{sw}})
	assert.False(t, result.Valid())
	assert.Contains(t, result.Errors[0].Message, "no rules")
}

func TestValidateSnapshot_LegacyConditionsAccepted(t *testing.T) {
	sw := node(t, schema.NodeTypeSwitch)
	sw.Data = json.RawMessage(`{
		"conditions":[{"id":"c1","eventId":"page_view","operator":"has_occurred"}],
		"inputIds":["input-1"]
	}`)

	result := ValidateSnapshot(schema.Snapshot{Nodes: []schema.Node{sw}})
	assert.True(t, result.Valid())
}

func TestValidateSnapshot_CycleWarns(t *testing.T) {
	a := node(t, schema.NodeTypeAction)
	b := node(t, schema.NodeTypeAction)

	result := ValidateSnapshot(schema.Snapshot{
		Nodes: []schema.Node{a, b},
		Edges: []schema.Edge{
			{ID: "e1", Source: a.ID, Target: b.ID},
			{ID: "e2", Source: b.ID, Target: a.ID},
		},
	})
	assert.True(t, result.Valid())
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0].Message, "cycle")
}

func TestValidateSnapshot_AcyclicNoWarning(t *testing.T) {
	a := node(t, schema.NodeTypeAction)
	b := node(t, schema.NodeTypeAction)
	c := node(t, schema.NodeTypeAction)

	result := ValidateSnapshot(schema.Snapshot{
		Nodes: []schema.Node{a, b, c},
		Edges: []schema.Edge{
			{ID: "e1", Source: a.ID, Target: b.ID},
			{ID: "e2", Source: a.ID, Target: c.ID},
			{ID: "e3", Source: b.ID, Target: c.ID},
		},
	})
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}
