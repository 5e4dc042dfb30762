package condition

import (
	"encoding/json"
	"fmt"

	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/pkg/schema"
)

// Engine owns the combinatorial rule model inside one switch node: the
// ordered cases with their AND/OR rule sets, the dynamic input sockets, and
// the legacy-schema upgrade. All reads go through the migration so downstream
// code only ever sees the current shape.
type Engine struct {
	store  *graph.Store
	nodeID string
}

// NewEngine binds an engine to the switch node with the given id.
func NewEngine(s *graph.Store, switchID string) (*Engine, error) {
	node, ok := s.Node(switchID)
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node not found: %s", switchID).WithNode(switchID)
	}
	if node.Type != schema.NodeTypeSwitch {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "node %s is a %s, not a switch", switchID, node.Type).WithNode(switchID)
	}
	return &Engine{store: s, nodeID: switchID}, nil
}

// NodeID returns the bound switch node id.
func (e *Engine) NodeID() string {
	return e.nodeID
}

func (e *Engine) data() (schema.SwitchData, error) {
	node, ok := e.store.Node(e.nodeID)
	if !ok {
		return schema.SwitchData{}, schema.NewErrorf(schema.ErrCodeNotFound, "node not found: %s", e.nodeID).WithNode(e.nodeID)
	}
	var data schema.SwitchData
	if err := json.Unmarshal(node.Data, &data); err != nil {
		return schema.SwitchData{}, schema.NewErrorf(schema.ErrCodeValidation, "switch payload is malformed: %v", err).WithNode(e.nodeID)
	}
	return data, nil
}

// ConnectedEvents derives the event nodes wired as data inputs to the switch:
// sources of edges targeting it whose node type is event, in connection order.
func (e *Engine) ConnectedEvents() []schema.EventData {
	var out []schema.EventData
	for _, edge := range e.store.IncomingEdges(e.nodeID) {
		node, ok := e.store.Node(edge.Source)
		if !ok || node.Type != schema.NodeTypeEvent {
			continue
		}
		var data schema.EventData
		if err := json.Unmarshal(node.Data, &data); err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

// EnsureMigrated upgrades the node's conditions to the case/rule shape if
// they are still legacy (or empty), writing the result back once. Safe to
// call repeatedly; it must precede any other read of the conditions.
func (e *Engine) EnsureMigrated() error {
	data, err := e.data()
	if err != nil {
		return err
	}

	defaultEvent := ""
	if events := e.ConnectedEvents(); len(events) > 0 {
		defaultEvent = events[0].EventType
	}

	cases, changed, err := Migrate(data.Conditions, defaultEvent)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return e.writeCases(cases)
}

// Cases returns the migrated, ordered case list.
func (e *Engine) Cases() ([]schema.Case, error) {
	if err := e.EnsureMigrated(); err != nil {
		return nil, err
	}
	data, err := e.data()
	if err != nil {
		return nil, err
	}
	cases := make([]schema.Case, 0, len(data.Conditions))
	for _, raw := range data.Conditions {
		var c schema.Case
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, schema.NewErrorf(schema.ErrCodeMigrationInProgress, "condition still upgrading: %v", err).WithNode(e.nodeID)
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// AddCase appends a new single-rule case.
func (e *Engine) AddCase() error {
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	defaultEvent := ""
	if events := e.ConnectedEvents(); len(events) > 0 {
		defaultEvent = events[0].EventType
	}
	return e.writeCases(append(cases, seedCase(defaultEvent)))
}

// RemoveCase deletes the case at index i.
func (e *Engine) RemoveCase(i int) error {
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(cases) {
		return e.indexErr("case", i, len(cases))
	}
	return e.writeCases(append(cases[:i], cases[i+1:]...))
}

// AddRule appends a new rule to the case at index i.
func (e *Engine) AddRule(i int) error {
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(cases) {
		return e.indexErr("case", i, len(cases))
	}
	defaultEvent := ""
	if events := e.ConnectedEvents(); len(events) > 0 {
		defaultEvent = events[0].EventType
	}
	cases[i].Rules = append(cases[i].Rules, seedCase(defaultEvent).Rules[0])
	return e.writeCases(cases)
}

// RemoveRule deletes rule j from case i. Every case keeps at least one rule:
// removing the last rule is rejected, not silently tolerated.
func (e *Engine) RemoveRule(i, j int) error {
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(cases) {
		return e.indexErr("case", i, len(cases))
	}
	if j < 0 || j >= len(cases[i].Rules) {
		return e.indexErr("rule", j, len(cases[i].Rules))
	}
	if len(cases[i].Rules) == 1 {
		return schema.NewError(schema.ErrCodeValidation, "a case must keep at least one rule").WithNode(e.nodeID)
	}
	cases[i].Rules = append(cases[i].Rules[:j], cases[i].Rules[j+1:]...)
	return e.writeCases(cases)
}

// SetCaseLogic sets the AND/OR combinator of case i.
func (e *Engine) SetCaseLogic(i int, logic schema.CaseLogic) error {
	if logic != schema.LogicAnd && logic != schema.LogicOr {
		return schema.NewErrorf(schema.ErrCodeValidation, "invalid case logic: %s", logic).WithNode(e.nodeID)
	}
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(cases) {
		return e.indexErr("case", i, len(cases))
	}
	cases[i].Logic = logic
	return e.writeCases(cases)
}

// SetRule updates one field ("eventId" or "operator") of rule j in case i.
// Rules referencing events no longer connected to the switch are tolerated
// here; validation flags them as stale instead of dropping them.
func (e *Engine) SetRule(i, j int, field, value string) error {
	cases, err := e.Cases()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(cases) {
		return e.indexErr("case", i, len(cases))
	}
	if j < 0 || j >= len(cases[i].Rules) {
		return e.indexErr("rule", j, len(cases[i].Rules))
	}
	switch field {
	case "eventId":
		cases[i].Rules[j].EventID = value
	case "operator":
		op := schema.RuleOperator(value)
		if op != schema.OpHasOccurred && op != schema.OpHasNotOccurred {
			return schema.NewErrorf(schema.ErrCodeValidation, "invalid rule operator: %s", value).WithNode(e.nodeID)
		}
		cases[i].Rules[j].Operator = op
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "unknown rule field: %s", field).WithNode(e.nodeID)
	}
	return e.writeCases(cases)
}

// InputSockets returns the switch's ordered input socket identifiers.
func (e *Engine) InputSockets() ([]string, error) {
	data, err := e.data()
	if err != nil {
		return nil, err
	}
	return data.InputIDs, nil
}

// AddInputSocket appends a new input socket and returns its identifier.
func (e *Engine) AddInputSocket() (string, error) {
	data, err := e.data()
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("input-%d", len(data.InputIDs)+1)
	ids := append(data.InputIDs, id)
	if err := e.writeInputs(ids); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveInputSocket drops the given socket. At least one socket always
// remains; removing the last one is a no-op so repeated UI clicks stay
// idempotent.
func (e *Engine) RemoveInputSocket(id string) error {
	data, err := e.data()
	if err != nil {
		return err
	}
	if len(data.InputIDs) <= 1 {
		return nil
	}
	kept := make([]string, 0, len(data.InputIDs))
	for _, existing := range data.InputIDs {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(data.InputIDs) {
		return nil
	}
	return e.writeInputs(kept)
}

// StaleRule locates a rule whose event is no longer connected to the switch.
type StaleRule struct {
	CaseIndex int    `json:"case_index"`
	RuleIndex int    `json:"rule_index"`
	EventID   string `json:"event_id"`
}

// StaleRules reports rules referencing events not currently wired as inputs.
// They are flagged, never dropped.
func (e *Engine) StaleRules() ([]StaleRule, error) {
	cases, err := e.Cases()
	if err != nil {
		return nil, err
	}
	connected := map[string]bool{}
	for _, ev := range e.ConnectedEvents() {
		connected[ev.EventType] = true
	}
	var stale []StaleRule
	for i, c := range cases {
		for j, r := range c.Rules {
			if r.EventID != "" && !connected[r.EventID] {
				stale = append(stale, StaleRule{CaseIndex: i, RuleIndex: j, EventID: r.EventID})
			}
		}
	}
	return stale, nil
}

func (e *Engine) writeCases(cases []schema.Case) error {
	raw := make([]json.RawMessage, len(cases))
	for i, c := range cases {
		b, err := json.Marshal(c)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "marshal case: %v", err).WithNode(e.nodeID)
		}
		raw[i] = b
	}
	patch, err := json.Marshal(map[string]any{"conditions": raw})
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "marshal conditions: %v", err).WithNode(e.nodeID)
	}
	return e.store.UpdateNode(e.nodeID, patch)
}

func (e *Engine) writeInputs(ids []string) error {
	patch, err := json.Marshal(map[string]any{"inputIds": ids})
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "marshal inputIds: %v", err).WithNode(e.nodeID)
	}
	return e.store.UpdateNode(e.nodeID, patch)
}

func (e *Engine) indexErr(kind string, i, n int) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "%s index %d out of range (have %d)", kind, i, n).WithNode(e.nodeID)
}
