package schema

import (
	"encoding/json"
	"strconv"
)

// NodeType enumerates the kinds of nodes in a sequence graph.
type NodeType string

const (
	NodeTypeTrigger NodeType = "trigger"
	NodeTypeEvent   NodeType = "event"
	NodeTypeAction  NodeType = "action"
	NodeTypeSwitch  NodeType = "switch"
	NodeTypeFilter  NodeType = "filter"
)

// SequenceKind selects the default graph seeded for a fresh campaign.
type SequenceKind string

const (
	SequenceBatch    SequenceKind = "batch"
	SequenceAlwaysOn SequenceKind = "always_on"
)

// Position is canvas placement. Presentation only, no invariant attaches to it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed vertex in a campaign's sequence graph.
// Data holds the variant payload for the node type; it is kept raw so that
// sub-fields owned by collaborators (e.g. email sections) round-trip unchanged.
type Node struct {
	ID       string          `json:"id"`
	Type     NodeType        `json:"type"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data"`
}

// Edge is a directed connection between two nodes. SourceHandle selects which
// output socket of a multi-output node the edge leaves from (e.g. a specific
// switch case, or the reserved default socket).
type Edge struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	Target       string          `json:"target"`
	SourceHandle string          `json:"sourceHandle,omitempty"`
	Type         string          `json:"type"`
	Data         json.RawMessage `json:"data"`
}

// EdgeTypeDelay is the edge variant carrying a wait duration.
const EdgeTypeDelay = "delay"

// Snapshot is the full authoring state of one campaign's graph.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// DelayData is the numeric source of truth for an edge's wait duration.
type DelayData struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

// EdgeData is the payload of a delay edge. Delay is a derived display label,
// always recomputed from DelayData and never edited independently.
type EdgeData struct {
	Delay     string    `json:"delay"`
	DelayData DelayData `json:"delayData"`
}

// EventData is the payload of trigger and event nodes. Label is a denormalized
// copy of the catalog entry's display name for EventType; the two are set
// together and must not diverge.
type EventData struct {
	Label     string `json:"label"`
	EventType string `json:"eventType"`
}

// SubjectSpec is an action node's subject line configuration.
type SubjectSpec struct {
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

// ActionData is the payload of an action (email) node. Sections belong to the
// email-content collaborator and are opaque here beyond presence and order.
type ActionData struct {
	Label    string            `json:"label"`
	Subject  SubjectSpec       `json:"subject"`
	Sections []json.RawMessage `json:"sections"`
}

// SwitchData is the payload of a switch node. Conditions stays raw because two
// schema generations coexist on the wire (see LegacyCondition); readers resolve
// it through the condition engine's migration before trusting the shape.
type SwitchData struct {
	Conditions []json.RawMessage `json:"conditions"`
	InputIDs   []string          `json:"inputIds"`
}

// FilterData is the payload of a filter node. The label names an attribute
// source; evaluation is delegated downstream.
type FilterData struct {
	Label string `json:"label"`
}

// CaseLogic combines the rules of a case.
type CaseLogic string

const (
	LogicAnd CaseLogic = "AND"
	LogicOr  CaseLogic = "OR"
)

// RuleOperator is a single event-occurrence test.
type RuleOperator string

const (
	OpHasOccurred    RuleOperator = "has_occurred"
	OpHasNotOccurred RuleOperator = "has_not_occurred"
)

// Case is one branch alternative inside a switch node. Rules is never empty.
type Case struct {
	ID    string    `json:"id"`
	Logic CaseLogic `json:"logic"`
	Rules []Rule    `json:"rules"`
}

// Rule tests whether a single event has (or has not) occurred for a recipient.
// EventID is an eventType value from the catalog.
type Rule struct {
	ID       string       `json:"id"`
	EventID  string       `json:"eventId"`
	Operator RuleOperator `json:"operator"`
}

// LegacyCondition is the pre-case flat condition record: one event test per
// branch, no logic grouping. Detected and upgraded by the condition engine.
type LegacyCondition struct {
	ID       string       `json:"id"`
	EventID  string       `json:"eventId"`
	Operator RuleOperator `json:"operator"`
}

// DefaultHandle is the reserved switch output socket taken when no case matches.
const DefaultHandle = "default"

// CaseHandle returns the output socket identifier for the case at index i.
func CaseHandle(i int) string {
	return "case-" + strconv.Itoa(i)
}
