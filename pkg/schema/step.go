package schema

import "encoding/json"

// CampaignStep is the linear, backend-facing unit produced by compiling one
// graph node plus its outgoing edges. Field names and types are the wire
// contract with the step-execution backend and must not drift.
type CampaignStep struct {
	ID         string            `json:"id"`
	CampaignID string            `json:"campaignId"`
	Type       NodeType          `json:"type"`
	Name       string            `json:"name"`
	Config     json.RawMessage   `json:"config,omitempty"`
	Subject    *SubjectSpec      `json:"subject"`
	Sections   []json.RawMessage `json:"sections"`
	Edges      []StepEdge        `json:"edges"`
}

// StepEdge is one outgoing transition of a compiled step. Condition is null
// unless the edge models a branch condition.
type StepEdge struct {
	TargetStepID string          `json:"targetStepId"`
	SourceHandle string          `json:"sourceHandle,omitempty"`
	DelayDays    int             `json:"delayDays"`
	DelayHours   int             `json:"delayHours"`
	DelayMinutes int             `json:"delayMinutes"`
	Condition    json.RawMessage `json:"condition"`
}
