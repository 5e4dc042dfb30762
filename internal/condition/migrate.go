package condition

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/cadencehq/cadence/pkg/schema"
)

// Two condition schema generations coexist on the wire. The legacy shape is a
// flat list of {id, eventId, operator} records, one event test per branch.
// The current shape groups rules under a case with AND/OR logic. Migration is
// a pure function resolved at every read boundary rather than a reactive
// in-place mutation, which keeps it re-entrancy safe and idempotent.

// IsLegacy reports whether raw conditions are in the pre-case flat shape:
// non-empty with a first element lacking a "rules" field.
func IsLegacy(conditions []json.RawMessage) bool {
	if len(conditions) == 0 {
		return false
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(conditions[0], &probe); err != nil {
		return false
	}
	_, hasRules := probe["rules"]
	return !hasRules
}

// Migrate resolves raw conditions to the case/rule shape.
//
// Legacy records are rewritten in place: each {id, eventId, operator} becomes
// a single-rule AND case keeping its id, with the rule id derived from it.
// Empty conditions are seeded with one case holding one rule whose event
// defaults to defaultEventID (the first connected event, or empty when the
// switch has none). Already-migrated input decodes unchanged, so running
// Migrate twice yields the same result as running it once.
//
// Migrate is deterministic: it mints no random ids, so resolving the same
// raw conditions always yields identical cases. The compiler relies on this
// to stay a pure function of the snapshot. Ids only need uniqueness within
// one switch node's conditions.
//
// The changed result tells callers whether a write-back is needed.
func Migrate(conditions []json.RawMessage, defaultEventID string) (cases []schema.Case, changed bool, err error) {
	if len(conditions) == 0 {
		return []schema.Case{{
			ID:    "case-seed",
			Logic: schema.LogicAnd,
			Rules: []schema.Rule{{
				ID:       "rule-seed",
				EventID:  defaultEventID,
				Operator: schema.OpHasOccurred,
			}},
		}}, true, nil
	}

	if !IsLegacy(conditions) {
		cases = make([]schema.Case, 0, len(conditions))
		for _, raw := range conditions {
			var c schema.Case
			if err := json.Unmarshal(raw, &c); err != nil {
				return nil, false, schema.NewErrorf(schema.ErrCodeMigrationInProgress,
					"condition record is neither legacy nor current shape: %v", err)
			}
			cases = append(cases, c)
		}
		return cases, false, nil
	}

	cases = make([]schema.Case, 0, len(conditions))
	for _, raw := range conditions {
		var legacy schema.LegacyCondition
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, false, schema.NewErrorf(schema.ErrCodeMigrationInProgress,
				"legacy condition record is malformed: %v", err)
		}
		cases = append(cases, schema.Case{
			ID:    legacy.ID,
			Logic: schema.LogicAnd,
			Rules: []schema.Rule{{
				ID:       legacy.ID + "-rule",
				EventID:  legacy.EventID,
				Operator: legacy.Operator,
			}},
		})
	}
	return cases, true, nil
}

func seedCase(eventID string) schema.Case {
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
