package condition

import "github.com/cadencehq/cadence/pkg/schema"

// Evaluation semantics for the compiled output. Execution happens in the
// delivery backend; this is the reference implementation of the logical
// contract, used for authoring-time previews and tests.

// RuleSatisfied reports whether a single rule holds against the set of events
// that have fired for a recipient.
func RuleSatisfied(r schema.Rule, occurred map[string]bool) bool {
	fired := occurred[r.EventID]
	if r.Operator == schema.OpHasNotOccurred {
		return !fired
	}
	return fired
}

// CaseSatisfied combines the case's rules under its AND/OR logic.
func CaseSatisfied(c schema.Case, occurred map[string]bool) bool {
	if len(c.Rules) == 0 {
		return false
	}
	if c.Logic == schema.LogicOr {
		for _, r := range c.Rules {
			if RuleSatisfied(r, occurred) {
				return true
			}
		}
		return false
	}
	for _, r := range c.Rules {
		if !RuleSatisfied(r, occurred) {
			return false
		}
	}
	return true
}

// SelectBranch evaluates cases in list order and returns the output socket of
// the first satisfied one. When no case is satisfied, flow proceeds on the
// reserved default socket.
func SelectBranch(cases []schema.Case, occurred map[string]bool) string {
	for i, c := range cases {
		if CaseSatisfied(c, occurred) {
			return schema.CaseHandle(i)
		}
	}
	return schema.DefaultHandle
}
