package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cadencehq/cadence/pkg/schema"
)

func rule(eventID string, op schema.RuleOperator) schema.Rule {
	return schema.Rule{ID: "r-" + eventID, EventID: eventID, Operator: op}
}

func TestRuleSatisfied(t *testing.T) {
	occurred := map[string]bool{"page_view": true}

	assert.True(t, RuleSatisfied(rule("page_view", schema.OpHasOccurred), occurred))
	assert.False(t, RuleSatisfied(rule("email_opened", schema.OpHasOccurred), occurred))
	assert.False(t, RuleSatisfied(rule("page_view", schema.OpHasNotOccurred), occurred))
	assert.True(t, RuleSatisfied(rule("email_opened", schema.OpHasNotOccurred), occurred))
}

func TestCaseSatisfied_And(t *testing.T) {
	c := schema.Case{
		Logic: schema.LogicAnd,
		Rules: []schema.Rule{
			rule("page_view", schema.OpHasOccurred),
			rule("email_opened", schema.OpHasOccurred),
		},
	}

	assert.True(t, CaseSatisfied(c, map[string]bool{"page_view": true, "email_opened": true}))
	assert.False(t, CaseSatisfied(c, map[string]bool{"page_view": true}))
}

func TestCaseSatisfied_Or(t *testing.T) {
	c := schema.Case{
		Logic: schema.LogicOr,
		Rules: []schema.Rule{
			rule("page_view", schema.OpHasOccurred),
			rule("email_opened", schema.OpHasOccurred),
		},
	}

	assert.True(t, CaseSatisfied(c, map[string]bool{"email_opened": true}))
	assert.False(t, CaseSatisfied(c, map[string]bool{}))
}

func TestCaseSatisfied_NoRules(t *testing.T) {
	assert.False(t, CaseSatisfied(schema.Case{Logic: schema.LogicAnd}, map[string]bool{"page_view": true}))
}

func TestSelectBranch_FirstMatchWins(t *testing.T) {
	cases := []schema.Case{
		{Logic: schema.LogicAnd, Rules: []schema.Rule{rule("webinar_signup", schema.OpHasOccurred)}},
		{Logic: schema.LogicAnd, Rules: []schema.Rule{rule("page_view", schema.OpHasOccurred)}},
		{Logic: schema.LogicAnd, Rules: []schema.Rule{rule("page_view", schema.OpHasOccurred)}},
	}

	got := SelectBranch(cases, map[string]bool{"page_view": true})
	assert.Equal(t, "case-1", got)
}

func TestSelectBranch_Default(t *testing.T) {
	cases := []schema.Case{
		{Logic: schema.LogicAnd, Rules: []schema.Rule{rule("page_view", schema.OpHasOccurred)}},
	}

	got := SelectBranch(cases, map[string]bool{})
	assert.Equal(t, schema.DefaultHandle, got)
}
