package condition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/pkg/schema"
)

func rawConditions(t *testing.T, vs ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(vs))
	for i, v := range vs {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func TestIsLegacy(t *testing.T) {
	legacy := rawConditions(t, schema.LegacyCondition{ID: "c1", EventID: "page_view", Operator: schema.OpHasOccurred})
	assert.True(t, IsLegacy(legacy))

	current := rawConditions(t, schema.Case{ID: "c1", Logic: schema.LogicAnd, Rules: []schema.Rule{{ID: "r1"}}})
	assert.False(t, IsLegacy(current))

	assert.False(t, IsLegacy(nil))
}

func TestMigrate_Empty_SeedsOneCase(t *testing.T) {
	cases, changed, err := Migrate(nil, "page_view")
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, cases, 1)
	assert.Equal(t, "case-seed", cases[0].ID)
	assert.Equal(t, schema.LogicAnd, cases[0].Logic)
	require.Len(t, cases[0].Rules, 1)
	assert.Equal(t, "page_view", cases[0].Rules[0].EventID)
	assert.Equal(t, schema.OpHasOccurred, cases[0].Rules[0].Operator)
}

func TestMigrate_Legacy(t *testing.T) {
	conditions := rawConditions(t,
		schema.LegacyCondition{ID: "c1", EventID: "page_view", Operator: schema.OpHasOccurred},
		schema.LegacyCondition{ID: "c2", EventID: "email_opened", Operator: schema.OpHasNotOccurred},
	)

	cases, changed, err := Migrate(conditions, "")
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, cases, 2)

	// Case ids survive; rule ids derive from them.
	assert.Equal(t, "c1", cases[0].ID)
	assert.Equal(t, "c2", cases[1].ID)
	require.Len(t, cases[0].Rules, 1)
	assert.Equal(t, "c1-rule", cases[0].Rules[0].ID)
	assert.Equal(t, "page_view", cases[0].Rules[0].EventID)
	assert.Equal(t, schema.OpHasOccurred, cases[0].Rules[0].Operator)
	assert.Equal(t, schema.LogicAnd, cases[0].Logic)

	assert.Equal(t, "email_opened", cases[1].Rules[0].EventID)
	assert.Equal(t, schema.OpHasNotOccurred, cases[1].Rules[0].Operator)
}

func TestMigrate_Current_Unchanged(t *testing.T) {
	conditions := rawConditions(t, schema.Case{
		ID:    "c1",
		Logic: schema.LogicOr,
		Rules: []schema.Rule{
			{ID: "r1", EventID: "page_view", Operator: schema.OpHasOccurred},
			{ID: "r2", EventID: "email_opened", Operator: schema.OpHasNotOccurred},
		},
	})

	cases, changed, err := Migrate(conditions, "ignored")
	require.NoError(t, err)
	assert.False(t, changed)
	require.Len(t, cases, 1)
	assert.Equal(t, "c1", cases[0].ID)
	assert.Equal(t, schema.LogicOr, cases[0].Logic)
	assert.Len(t, cases[0].Rules, 2)
}

func TestMigrate_Idempotent(t *testing.T) {
	legacy := rawConditions(t, schema.LegacyCondition{ID: "c1", EventID: "page_view", Operator: schema.OpHasOccurred})

	once, changed, err := Migrate(legacy, "")
	require.NoError(t, err)
	require.True(t, changed)

	// Feed the migrated shape back through.
	again, changed, err := Migrate(rawConditions(t, once[0]), "")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, once, again)
}

func TestMigrate_Deterministic(t *testing.T) {
	legacy := rawConditions(t,
		schema.LegacyCondition{ID: "c1", EventID: "page_view", Operator: schema.OpHasOccurred},
		schema.LegacyCondition{ID: "c2", EventID: "email_opened", Operator: schema.OpHasNotOccurred},
	)

	first, _, err := Migrate(legacy, "")
	require.NoError(t, err)
	second, _, err := Migrate(legacy, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// The empty-conditions seed resolves identically too.
	seedA, _, err := Migrate(nil, "page_view")
	require.NoError(t, err)
	seedB, _, err := Migrate(nil, "page_view")
	require.NoError(t, err)
	assert.Equal(t, seedA, seedB)
}

func TestMigrate_Malformed(t *testing.T) {
	_, _, err := Migrate([]json.RawMessage{json.RawMessage(`"not an object"`)}, "")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeMigrationInProgress, schema.CodeOf(err))
}
