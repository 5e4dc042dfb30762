package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/internal/validation"
	"github.com/cadencehq/cadence/pkg/schema"
)

func newTestAdapter(t *testing.T) (*Adapter, *LibSQLStore) {
	t.Helper()
	s := newTestStore(t)
	v, err := validation.NewSnapshotValidator()
	require.NoError(t, err)
	return NewAdapter(s, v, nil), s
}

func TestAdapter_SaveLoadRoundTrip(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	snap, err := graph.DefaultSnapshot(schema.SequenceAlwaysOn)
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx, "camp-1", snap))

	got, err := a.Load(ctx, "camp-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, snap.Nodes[0].ID, got.Nodes[0].ID)
	assert.Len(t, got.Edges, 1)
}

func TestAdapter_LoadMissing(t *testing.T) {
	a, _ := newTestAdapter(t)

	got, err := a.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdapter_CorruptPayloadTreatedAsAbsent(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, "camp-1", []byte(`{not json`)))

	got, err := a.Load(ctx, "camp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdapter_SchemaInvalidPayloadTreatedAsAbsent(t *testing.T) {
	a, s := newTestAdapter(t)
	ctx := context.Background()

	// Valid JSON, wrong shape.
	require.NoError(t, s.SaveSnapshot(ctx, "camp-1", []byte(`{"nodes":[{"id":"n1"}],"edges":[]}`)))

	got, err := a.Load(ctx, "camp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAdapter_Delete(t *testing.T) {
	a, _ := newTestAdapter(t)
	ctx := context.Background()

	snap, err := graph.DefaultSnapshot(schema.SequenceBatch)
	require.NoError(t, err)
	require.NoError(t, a.Save(ctx, "camp-1", snap))
	require.NoError(t, a.Delete(ctx, "camp-1"))

	got, err := a.Load(ctx, "camp-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
