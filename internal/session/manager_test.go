package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/internal/store"
	"github.com/cadencehq/cadence/internal/validation"
	"github.com/cadencehq/cadence/pkg/schema"
)

func newTestManager(t *testing.T) (*Manager, *store.Adapter) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewLibSQLStore("file:" + dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })

	v, err := validation.NewSnapshotValidator()
	require.NoError(t, err)
	adapter := store.NewAdapter(s, v, nil)
	return NewManager(adapter, nil), adapter
}

func TestOpen_SeedsDefaultGraph(t *testing.T) {
	m, _ := newTestManager(t)

	sess, err := m.Open(context.Background(), "camp-1", schema.SequenceBatch)
	require.NoError(t, err)
	assert.Equal(t, "camp-1", sess.CampaignID)
	require.Len(t, sess.Graph.Nodes(), 1)
	assert.Equal(t, schema.NodeTypeAction, sess.Graph.Nodes()[0].Type)
}

func TestOpen_ReusesLiveSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first, err := m.Open(ctx, "camp-1", schema.SequenceBatch)
	require.NoError(t, err)
	second, err := m.Open(ctx, "camp-1", schema.SequenceAlwaysOn)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestOpen_RestoresPersistedSnapshot(t *testing.T) {
	m, adapter := newTestManager(t)
	ctx := context.Background()

	snap, err := graph.DefaultSnapshot(schema.SequenceAlwaysOn)
	require.NoError(t, err)
	require.NoError(t, adapter.Save(ctx, "camp-1", snap))

	sess, err := m.Open(ctx, "camp-1", schema.SequenceBatch)
	require.NoError(t, err)
	// The persisted graph wins over the kind's default.
	assert.Len(t, sess.Graph.Nodes(), 2)
	assert.Equal(t, snap.Nodes[0].ID, sess.Graph.Nodes()[0].ID)
}

func TestAutosave_PersistsEveryMutation(t *testing.T) {
	m, adapter := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Open(ctx, "camp-1", schema.SequenceBatch)
	require.NoError(t, err)

	n, err := graph.NewNode(schema.NodeTypeEvent, schema.Position{})
	require.NoError(t, err)
	require.NoError(t, sess.Graph.AddNode(n))

	// A fresh manager sees the mutation without any explicit save.
	m.Close("camp-1")
	reopened, err := m.Open(ctx, "camp-1", schema.SequenceBatch)
	require.NoError(t, err)
	assert.Len(t, reopened.Graph.Nodes(), 2)

	persisted, err := adapter.Load(ctx, "camp-1")
	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Len(t, persisted.Nodes, 2)
}

func TestSnapshot_PrefersLiveSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	sess, err := m.Open(ctx, "camp-1", schema.SequenceBatch)
	require.NoError(t, err)
	n, err := graph.NewNode(schema.NodeTypeEvent, schema.Position{})
	require.NoError(t, err)
	require.NoError(t, sess.Graph.AddNode(n))

	snap, err := m.Snapshot(ctx, "camp-1")
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 2)
}

func TestSnapshot_FallsBackToPersisted(t *testing.T) {
	m, adapter := newTestManager(t)
	ctx := context.Background()

	seeded, err := graph.DefaultSnapshot(schema.SequenceBatch)
	require.NoError(t, err)
	require.NoError(t, adapter.Save(ctx, "camp-1", seeded))

	snap, err := m.Snapshot(ctx, "camp-1")
	require.NoError(t, err)
	assert.Len(t, snap.Nodes, 1)
}

func TestSnapshot_UnknownCampaign(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.Snapshot(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeNotFound, schema.CodeOf(err))
}
