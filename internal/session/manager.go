package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cadencehq/cadence/internal/graph"
	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/store"
	"github.com/cadencehq/cadence/pkg/schema"
)

// Session is one campaign's live editing state: the owning graph store plus
// the sequence kind that picks its default starting graph.
type Session struct {
	CampaignID string
	Kind       schema.SequenceKind
	Graph      *graph.Store
}

// Manager opens and tracks editing sessions, one per campaign. Opening a
// campaign restores its persisted snapshot (falling back to the default graph
// for its kind) and wires the store's mutation hook to autosave, so
// in-progress edits survive a reload before any explicit publish.
type Manager struct {
	adapter *store.Adapter
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager persisting through the given adapter.
func NewManager(adapter *store.Adapter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		adapter:  adapter,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open returns the campaign's session, creating it on first use. A missing
// (or corrupt, see store.Adapter) snapshot seeds the default graph for kind.
func (m *Manager) Open(ctx context.Context, campaignID string, kind schema.SequenceKind) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[campaignID]; ok {
		return sess, nil
	}

	snap, err := m.adapter.Load(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		seeded, err := graph.DefaultSnapshot(kind)
		if err != nil {
			return nil, err
		}
		snap = &seeded
	}

	g := graph.NewStore()
	g.Restore(*snap)

	sess := &Session{CampaignID: campaignID, Kind: kind, Graph: g}
	g.OnChange(func() {
		saveCtx := logging.WithCampaignID(context.Background(), campaignID)
		if err := m.adapter.Save(saveCtx, campaignID, g.Snapshot()); err != nil {
			m.logger.WarnContext(saveCtx, "autosave failed", slog.String("error", err.Error()))
		}
	})

	m.sessions[campaignID] = sess
	return sess, nil
}

// Get returns an already-open session.
func (m *Manager) Get(campaignID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[campaignID]
	return sess, ok
}

// Snapshot resolves a campaign's current graph state: the live session when
// one is open, otherwise the persisted snapshot. This is the publisher's
// snapshot source.
func (m *Manager) Snapshot(ctx context.Context, campaignID string) (schema.Snapshot, error) {
	if sess, ok := m.Get(campaignID); ok {
		return sess.Graph.Snapshot(), nil
	}
	snap, err := m.adapter.Load(ctx, campaignID)
	if err != nil {
		return schema.Snapshot{}, err
	}
	if snap == nil {
		return schema.Snapshot{}, schema.NewErrorf(schema.ErrCodeNotFound, "no graph for campaign %q", campaignID)
	}
	return *snap, nil
}

// Close drops a campaign's session. Its state persists via autosave.
func (m *Manager) Close(campaignID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, campaignID)
}
