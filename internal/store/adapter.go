package store

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cadencehq/cadence/internal/validation"
	"github.com/cadencehq/cadence/pkg/schema"
)

// Adapter is the typed local-persistence boundary the editing session talks
// to: it marshals snapshots in and screens them on the way out. A stored
// document that fails to parse or violates the snapshot schema is treated as
// absent (logged, never surfaced to the caller), so a stale or corrupt
// mirror can never wedge the editor.
type Adapter struct {
	store     Store
	validator *validation.SnapshotValidator
	logger    *slog.Logger
}

// NewAdapter wraps a Store with snapshot marshalling and corrupt-data screening.
func NewAdapter(s Store, v *validation.SnapshotValidator, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{store: s, validator: v, logger: logger}
}

// Save persists the snapshot for the campaign, replacing any prior one.
func (a *Adapter) Save(ctx context.Context, campaignID string, snap schema.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "marshal snapshot").WithCause(err)
	}
	return a.store.SaveSnapshot(ctx, campaignID, payload)
}

// Load returns the campaign's snapshot, or nil when none exists. Corrupt or
// schema-invalid payloads also yield nil; the caller falls back to the
// default graph for the campaign's sequence kind.
func (a *Adapter) Load(ctx context.Context, campaignID string) (*schema.Snapshot, error) {
	payload, err := a.store.LoadSnapshot(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, nil
	}

	if a.validator != nil {
		if err := a.validator.ValidateJSON(payload); err != nil {
			a.logger.Warn("discarding corrupt snapshot",
				slog.String("campaign_id", campaignID),
				slog.String("error", err.Error()),
			)
			return nil, nil
		}
	}

	var snap schema.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		a.logger.Warn("discarding unparseable snapshot",
			slog.String("campaign_id", campaignID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return &snap, nil
}

// Delete removes the campaign's snapshot.
func (a *Adapter) Delete(ctx context.Context, campaignID string) error {
	return a.store.DeleteSnapshot(ctx, campaignID)
}
