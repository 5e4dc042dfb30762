package publish

import (
	"context"
	"log/slog"
	"sync"

	"github.com/cadencehq/cadence/internal/compiler"
	"github.com/cadencehq/cadence/internal/logging"
	"github.com/cadencehq/cadence/internal/validation"
	"github.com/cadencehq/cadence/pkg/schema"
)

// SnapshotSource resolves a campaign's current graph snapshot at call time.
// Publishing always compiles from this, never from a captured reference, so
// edits made while a save is in flight are picked up by the trailing rerun.
type SnapshotSource func(ctx context.Context, campaignID string) (schema.Snapshot, error)

// Publisher runs the save pipeline: snapshot → compile → validate → submit.
//
// At most one publish per campaign is in flight at a time. A publish
// requested while one is running coalesces into a single trailing rerun that
// compiles a fresh snapshot, so a submitted step list always reflects exactly
// one graph state, never a mix of two. A failed publish changes nothing
// locally; the caller can simply retry.
type Publisher struct {
	source    SnapshotSource
	submitter Submitter
	logger    *slog.Logger

	mu     sync.Mutex
	states map[string]*campaignState
}

type campaignState struct {
	running bool
	pending bool
}

// NewPublisher creates a Publisher.
func NewPublisher(source SnapshotSource, submitter Submitter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		source:    source,
		submitter: submitter,
		logger:    logger,
		states:    make(map[string]*campaignState),
	}
}

// Publish compiles and submits the campaign's current graph. When a publish
// for the same campaign is already in flight the request coalesces into its
// trailing rerun and returns immediately with no error.
func (p *Publisher) Publish(ctx context.Context, campaignID string) error {
	ctx = logging.WithCampaignID(ctx, campaignID)

	p.mu.Lock()
	st := p.states[campaignID]
	if st == nil {
		st = &campaignState{}
		p.states[campaignID] = st
	}
	if st.running {
		st.pending = true
		p.mu.Unlock()
		p.logger.DebugContext(ctx, "publish coalesced into in-flight sync",
			slog.String("code", schema.ErrCodeSaveConflict))
		return nil
	}
	st.running = true
	p.mu.Unlock()

	var err error
	for {
		err = p.run(ctx, campaignID)

		p.mu.Lock()
		if st.pending {
			st.pending = false
			p.mu.Unlock()
			continue
		}
		st.running = false
		p.mu.Unlock()
		return err
	}
}

// Preview compiles the campaign's current graph without submitting it.
func (p *Publisher) Preview(ctx context.Context, campaignID string) ([]schema.CampaignStep, error) {
	snap, err := p.source(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(campaignID, snap)
}

func (p *Publisher) run(ctx context.Context, campaignID string) error {
	snap, err := p.source(ctx, campaignID)
	if err != nil {
		return err
	}

	if err := validation.ValidateSnapshot(snap).ToError(); err != nil {
		return err
	}

	steps, err := compiler.Compile(campaignID, snap)
	if err != nil {
		return err
	}

	if err := p.submitter.SubmitSteps(ctx, campaignID, steps); err != nil {
		p.logger.ErrorContext(ctx, "step submission failed", slog.String("error", err.Error()))
		return err
	}

	p.logger.InfoContext(ctx, "campaign published", slog.Int("steps", len(steps)))
	return nil
}
