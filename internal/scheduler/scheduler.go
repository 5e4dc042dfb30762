package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cadencehq/cadence/internal/store"
)

// CampaignPublisher is the interface the scheduler uses to publish campaigns.
// Satisfied by publish.Publisher (avoids an import cycle with wiring code).
type CampaignPublisher interface {
	Publish(ctx context.Context, campaignID string) error
}

// Scheduler polls the store for due scheduled publishes and runs them, so
// batch campaigns can go out on a fixed cadence (e.g. Monday 9am blasts).
type Scheduler struct {
	store     store.Store
	publisher CampaignPublisher
	parser    cron.Parser
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	mu        sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{} // schedule IDs currently executing (dedup)
}

// NewScheduler creates a new Scheduler.
func NewScheduler(s store.Store, publisher CampaignPublisher, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:     s,
		publisher: publisher,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		logger:    logger,
		inflight:  make(map[string]struct{}),
	}
}

// Start launches the background scheduling loop with a 60s ticker.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	// Run an initial tick immediately.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick checks all enabled schedules and runs those that are due.
func (s *Scheduler) tick(ctx context.Context) {
	enabled := true
	schedules, err := s.store.ListScheduledPublishes(ctx, store.ScheduledPublishFilter{Enabled: &enabled})
	if err != nil {
		s.logger.Error("failed to list scheduled publishes", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	for _, sp := range schedules {
		if sp.NextRunAt == nil || !sp.NextRunAt.After(now) {
			if !s.tryAcquire(sp.ID) {
				continue // already running (dedup)
			}
			if err := s.runSchedule(ctx, sp, now); err != nil {
				s.logger.Error("failed to run scheduled publish",
					slog.String("schedule_id", sp.ID),
					slog.String("error", err.Error()),
				)
			}
			s.release(sp.ID)
		}
	}
}

// runSchedule publishes the campaign and advances the schedule's timestamps.
// A failed publish still advances next_run_at; the schedule retries on its
// own cadence rather than hammering every tick.
func (s *Scheduler) runSchedule(ctx context.Context, sp *store.ScheduledPublish, now time.Time) error {
	s.logger.Info("running scheduled publish",
		slog.String("schedule_id", sp.ID),
		slog.String("campaign_id", sp.CampaignID),
	)

	if err := s.publisher.Publish(ctx, sp.CampaignID); err != nil {
		s.logger.Error("scheduled publish failed",
			slog.String("schedule_id", sp.ID),
			slog.String("error", err.Error()),
		)
	}

	nextRun, err := s.CalculateNextRun(sp.CronExpr, now)
	if err != nil {
		return fmt.Errorf("calculate next run for schedule %q: %w", sp.ID, err)
	}
	return s.store.UpdateScheduledPublishRun(ctx, sp.ID, now, nextRun)
}

// tryAcquire returns true and marks the schedule as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(id string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[id]; ok {
		return false
	}
	s.inflight[id] = struct{}{}
	return true
}

// release removes the schedule from the in-flight set.
func (s *Scheduler) release(id string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, id)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// NextRun is CalculateNextRun for callers without a Scheduler, e.g. the API
// handler validating a cron expression at schedule-creation time.
func NextRun(cronExpr string, from time.Time) (time.Time, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}
