package store

import (
	"context"
	"time"
)

// Store defines the local persistence contract: one graph snapshot per
// campaign id, plus the scheduled-publish records the scheduler polls.
// All implementations must be safe for concurrent use.
type Store interface {
	// Snapshots (one per campaign, last write wins)
	SaveSnapshot(ctx context.Context, campaignID string, payload []byte) error
	LoadSnapshot(ctx context.Context, campaignID string) ([]byte, error)
	DeleteSnapshot(ctx context.Context, campaignID string) error

	// Scheduled publishes
	CreateScheduledPublish(ctx context.Context, sp *ScheduledPublish) error
	GetScheduledPublish(ctx context.Context, id string) (*ScheduledPublish, error)
	UpdateScheduledPublishRun(ctx context.Context, id string, lastRun, nextRun time.Time) error
	SetScheduledPublishEnabled(ctx context.Context, id string, enabled bool) error
	ListScheduledPublishes(ctx context.Context, filter ScheduledPublishFilter) ([]*ScheduledPublish, error)
	DeleteScheduledPublish(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}

// ScheduledPublish asks the scheduler to compile and submit a campaign's
// graph on a cron cadence.
type ScheduledPublish struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaign_id"`
	CronExpr   string     `json:"cron_expr"`
	Enabled    bool       `json:"enabled"`
	LastRunAt  *time.Time `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time `json:"next_run_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ScheduledPublishFilter narrows ListScheduledPublishes.
type ScheduledPublishFilter struct {
	CampaignID string
	Enabled    *bool
}
