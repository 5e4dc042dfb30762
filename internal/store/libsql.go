package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/cadencehq/cadence/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Snapshots ---

func (s *LibSQLStore) SaveSnapshot(ctx context.Context, campaignID string, payload []byte) error {
	if campaignID == "" {
		return schema.NewError(schema.ErrCodeValidation, "campaign id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO campaign_snapshots (campaign_id, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(campaign_id) DO UPDATE SET payload=excluded.payload, updated_at=CURRENT_TIMESTAMP`,
		campaignID, string(payload),
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "save snapshot").WithCause(err)
	}
	return nil
}

// LoadSnapshot returns the stored payload, or nil when no snapshot exists for
// the campaign. Corrupt-content handling lives in the Adapter on top.
func (s *LibSQLStore) LoadSnapshot(ctx context.Context, campaignID string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM campaign_snapshots WHERE campaign_id = ?`, campaignID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "load snapshot").WithCause(err)
	}
	return []byte(payload), nil
}

func (s *LibSQLStore) DeleteSnapshot(ctx context.Context, campaignID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM campaign_snapshots WHERE campaign_id = ?`, campaignID,
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "delete snapshot").WithCause(err)
	}
	return nil
}

// --- Scheduled publishes ---

func (s *LibSQLStore) CreateScheduledPublish(ctx context.Context, sp *ScheduledPublish) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_publishes (id, campaign_id, cron_expr, enabled, last_run_at, next_run_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sp.ID, sp.CampaignID, sp.CronExpr, sp.Enabled,
		nullTime(sp.LastRunAt), nullTime(sp.NextRunAt), timeOrNow(sp.CreatedAt),
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "create scheduled publish").WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetScheduledPublish(ctx context.Context, id string) (*ScheduledPublish, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, campaign_id, cron_expr, enabled, last_run_at, next_run_at, created_at
		 FROM scheduled_publishes WHERE id = ?`, id)
	sp, err := scanScheduledPublish(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("scheduled publish", id)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "get scheduled publish").WithCause(err)
	}
	return sp, nil
}

func (s *LibSQLStore) UpdateScheduledPublishRun(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_publishes SET last_run_at = ?, next_run_at = ? WHERE id = ?`,
		lastRun, nextRun, id,
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "update scheduled publish").WithCause(err)
	}
	return checkRowsAffected(res, "scheduled publish", id)
}

func (s *LibSQLStore) SetScheduledPublishEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_publishes SET enabled = ? WHERE id = ?`, enabled, id,
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "update scheduled publish").WithCause(err)
	}
	return checkRowsAffected(res, "scheduled publish", id)
}

func (s *LibSQLStore) ListScheduledPublishes(ctx context.Context, filter ScheduledPublishFilter) ([]*ScheduledPublish, error) {
	query := `SELECT id, campaign_id, cron_expr, enabled, last_run_at, next_run_at, created_at
	          FROM scheduled_publishes WHERE 1=1`
	var args []any
	if filter.CampaignID != "" {
		query += ` AND campaign_id = ?`
		args = append(args, filter.CampaignID)
	}
	if filter.Enabled != nil {
		query += ` AND enabled = ?`
		args = append(args, *filter.Enabled)
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list scheduled publishes").WithCause(err)
	}
	defer rows.Close()

	var out []*ScheduledPublish
	for rows.Next() {
		sp, err := scanScheduledPublish(rows)
		if err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan scheduled publish").WithCause(err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list scheduled publishes").WithCause(err)
	}
	return out, nil
}

func (s *LibSQLStore) DeleteScheduledPublish(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scheduled_publishes WHERE id = ?`, id,
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "delete scheduled publish").WithCause(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledPublish(row rowScanner) (*ScheduledPublish, error) {
	sp := &ScheduledPublish{}
	var lastRun, nextRun sql.NullTime
	if err := row.Scan(&sp.ID, &sp.CampaignID, &sp.CronExpr, &sp.Enabled, &lastRun, &nextRun, &sp.CreatedAt); err != nil {
		return nil, err
	}
	if lastRun.Valid {
		sp.LastRunAt = &lastRun.Time
	}
	if nextRun.Valid {
		sp.NextRunAt = &nextRun.Time
	}
	return sp, nil
}

// --- helpers ---

func storeNotFound(resource, id string) *schema.CadenceError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
