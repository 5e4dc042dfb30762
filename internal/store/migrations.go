package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed migrations/001_initial_schema.sql
var initialSchema string

// Versions must be strictly increasing; scripts run once, in order.
var allMigrations = []struct {
	version int
	label   string
	script  string
}{
	{1, "initial_schema", initialSchema},
}

// runMigrations brings the database up to the latest schema. Applied versions
// are tracked in migration_history so reopening a store is idempotent.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migration_history (
		version INTEGER PRIMARY KEY,
		label TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migration_history: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM migration_history`).Scan(&current); err != nil {
		return fmt.Errorf("read migration_history: %w", err)
	}

	for _, m := range allMigrations {
		if m.version <= current {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range statements(m.script) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("apply migration %d (%s): %w", m.version, m.label, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migration_history (version, label) VALUES (?, ?)`, m.version, m.label); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// statements turns a migration script into executable chunks: comment lines
// are stripped, then the remainder splits on ";". Good enough for DDL scripts
// that never embed a semicolon in a literal.
func statements(script string) []string {
	var sql strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		sql.WriteString(line)
		sql.WriteByte('\n')
	}

	var out []string
	for _, chunk := range strings.Split(sql.String(), ";") {
		if s := strings.TrimSpace(chunk); s != "" {
			out = append(out, s)
		}
	}
	return out
}
