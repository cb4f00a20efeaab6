package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

type migration struct {
	version int
	name    string
	script  string
}

var migrations = []migration{
	{
		version: 1,
		name:    "clips table",
		script: `
	CREATE TABLE IF NOT EXISTS clip (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		embed_url TEXT NOT NULL,
		broadcaster_id TEXT NOT NULL,
		broadcaster_name TEXT NOT NULL,
		creator_id TEXT NOT NULL,
		creator_name TEXT NOT NULL,
		video_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		language TEXT NOT NULL,
		title TEXT NOT NULL,
		view_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		thumbnail_url TEXT NOT NULL,
		duration REAL NOT NULL,
		is_featured SMALLINT NOT NULL DEFAULT 0,
		synced_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS clip_broadcaster_idx ON clip (broadcaster_id, created_at);
	CREATE INDEX IF NOT EXISTS clip_game_idx ON clip (game_id, created_at);
		`,
	},
	{
		version: 2,
		name:    "archive columns",
		script: `
	ALTER TABLE clip ADD COLUMN object_key TEXT NOT NULL DEFAULT '';
	ALTER TABLE clip ADD COLUMN archived_at TIMESTAMP;
		`,
	},
	{
		version: 3,
		name:    "vod offset",
		script: `
	ALTER TABLE clip ADD COLUMN vod_offset INTEGER;
		`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func (c *Catalog) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS migration (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migration table: %w", err)
	}

	var current int
	if err := c.db.QueryRowContext(ctx, "SELECT coalesce(max(version), 0) FROM migration").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		if err := c.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}

		slog.Info("Applied catalog migration",
			slog.Int("version", m.version),
			slog.String("name", m.name),
		)
	}

	return nil
}

func (c *Catalog) applyMigration(ctx context.Context, m migration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) { _ = tx.Rollback() }(tx)

	if _, err = tx.ExecContext(ctx, m.script); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO migration (version, name) VALUES (?, ?)", m.version, m.name); err != nil {
		return err
	}

	return tx.Commit()
}
