package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"helixclips/app/client/twitch"
	"helixclips/pkg/config"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/samber/do"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

var ErrNotFound = errors.New("clip not found in catalog")

const clipColumns = `id, url, embed_url, broadcaster_id, broadcaster_name, creator_id, creator_name,
	video_id, game_id, language, title, view_count, created_at, thumbnail_url, duration, is_featured,
	synced_at, object_key, archived_at, vod_offset`

// Entry is a clip as stored in the catalog.
type Entry struct {
	twitch.ClipData
	SyncedAt   time.Time  `json:"synced_at"`
	ObjectKey  string     `json:"object_key,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

type ListQuery struct {
	BroadcasterID string
	GameID        string
	Limit         int
	Offset        int
}

type Catalog struct {
	db  *sql.DB
	now func() time.Time
}

func NewCatalog(di *do.Injector) (*Catalog, error) {
	cfg := do.MustInvoke[*config.Config](di)
	ctx := do.MustInvoke[context.Context](di)

	db, err := Open(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	c := New(db)
	if err = c.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	return c, nil
}

// Open opens the SQLite file at path, creating its directory when needed.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}

	db, err := otelsql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL",
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	return db, nil
}

func New(db *sql.DB) *Catalog {
	return &Catalog{db: db, now: time.Now}
}

func (c *Catalog) Shutdown() error {
	return c.db.Close()
}

func (c *Catalog) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Upsert inserts clips or refreshes the mutable fields of known ones.
// Archive state is left untouched.
func (c *Catalog) Upsert(ctx context.Context, clips []twitch.ClipData) error {
	if len(clips) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO clip (id, url, embed_url, broadcaster_id, broadcaster_name, creator_id, creator_name,
		video_id, game_id, language, title, view_count, created_at, thumbnail_url, duration, is_featured, synced_at,
		vod_offset)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE SET
		title = excluded.title,
		view_count = excluded.view_count,
		video_id = excluded.video_id,
		thumbnail_url = excluded.thumbnail_url,
		is_featured = excluded.is_featured,
		vod_offset = excluded.vod_offset,
		synced_at = excluded.synced_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := c.now().UTC()
	for _, clip := range clips {
		if _, err = stmt.ExecContext(ctx,
			clip.ID, clip.URL, clip.EmbedURL, clip.BroadcasterID, clip.BroadcasterName,
			clip.CreatorID, clip.CreatorName, clip.VideoID, clip.GameID, clip.Language,
			clip.Title, clip.ViewCount, clip.CreatedAt.UTC(), clip.ThumbnailURL, clip.Duration,
			clip.IsFeatured, now, vodOffset(clip.VodOffset),
		); err != nil {
			return fmt.Errorf("upsert clip %s: %w", clip.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+clipColumns+" FROM clip WHERE id = ?", id)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get clip %s: %w", id, err)
	}

	return entry, nil
}

func (q ListQuery) where() (string, []any) {
	var where []string
	var args []any

	if q.BroadcasterID != "" {
		where = append(where, "broadcaster_id = ?")
		args = append(args, q.BroadcasterID)
	}
	if q.GameID != "" {
		where = append(where, "game_id = ?")
		args = append(args, q.GameID)
	}

	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// List returns clips newest first.
func (c *Catalog) List(ctx context.Context, q ListQuery) ([]*Entry, error) {
	where, args := q.where()
	query := "SELECT " + clipColumns + " FROM clip" + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, max(q.Offset, 0))

	return c.query(ctx, query, args...)
}

func (c *Catalog) ListUnarchived(ctx context.Context, limit int) ([]*Entry, error) {
	return c.query(ctx, "SELECT "+clipColumns+" FROM clip WHERE archived_at IS NULL ORDER BY view_count DESC, id LIMIT ?", limit)
}

func (c *Catalog) MarkArchived(ctx context.Context, id, objectKey string) error {
	res, err := c.db.ExecContext(ctx, "UPDATE clip SET object_key = ?, archived_at = ? WHERE id = ?",
		objectKey, c.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark clip %s archived: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

// Count returns how many clips match the filters of q. Limit and Offset are ignored.
func (c *Catalog) Count(ctx context.Context, q ListQuery) (int, error) {
	where, args := q.where()

	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM clip"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

func (c *Catalog) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query clips: %w", err)
	}
	defer rows.Close()

	result := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clip: %w", err)
		}
		result = append(result, entry)
	}

	return result, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var archivedAt sql.NullTime
	var offset sql.NullInt64

	err := s.Scan(
		&e.ID, &e.URL, &e.EmbedURL, &e.BroadcasterID, &e.BroadcasterName,
		&e.CreatorID, &e.CreatorName, &e.VideoID, &e.GameID, &e.Language,
		&e.Title, &e.ViewCount, &e.CreatedAt, &e.ThumbnailURL, &e.Duration,
		&e.IsFeatured, &e.SyncedAt, &e.ObjectKey, &archivedAt, &offset,
	)
	if err != nil {
		return nil, err
	}

	if archivedAt.Valid {
		e.ArchivedAt = &archivedAt.Time
	}
	if offset.Valid {
		v := int(offset.Int64)
		e.VodOffset = &v
	}

	return &e, nil
}

func vodOffset(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
