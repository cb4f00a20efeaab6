package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"helixclips/app/client/twitch"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockCatalog(t *testing.T) (*Catalog, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := New(db)
	c.now = func() time.Time { return fixedNow }

	return c, mock
}

var entryColumns = []string{
	"id", "url", "embed_url", "broadcaster_id", "broadcaster_name", "creator_id", "creator_name",
	"video_id", "game_id", "language", "title", "view_count", "created_at", "thumbnail_url", "duration",
	"is_featured", "synced_at", "object_key", "archived_at", "vod_offset",
}

func entryRow(id string, archivedAt driver.Value) []driver.Value {
	return []driver.Value{
		id, "https://clips.twitch.tv/" + id, "", "100", "streamer", "200", "viewer",
		"", "509658", "en", "title " + id, 42, fixedNow.Add(-time.Hour), "", 30.0,
		false, fixedNow, "", archivedAt, int64(480),
	}
}

func TestUpsert(t *testing.T) {
	c, mock := newMockCatalog(t)

	clip := twitch.ClipData{
		ID:            "Slug",
		URL:           "https://clips.twitch.tv/Slug",
		BroadcasterID: "100",
		GameID:        "509658",
		Title:         "title",
		ViewCount:     7,
		CreatedAt:     fixedNow.Add(-time.Hour),
		Duration:      12.5,
		VodOffset:     lo.ToPtr(480),
	}

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO clip")
	mock.ExpectExec("INSERT INTO clip").
		WithArgs("Slug", clip.URL, "", "100", "", "", "", "", "509658", "", "title", 7,
			clip.CreatedAt, "", 12.5, false, fixedNow, 480).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, c.Upsert(context.Background(), []twitch.ClipData{clip}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRollsBackOnError(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO clip")
	mock.ExpectExec("INSERT INTO clip").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := c.Upsert(context.Background(), []twitch.ClipData{{ID: "a"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertNothing(t *testing.T) {
	c, mock := newMockCatalog(t)

	require.NoError(t, c.Upsert(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	c, mock := newMockCatalog(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM clip WHERE id = ?").
			WithArgs("a").
			WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(entryRow("a", fixedNow)...))

		entry, err := c.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", entry.ID)
		assert.Equal(t, 42, entry.ViewCount)
		require.NotNil(t, entry.ArchivedAt)
		assert.True(t, fixedNow.Equal(*entry.ArchivedAt))
		require.NotNil(t, entry.VodOffset)
		assert.Equal(t, 480, *entry.VodOffset)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM clip WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		entry, err := c.Get(ctx, "missing")
		assert.Nil(t, entry)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	c, mock := newMockCatalog(t)
	ctx := context.Background()

	t.Run("filtered", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM clip WHERE broadcaster_id = \? AND game_id = \? ORDER BY created_at DESC, id LIMIT \? OFFSET \?`).
			WithArgs("100", "509658", 5, 10).
			WillReturnRows(sqlmock.NewRows(entryColumns).
				AddRow(entryRow("a", nil)...).
				AddRow(entryRow("b", nil)...))

		entries, err := c.List(ctx, ListQuery{BroadcasterID: "100", GameID: "509658", Limit: 5, Offset: 10})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Nil(t, entries[0].ArchivedAt)
	})

	t.Run("defaults", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM clip ORDER BY`).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows(entryColumns))

		entries, err := c.List(ctx, ListQuery{Offset: -3})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkArchived(t *testing.T) {
	c, mock := newMockCatalog(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE clip SET object_key").
		WithArgs("clips/a.mp4", fixedNow, "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, c.MarkArchived(ctx, "a", "clips/a.mp4"))

	mock.ExpectExec("UPDATE clip SET object_key").
		WithArgs("clips/x.mp4", fixedNow, "x").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, c.MarkArchived(ctx, "x", "clips/x.mp4"), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAppliesOnlyNewVersions(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS migration").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT coalesce").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(1))
	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE clip ADD COLUMN object_key").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO migration").WithArgs(2, "archive columns").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("ALTER TABLE clip ADD COLUMN vod_offset").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO migration").WithArgs(3, "vod offset").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCount(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM clip WHERE game_id = \?`).
		WithArgs("509658").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := c.Count(context.Background(), ListQuery{GameID: "509658", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	mock.ExpectQuery("SELECT count").WillReturnError(errors.New("locked"))
	_, err = c.Count(context.Background(), ListQuery{})
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListUnarchived(t *testing.T) {
	c, mock := newMockCatalog(t)

	mock.ExpectQuery(`SELECT (.+) FROM clip WHERE archived_at IS NULL ORDER BY view_count DESC, id LIMIT \?`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(entryRow("a", nil)...))

	entries, err := c.ListUnarchived(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
