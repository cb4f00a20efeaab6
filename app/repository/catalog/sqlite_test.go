package catalog

import (
	"context"
	"helixclips/app/client/twitch"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteCatalog(t *testing.T) *Catalog {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "c.db"))
	require.NoError(t, err)

	c := New(db)
	c.now = func() time.Time { return fixedNow }
	t.Cleanup(func() { _ = c.Shutdown() })

	return c
}

func TestSQLiteRoundTrip(t *testing.T) {
	c := newSQLiteCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.Migrate(ctx))
	require.NoError(t, c.Migrate(ctx))

	var version int
	require.NoError(t, c.db.QueryRowContext(ctx, "SELECT max(version) FROM migration").Scan(&version))
	assert.Equal(t, len(migrations), version)

	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	clips := []twitch.ClipData{
		{ID: "a", BroadcasterID: "100", GameID: "509658", Title: "first", ViewCount: 10,
			CreatedAt: created, Duration: 30, VodOffset: lo.ToPtr(480)},
		{ID: "b", BroadcasterID: "100", GameID: "509658", Title: "second", ViewCount: 50,
			CreatedAt: created.Add(2 * time.Hour)},
		{ID: "c", BroadcasterID: "200", GameID: "1", Title: "other", ViewCount: 30,
			CreatedAt: created.Add(time.Hour)},
	}
	require.NoError(t, c.Upsert(ctx, clips))

	entry, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, created.Equal(entry.CreatedAt))
	assert.True(t, fixedNow.Equal(entry.SyncedAt))
	require.NotNil(t, entry.VodOffset)
	assert.Equal(t, 480, *entry.VodOffset)
	assert.Nil(t, entry.ArchivedAt)

	t.Run("upsert refreshes existing clips", func(t *testing.T) {
		updated := clips[0]
		updated.Title = "renamed"
		updated.ViewCount = 11
		require.NoError(t, c.Upsert(ctx, []twitch.ClipData{updated}))

		entry, err := c.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "renamed", entry.Title)
		assert.Equal(t, 11, entry.ViewCount)

		n, err := c.Count(ctx, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = c.Count(ctx, ListQuery{BroadcasterID: "100", Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("list newest first", func(t *testing.T) {
		entries, err := c.List(ctx, ListQuery{BroadcasterID: "100"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, lo.Map(entries, func(e *Entry, _ int) string { return e.ID }))
		assert.Nil(t, entries[0].VodOffset)

		entries, err = c.List(ctx, ListQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "c", entries[0].ID)
	})

	t.Run("archive", func(t *testing.T) {
		require.NoError(t, c.MarkArchived(ctx, "b", "clips/100/b.mp4"))
		require.ErrorIs(t, c.MarkArchived(ctx, "missing", "x"), ErrNotFound)

		entry, err := c.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "clips/100/b.mp4", entry.ObjectKey)
		require.NotNil(t, entry.ArchivedAt)
		assert.True(t, fixedNow.Equal(*entry.ArchivedAt))

		entries, err := c.ListUnarchived(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, lo.Map(entries, func(e *Entry, _ int) string { return e.ID }))
	})

	_, err = c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
