package twitch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// pagedHandler serves pages of two clips; the cursor is the next page number.
func pagedHandler(t *testing.T, pages int, calls *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.Empty(t, r.URL.Query().Get("before"))

		page := 0
		if after := r.URL.Query().Get("after"); after != "" {
			_, err := fmt.Sscanf(after, "p%d", &page)
			require.NoError(t, err)
		}

		cursor := ""
		if page+1 < pages {
			cursor = fmt.Sprintf("p%d", page+1)
		}

		_, _ = fmt.Fprintf(w, `{"data":[{"id":"c%d-0"},{"id":"c%d-1"}],"pagination":{"cursor":%q}}`, page, page, cursor)
	}
}

func TestClipPaginatorWalksAllPages(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, pagedHandler(t, 3, &calls))

	paginator := client.NewClipPaginator(GetClipsParams{
		FilterType: ClipFilterBroadcaster,
		IDs:        []string{"1"},
		First:      2,
		Before:     "ignored",
	})

	ctx := context.Background()
	var ids []string
	for !paginator.Done() {
		clips, err := paginator.Next(ctx)
		require.NoError(t, err)
		for _, clip := range clips {
			ids = append(ids, clip.ID)
		}
	}

	require.Equal(t, []string{"c0-0", "c0-1", "c1-0", "c1-1", "c2-0", "c2-1"}, ids)
	require.EqualValues(t, 3, calls.Load())
	require.Empty(t, paginator.Cursor())

	clips, err := paginator.Next(ctx)
	require.NoError(t, err)
	require.Nil(t, clips)
	require.EqualValues(t, 3, calls.Load())
}

func TestClipPaginatorAllWithLimit(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, pagedHandler(t, 10, &calls))

	paginator := client.NewClipPaginator(GetClipsParams{
		FilterType: ClipFilterGame,
		IDs:        []string{"1"},
	})

	clips, err := paginator.All(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, clips, 3)
	require.EqualValues(t, 2, calls.Load())
	require.Equal(t, "p2", paginator.Cursor())
	require.False(t, paginator.Done())
}

func TestClipPaginatorStartsFromAfter(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, pagedHandler(t, 3, &calls))

	paginator := client.NewClipPaginator(GetClipsParams{
		FilterType: ClipFilterGame,
		IDs:        []string{"1"},
		After:      "p2",
	})

	clips, err := paginator.All(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, clips, 2)
	require.Equal(t, "c2-0", clips[0].ID)
	require.True(t, paginator.Done())
}

func TestClipPaginatorKeepsCursorOnError(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"a"}],"pagination":{"cursor":"next"}}`))
	})

	paginator := client.NewClipPaginator(GetClipsParams{FilterType: ClipFilterGame, IDs: []string{"1"}})
	ctx := context.Background()

	_, err := paginator.Next(ctx)
	require.NoError(t, err)

	_, err = paginator.Next(ctx)
	require.Error(t, err)
	require.Equal(t, "next", paginator.Cursor())
	require.False(t, paginator.Done())
}
