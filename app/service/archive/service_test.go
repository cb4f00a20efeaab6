package archive

import (
	"context"
	"errors"
	"helixclips/app/client/twitch"
	"helixclips/app/repository/catalog"
	"helixclips/app/storage"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	mu       sync.Mutex
	entries  []*catalog.Entry
	archived map[string]string
}

func (f *fakeCatalog) ListUnarchived(_ context.Context, limit int) ([]*catalog.Entry, error) {
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeCatalog) MarkArchived(_ context.Context, id, objectKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived[id] = objectKey
	return nil
}

type fakeDownloader struct {
	fail map[string]bool
}

func (f *fakeDownloader) DownloadClip(_ context.Context, slug string, w io.Writer) (int64, error) {
	if f.fail[slug] {
		return 0, errors.New("gql unavailable")
	}
	n, err := io.WriteString(w, "media-"+slug)
	return int64(n), err
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string]string
}

func (m *memoryStorage) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if int64(len(data)) != size {
		return storage.ObjectInfo{}, errors.New("size mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(data)

	return storage.ObjectInfo{Key: key, Size: size, ContentType: contentType}, nil
}

func (m *memoryStorage) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "memory://" + key, nil
}

func entry(id string) *catalog.Entry {
	return &catalog.Entry{ClipData: twitch.ClipData{ID: id, BroadcasterID: "100"}}
}

func TestRunArchivesClips(t *testing.T) {
	cat := &fakeCatalog{
		entries:  []*catalog.Entry{entry("a"), entry("b"), entry("c"), entry("d")},
		archived: map[string]string{},
	}
	store := &memoryStorage{objects: map[string]string{}}

	s := &Service{
		catalog:    cat,
		downloader: &fakeDownloader{fail: map[string]bool{"c": true}},
		storage:    store,
		workers:    2,
	}

	n, err := s.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, map[string]string{
		"a": "clips/100/a.mp4",
		"b": "clips/100/b.mp4",
		"d": "clips/100/d.mp4",
	}, cat.archived)
	require.Equal(t, "media-b", store.objects["clips/100/b.mp4"])
}

func TestRunRespectsLimit(t *testing.T) {
	cat := &fakeCatalog{
		entries:  []*catalog.Entry{entry("a"), entry("b"), entry("c")},
		archived: map[string]string{},
	}

	s := &Service{
		catalog:    cat,
		downloader: &fakeDownloader{},
		storage:    &memoryStorage{objects: map[string]string{}},
		workers:    1,
	}

	n, err := s.Run(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NotContains(t, cat.archived, "c")
}

func TestRunStopsOnCancel(t *testing.T) {
	cat := &fakeCatalog{
		entries:  []*catalog.Entry{entry("a")},
		archived: map[string]string{},
	}

	s := &Service{
		catalog:    cat,
		downloader: &fakeDownloader{},
		storage:    &memoryStorage{objects: map[string]string{}},
		workers:    1,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := s.Run(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, n)
	require.Empty(t, cat.archived)
}
