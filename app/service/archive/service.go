package archive

import (
	"context"
	"errors"
	"fmt"
	"helixclips/app/client/clip_downloader"
	"helixclips/app/repository/catalog"
	"helixclips/app/storage"
	"helixclips/pkg/config"
	"helixclips/pkg/util"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/enriquebris/goconcurrentqueue"
	"github.com/getsentry/sentry-go"
	"github.com/samber/do"
)

type clipCatalog interface {
	ListUnarchived(ctx context.Context, limit int) ([]*catalog.Entry, error)
	MarkArchived(ctx context.Context, id, objectKey string) error
}

type clipDownloader interface {
	DownloadClip(ctx context.Context, slug string, w io.Writer) (int64, error)
}

// Service copies catalog clips into object storage.
type Service struct {
	catalog    clipCatalog
	downloader clipDownloader
	storage    storage.Storage
	workers    int
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	objStore, err := do.Invoke[storage.Storage](di)
	if err != nil {
		return nil, fmt.Errorf("archive needs object storage: %w", err)
	}

	return &Service{
		catalog:    do.MustInvoke[*catalog.Catalog](di),
		downloader: do.MustInvoke[*clip_downloader.Downloader](di),
		storage:    objStore,
		workers:    cfg.Sync.ArchiveWorkers,
	}, nil
}

// Run archives up to limit clips that have not been archived yet and
// returns how many were stored. Individual failures are logged and skipped.
func (s *Service) Run(ctx context.Context, limit int) (int, error) {
	entries, err := s.catalog.ListUnarchived(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list unarchived clips: %w", err)
	}

	queue := goconcurrentqueue.NewFIFO()
	for _, entry := range entries {
		if err := queue.Enqueue(entry); err != nil {
			return 0, fmt.Errorf("enqueue clip: %w", err)
		}
	}

	slog.Info("Archiving clips",
		slog.Int("count", queue.GetLen()),
		slog.Int("workers", s.workers),
	)

	var archived atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerCtx := context.WithValue(ctx, util.WorkerIDContextKey, workerID)

			for {
				if workerCtx.Err() != nil {
					return
				}

				item, err := queue.Dequeue()
				if err != nil {
					return
				}

				entry := item.(*catalog.Entry)
				if err := s.archiveClip(workerCtx, entry); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					sentry.CaptureException(err)
					slog.ErrorContext(workerCtx, "Failed to archive clip",
						slog.String("clip_id", entry.ID),
						slog.Any("error", err),
					)
					continue
				}

				archived.Add(1)
			}
		}(i)
	}

	wg.Wait()

	return int(archived.Load()), ctx.Err()
}

func (s *Service) archiveClip(ctx context.Context, entry *catalog.Entry) error {
	tmp, err := os.CreateTemp("", "clip-*.mp4")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := s.downloader.DownloadClip(ctx, entry.ID, tmp)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}

	if _, err = tmp.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind temp file: %w", err)
	}

	key := storage.ClipKey(entry.BroadcasterID, entry.ID)
	if _, err = s.storage.Put(ctx, key, tmp, size, "video/mp4"); err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	if err = s.catalog.MarkArchived(ctx, entry.ID, key); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}

	slog.DebugContext(ctx, "Archived clip",
		slog.String("clip_id", entry.ID),
		slog.String("key", key),
		slog.Int64("size", size),
	)

	return nil
}
