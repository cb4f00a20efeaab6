package clips

import (
	"context"
	"fmt"
	"helixclips/app/client/twitch"
	"helixclips/app/repository/catalog"
	"helixclips/pkg/config"
	"helixclips/pkg/util"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type clipStore interface {
	Upsert(ctx context.Context, clips []twitch.ClipData) error
}

// SyncReport counts the clips stored per broadcaster during one Sync.
type SyncReport struct {
	Broadcasters map[string]int
	Clips        int
	Failed       int
}

// Service mirrors broadcasters' clip history into the catalog.
type Service struct {
	cfg     *config.Config
	client  *twitch.Client
	catalog clipStore

	pageSize          int
	rateLimitInterval time.Duration
	timeWindow        time.Duration
	now               func() time.Time
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Service{
		cfg:               cfg,
		client:            do.MustInvoke[*twitch.Client](di),
		catalog:           do.MustInvoke[*catalog.Catalog](di),
		pageSize:          cfg.Sync.PageSize,
		rateLimitInterval: time.Duration(cfg.Sync.RateLimitMillis) * time.Millisecond,
		timeWindow:        time.Duration(cfg.Sync.WindowDays) * 24 * time.Hour,
		now:               time.Now,
	}, nil
}

func (s *Service) Sync(ctx context.Context) (*SyncReport, error) {
	span := sentry.StartSpan(ctx, "clips.sync")
	defer span.Finish()
	ctx = span.Context()

	broadcasterIDs := lo.Uniq(s.cfg.Twitch.BroadcasterIDs)
	if len(broadcasterIDs) == 0 {
		return nil, fmt.Errorf("no broadcaster_ids configured")
	}

	minDate, err := s.minDate()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rateLimiter := startRateLimiter(ctx, s.rateLimitInterval)

	report := &SyncReport{Broadcasters: make(map[string]int)}
	var m sync.Mutex
	var wg sync.WaitGroup

	broadcasterChan := make(chan string, len(broadcasterIDs))
	for i := 0; i < len(broadcasterIDs); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerCtx := context.WithValue(ctx, util.WorkerIDContextKey, workerID)

			for broadcasterID := range broadcasterChan {
				stored, failed := s.fetchBroadcasterClips(workerCtx, rateLimiter, broadcasterID, minDate)

				m.Lock()
				report.Broadcasters[broadcasterID] = stored
				report.Clips += stored
				report.Failed += failed
				m.Unlock()
			}
		}(i)
	}

	for _, broadcasterID := range broadcasterIDs {
		broadcasterChan <- broadcasterID
	}
	close(broadcasterChan)

	wg.Wait()

	slog.Info("Synced clips",
		slog.Int("count", report.Clips),
		slog.Int("failed_windows", report.Failed),
		slog.Int("broadcasters", len(report.Broadcasters)),
	)

	return report, ctx.Err()
}

func (s *Service) minDate() (time.Time, error) {
	if s.cfg.Twitch.MinDate == "" {
		return s.now().Add(-s.timeWindow), nil
	}

	minDate, err := time.Parse(time.DateOnly, s.cfg.Twitch.MinDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse min_date: %w", err)
	}

	return minDate, nil
}

// fetchBroadcasterClips walks time windows backwards from now until minDate.
// It returns the number of stored clips and the number of windows that failed.
func (s *Service) fetchBroadcasterClips(ctx context.Context, rateLimiter <-chan struct{}, broadcasterID string, minDate time.Time) (int, int) {
	localHub := sentry.CurrentHub().Clone()

	span := sentry.StartSpan(ctx, "clips.fetch_broadcaster")
	defer span.Finish()
	span.SetTag("broadcaster_id", broadcasterID)

	endedAt := s.now()
	startedAt := endedAt.Add(-s.timeWindow)

	stored, failed := 0, 0

	for endedAt.After(minDate) {
		paginator := s.client.NewClipPaginator(twitch.GetClipsParams{
			FilterType: twitch.ClipFilterBroadcaster,
			IDs:        []string{broadcasterID},
			First:      s.pageSize,
			StartedAt:  startedAt,
			EndedAt:    endedAt,
		})

		for !paginator.Done() {
			select {
			case <-rateLimiter:
			case <-ctx.Done():
				return stored, failed
			}

			slog.DebugContext(ctx, "Getting clips...",
				slog.String("broadcaster_id", broadcasterID),
				slog.Time("started_at", startedAt),
				slog.Time("ended_at", endedAt),
				slog.String("after", paginator.Cursor()),
			)

			page, err := paginator.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return stored, failed
				}
				localHub.CaptureException(err)
				slog.ErrorContext(ctx, "Failed to get clips",
					slog.Any("error", err),
					slog.String("broadcaster_id", broadcasterID),
				)
				failed++
				break
			}

			newClips := s.filter(page)
			if len(newClips) == 0 {
				continue
			}

			if err = s.catalog.Upsert(ctx, newClips); err != nil {
				localHub.CaptureException(err)
				slog.ErrorContext(ctx, "Failed to store clips",
					slog.Any("error", err),
					slog.String("broadcaster_id", broadcasterID),
				)
				failed++
				break
			}

			stored += len(newClips)
		}

		endedAt = startedAt
		startedAt = endedAt.Add(-s.timeWindow)
	}

	return stored, failed
}

func (s *Service) filter(page []*twitch.Clip) []twitch.ClipData {
	return lo.FilterMap(page, func(clip *twitch.Clip, _ int) (twitch.ClipData, bool) {
		if s.cfg.Twitch.GameID != "" && clip.GameID != s.cfg.Twitch.GameID {
			return twitch.ClipData{}, false
		}
		return clip.ClipData, true
	})
}

// startRateLimiter returns a channel that yields one token per interval,
// with the first token available immediately.
func startRateLimiter(ctx context.Context, interval time.Duration) <-chan struct{} {
	rateLimiter := make(chan struct{}, 1)
	rateLimiter <- struct{}{}

	if interval <= 0 {
		close(rateLimiter)
		return rateLimiter
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case rateLimiter <- struct{}{}:
				default:
				}
			}
		}
	}()

	return rateLimiter
}
