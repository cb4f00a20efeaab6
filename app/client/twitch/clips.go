package twitch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/samber/lo"
)

const maxClipsPageSize = 100

// Clip is a Helix clip bound to the client that fetched it.
type Clip struct {
	ClipData
	client *Client
}

func (c *Client) wrapClips(data []ClipData) []*Clip {
	return lo.Map(data, func(d ClipData, _ int) *Clip {
		return &Clip{ClipData: d, client: c}
	})
}

func (c *Client) GetClipsForBroadcaster(ctx context.Context, broadcasterID string, filter ClipFilter) (*ClipPage, error) {
	return c.GetClips(ctx, filter.params(ClipFilterBroadcaster, broadcasterID))
}

func (c *Client) GetClipsForGame(ctx context.Context, gameID string, filter ClipFilter) (*ClipPage, error) {
	return c.GetClips(ctx, filter.params(ClipFilterGame, gameID))
}

func (c *Client) GetClipsByIDs(ctx context.Context, ids []string) ([]*Clip, error) {
	page, err := c.GetClips(ctx, &GetClipsParams{
		FilterType: ClipFilterID,
		IDs:        ids,
	})
	if err != nil {
		return nil, err
	}

	return page.Data, nil
}

// GetClipByID returns nil without error when the clip does not exist.
func (c *Client) GetClipByID(ctx context.Context, id string) (*Clip, error) {
	clips, err := c.GetClipsByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}

	if len(clips) == 0 {
		return nil, nil
	}

	return clips[0], nil
}

func (c *Client) GetClips(ctx context.Context, params *GetClipsParams) (*ClipPage, error) {
	query, err := params.query()
	if err != nil {
		return nil, err
	}

	res, err := getData[ClipData](ctx, c, "clips", query)
	if err != nil {
		return nil, fmt.Errorf("get clips: %w", err)
	}

	page := &ClipPage{Data: c.wrapClips(res.Data)}
	if res.Pagination != nil {
		page.Cursor = res.Pagination.Cursor
	}

	return page, nil
}

// CreateClip starts a clip of the broadcaster's live stream and returns its id.
// It requires a user access token with the clips:edit scope.
func (c *Client) CreateClip(ctx context.Context, params CreateClipParams) (string, error) {
	if params.BroadcasterID == "" {
		return "", ErrMissingBroadcasterID
	}

	query := url.Values{}
	query.Set("broadcaster_id", params.BroadcasterID)
	query.Set("has_delay", strconv.FormatBool(params.HasDelay))

	var res dataResponse[createdClip]
	if err := c.call(ctx, request{
		method:   http.MethodPost,
		resource: "clips",
		query:    query,
		auth:     authUser,
	}, &res); err != nil {
		return "", fmt.Errorf("create clip: %w", err)
	}

	if len(res.Data) == 0 {
		return "", fmt.Errorf("create clip: %w", ErrEmptyResponse)
	}

	return res.Data[0].ID, nil
}

func (f ClipFilter) params(filterType ClipFilterType, id string) *GetClipsParams {
	return &GetClipsParams{
		FilterType: filterType,
		IDs:        []string{id},
		First:      f.First,
		After:      f.After,
		Before:     f.Before,
		StartedAt:  f.StartedAt,
		EndedAt:    f.EndedAt,
		IsFeatured: f.IsFeatured,
	}
}

func (p *GetClipsParams) validate() error {
	if p.FilterType.QueryKey() == "" {
		return fmt.Errorf("%w: unknown filter type %d", ErrInvalidFilter, p.FilterType)
	}
	if len(p.IDs) == 0 {
		return fmt.Errorf("%w: no %s given", ErrInvalidFilter, p.FilterType)
	}
	if p.FilterType != ClipFilterID && len(p.IDs) != 1 {
		return fmt.Errorf("%w: %s filter takes exactly one id, got %d", ErrInvalidFilter, p.FilterType, len(p.IDs))
	}
	if len(p.IDs) > maxClipsPageSize {
		return fmt.Errorf("%w: at most %d ids per request", ErrInvalidFilter, maxClipsPageSize)
	}
	if lo.Contains(p.IDs, "") {
		return fmt.Errorf("%w: empty %s", ErrInvalidFilter, p.FilterType)
	}
	if p.First < 0 || p.First > maxClipsPageSize {
		return fmt.Errorf("%w: first must be between 1 and %d", ErrInvalidFilter, maxClipsPageSize)
	}

	return nil
}

func (p *GetClipsParams) query() (url.Values, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	queryParams := url.Values{}

	key := p.FilterType.QueryKey()
	for _, id := range p.IDs {
		queryParams.Add(key, id)
	}
	if p.First > 0 {
		queryParams.Add("first", strconv.Itoa(p.First))
	}
	if p.After != "" {
		queryParams.Add("after", p.After)
	}
	if p.Before != "" {
		queryParams.Add("before", p.Before)
	}
	if !p.StartedAt.IsZero() {
		queryParams.Add("started_at", p.StartedAt.UTC().Format(time.RFC3339))
	}
	if !p.EndedAt.IsZero() {
		queryParams.Add("ended_at", p.EndedAt.UTC().Format(time.RFC3339))
	}
	if p.IsFeatured != nil {
		queryParams.Add("is_featured", strconv.FormatBool(*p.IsFeatured))
	}

	return queryParams, nil
}

// Broadcaster fetches the user who owns the channel the clip was taken from.
func (c *Clip) Broadcaster(ctx context.Context) (*User, error) {
	return c.client.GetUserByID(ctx, c.BroadcasterID)
}

// Creator fetches the user who created the clip.
func (c *Clip) Creator(ctx context.Context) (*User, error) {
	return c.client.GetUserByID(ctx, c.CreatorID)
}

// Game returns nil when the clip has no game.
func (c *Clip) Game(ctx context.Context) (*Game, error) {
	if c.GameID == "" {
		return nil, nil
	}
	return c.client.GetGameByID(ctx, c.GameID)
}

// Video returns nil when the source VOD is unavailable.
func (c *Clip) Video(ctx context.Context) (*Video, error) {
	if c.VideoID == "" {
		return nil, nil
	}
	return c.client.GetVideoByID(ctx, c.VideoID)
}
