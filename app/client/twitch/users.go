package twitch

import (
	"context"
	"fmt"
	"net/url"
)

func idQuery(ids []string) url.Values {
	query := url.Values{}
	for _, id := range ids {
		query.Add("id", id)
	}
	return query
}

func (c *Client) GetUsersByIDs(ctx context.Context, ids []string) ([]User, error) {
	res, err := getData[User](ctx, c, "users", idQuery(ids))
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}
	return res.Data, nil
}

func (c *Client) GetGamesByIDs(ctx context.Context, ids []string) ([]Game, error) {
	res, err := getData[Game](ctx, c, "games", idQuery(ids))
	if err != nil {
		return nil, fmt.Errorf("get games: %w", err)
	}
	return res.Data, nil
}

func (c *Client) GetVideosByIDs(ctx context.Context, ids []string) ([]Video, error) {
	res, err := getData[Video](ctx, c, "videos", idQuery(ids))
	if err != nil {
		return nil, fmt.Errorf("get videos: %w", err)
	}
	return res.Data, nil
}

func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	return first(c.GetUsersByIDs(ctx, []string{id}))
}

func (c *Client) GetGameByID(ctx context.Context, id string) (*Game, error) {
	return first(c.GetGamesByIDs(ctx, []string{id}))
}

func (c *Client) GetVideoByID(ctx context.Context, id string) (*Video, error) {
	return first(c.GetVideosByIDs(ctx, []string{id}))
}

func first[T any](items []T, err error) (*T, error) {
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}
