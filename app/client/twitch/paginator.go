package twitch

import "context"

// ClipPaginator walks a clip listing forward using the after cursor.
type ClipPaginator struct {
	client *Client
	params GetClipsParams
	cursor string
	done   bool
}

func (c *Client) NewClipPaginator(params GetClipsParams) *ClipPaginator {
	return &ClipPaginator{
		client: c,
		params: params,
		cursor: params.After,
	}
}

// Next fetches the following page. It returns nil once the listing is exhausted.
// A failed request leaves the cursor in place so the call can be repeated.
func (p *ClipPaginator) Next(ctx context.Context) ([]*Clip, error) {
	if p.done {
		return nil, nil
	}

	params := p.params
	params.After = p.cursor
	params.Before = ""

	page, err := p.client.GetClips(ctx, &params)
	if err != nil {
		return nil, err
	}

	p.cursor = page.Cursor
	if p.cursor == "" || len(page.Data) == 0 {
		p.done = true
	}

	return page.Data, nil
}

func (p *ClipPaginator) Done() bool {
	return p.done
}

func (p *ClipPaginator) Cursor() string {
	return p.cursor
}

// All drains the paginator. limit <= 0 means no limit.
func (p *ClipPaginator) All(ctx context.Context, limit int) ([]*Clip, error) {
	var result []*Clip

	for !p.done {
		clips, err := p.Next(ctx)
		if err != nil {
			return result, err
		}

		result = append(result, clips...)
		if limit > 0 && len(result) >= limit {
			return result[:limit], nil
		}
	}

	return result, nil
}
