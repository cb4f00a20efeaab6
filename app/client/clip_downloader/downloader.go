package clip_downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"helixclips/pkg/config"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/samber/do"
	"github.com/samber/lo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Persisted query and public client id used by the twitch.tv web player,
// as in https://github.com/ihabunek/twitch-dl
const (
	clientID          = "kd1unb4b3q4t58fwlpcbzcbnm76a8fp"
	accessTokenSHA256 = "36b89d2507fce29e5ca551df756d27c1cfe079e2609642b4390aa4c35796eb11"
)

var ErrClipNotFound = errors.New("clip not found")

type Downloader struct {
	client *http.Client
	gqlURL string
}

func New(di *do.Injector) (*Downloader, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Downloader{
		client: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		gqlURL: cfg.Twitch.GQLURL,
	}, nil
}

// DownloadClip streams the best available rendition of the clip into w
// and returns the number of bytes written.
func (d *Downloader) DownloadClip(ctx context.Context, slug string, w io.Writer) (int64, error) {
	downloadURL, err := d.getClipAuthenticatedURL(ctx, slug)
	if err != nil {
		return 0, fmt.Errorf("resolve media url: %w", err)
	}

	n, err := d.download(ctx, downloadURL, w)
	if err != nil {
		return n, fmt.Errorf("download clip %s: %w", slug, err)
	}

	return n, nil
}

func (d *Downloader) DownloadClipToFile(ctx context.Context, slug, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err = d.DownloadClip(ctx, slug, out); err != nil {
		_ = os.Remove(outputPath)
		return err
	}

	return nil
}

func (d *Downloader) getClipAccessToken(ctx context.Context, slug string) (*ClipAccessToken, error) {
	query := map[string]any{
		"operationName": "VideoAccessToken_Clip",
		"variables":     map[string]string{"slug": slug},
		"extensions": map[string]any{
			"persistedQuery": map[string]any{
				"version":    1,
				"sha256Hash": accessTokenSHA256,
			},
		},
	}

	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.gqlURL, bytes.NewReader(queryBytes))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Client-ID", clientID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gql request: unexpected status %s", resp.Status)
	}

	var response struct {
		Data struct {
			Clip *ClipAccessToken `json:"clip"`
		} `json:"data"`
		Errors []any `json:"errors"`
	}

	if err = json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if response.Data.Clip == nil {
		return nil, fmt.Errorf("%w: %s", ErrClipNotFound, slug)
	}

	return response.Data.Clip, nil
}

func (d *Downloader) getClipAuthenticatedURL(ctx context.Context, slug string) (string, error) {
	accessToken, err := d.getClipAccessToken(ctx, slug)
	if err != nil {
		return "", fmt.Errorf("clip access token: %w", err)
	}

	if len(accessToken.VideoQualities) == 0 {
		return "", fmt.Errorf("clip %s has no video qualities", slug)
	}

	best := lo.MaxBy(accessToken.VideoQualities, func(a, b VideoQuality) bool {
		return a.height() > b.height()
	})

	params := url.Values{}
	params.Add("sig", accessToken.PlaybackAccessToken.Signature)
	params.Add("token", accessToken.PlaybackAccessToken.Value)

	return fmt.Sprintf("%s?%s", best.SourceURL, params.Encode()), nil
}

func (d *Downloader) download(ctx context.Context, url string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download: unexpected status %s", resp.Status)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("copy media: %w", err)
	}

	return n, nil
}
