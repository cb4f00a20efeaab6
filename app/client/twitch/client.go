package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"helixclips/pkg/config"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type authKind int

const (
	authApp authKind = iota
	authUser
)

// request describes a single Helix call.
type request struct {
	method   string
	resource string
	query    url.Values
	auth     authKind
}

type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	metrics    *Metrics
	baseURL    string
	tokenURL   string

	mutex       sync.RWMutex
	authToken   string
	tokenExpiry time.Time
}

func NewClient(di *do.Injector) (*Client, error) {
	metrics, err := NewMetrics(do.MustInvoke[*prometheus.Registry](di))
	if err != nil {
		return nil, fmt.Errorf("register helix metrics: %w", err)
	}

	return New(do.MustInvoke[*config.Config](di), metrics), nil
}

// New builds a client from config. metrics may be nil.
func New(cfg *config.Config, metrics *Metrics) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "helix " + r.Method + " " + r.URL.Path
		}),
	)

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.Twitch.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
		metrics:  metrics,
		baseURL:  strings.TrimRight(cfg.Twitch.APIURL, "/"),
		tokenURL: cfg.Twitch.TokenURL,
	}
}

// call executes one Helix request and decodes the JSON body into out.
func (c *Client) call(ctx context.Context, r request, out any) error {
	token, err := c.token(ctx, r.auth)
	if err != nil {
		return err
	}

	requestURL := fmt.Sprintf("%s/%s", c.baseURL, r.resource)
	if len(r.query) > 0 {
		requestURL += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request failed: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Client-Id", c.cfg.Twitch.ClientID)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe(r.resource, r.method, "error", time.Since(start))
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.observe(r.resource, r.method, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := newAPIError(resp, body)
		if apiErr.IsUnauthorized() && r.auth == authApp {
			c.invalidateToken()
		}
		return fmt.Errorf("%s %s: %w", r.method, r.resource, apiErr)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response failed: %w", err)
	}

	return nil
}

func getData[T any](ctx context.Context, c *Client, resource string, query url.Values) (*dataResponse[T], error) {
	var res dataResponse[T]
	if err := c.call(ctx, request{
		method:   http.MethodGet,
		resource: resource,
		query:    query,
	}, &res); err != nil {
		return nil, err
	}

	return &res, nil
}
