package twitch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var tokenRefreshInterval = 10 * time.Minute

func (c *Client) token(ctx context.Context, kind authKind) (string, error) {
	if kind == authUser {
		if c.cfg.Twitch.UserAccessToken == "" {
			return "", ErrUserTokenRequired
		}
		return c.cfg.Twitch.UserAccessToken, nil
	}

	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return "", fmt.Errorf("authentication failed: %w", err)
	}

	return token, nil
}

func (c *Client) tokenValid() bool {
	return c.authToken != "" && time.Until(c.tokenExpiry) > tokenRefreshInterval
}

// ensureAuthenticated returns the cached app token, fetching a new one when
// it is missing or close to expiry. The token is read under the same lock
// that validated it.
func (c *Client) ensureAuthenticated(ctx context.Context) (string, error) {
	c.mutex.RLock()
	if c.tokenValid() {
		token := c.authToken
		c.mutex.RUnlock()
		return token, nil
	}
	c.mutex.RUnlock()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	// another caller may have refreshed while we waited for the lock
	if c.tokenValid() {
		return c.authToken, nil
	}

	token, expiry, err := c.getAccessToken(ctx)
	if err != nil {
		return "", err
	}

	c.authToken = token
	c.tokenExpiry = expiry
	return token, nil
}

func (c *Client) invalidateToken() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.authToken = ""
	c.tokenExpiry = time.Time{}
}

func (c *Client) getAccessToken(ctx context.Context) (string, time.Time, error) {
	data := url.Values{}
	data.Set("client_id", c.cfg.Twitch.ClientID)
	data.Set("client_secret", c.cfg.Twitch.ClientSecret)
	data.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating auth request failed: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.observe("oauth2/token", http.MethodPost, "error", time.Since(start))
		return "", time.Time{}, fmt.Errorf("auth request failed: %w", err)
	}
	defer resp.Body.Close()

	c.metrics.observe("oauth2/token", http.MethodPost, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, newAPIError(resp, body)
	}

	var authResp authResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", time.Time{}, fmt.Errorf("decoding auth response failed: %w", err)
	}

	expiry := time.Now().Add(time.Duration(authResp.ExpiresIn) * time.Second)

	return authResp.AccessToken, expiry, nil
}
