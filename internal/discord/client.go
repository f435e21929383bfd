// Package discord provides the REST client used to grant roles.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/rolegate/internal/core/domain"
	"github.com/yndnr/rolegate/internal/telemetry/logger"
)

// DefaultBaseURL is the platform REST API root.
const DefaultBaseURL = "https://discord.com/api/v10"

// auditReason is sent with every role add so moderators can see why
// the bot acted.
const auditReason = "User hit required message count"

// maxRetries bounds how many 429 responses a single role add will wait
// out before giving up.
const maxRetries = 3

// Client is a minimal REST client for the role-add endpoint. Role
// addition is idempotent on the platform side, so retrying a grant is
// always safe.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     logger.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API root. Used in tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a new REST client authenticated with the bot token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: logger.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// AssignRole adds the role to the guild member via
// PUT /guilds/{guild}/members/{user}/roles/{role}.
//
// A 429 response is waited out per its Retry-After and the request is
// repeated, up to maxRetries times.
func (c *Client) AssignRole(ctx context.Context, guildID, userID, roleID uint64) error {
	url := fmt.Sprintf("%s/guilds/%d/members/%d/roles/%d", c.baseURL, guildID, userID, roleID)

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		c.addHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("role add request: %w", err)
		}

		retryAfter, err := c.handleResponse(resp)
		if err == nil {
			return nil
		}
		if retryAfter <= 0 || attempt >= maxRetries {
			return err
		}

		c.log.Warn("rate limited adding role, backing off",
			"guild_id", guildID,
			"user_id", userID,
			"retry_after", retryAfter,
			"attempt", attempt+1)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleResponse classifies a role-add response. For 429 it returns the
// wait duration alongside the error so the caller can retry.
func (c *Client) handleResponse(resp *http.Response) (time.Duration, error) {
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return 0, nil

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return 0, domain.ErrGatewayAuth.WithDetails(fmt.Sprintf("role add rejected with status %d", resp.StatusCode))

	case resp.StatusCode == http.StatusTooManyRequests:
		return parseRetryAfter(resp), fmt.Errorf("rate limited (status 429)")

	default:
		var errResp struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Message != "" {
			return 0, fmt.Errorf("role add failed with status %d: [%d] %s", resp.StatusCode, errResp.Code, errResp.Message)
		}
		return 0, fmt.Errorf("role add failed with status %d", resp.StatusCode)
	}
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("X-Audit-Log-Reason", auditReason)
	req.Header.Set("User-Agent", "rolegate/1.0")
}

// parseRetryAfter reads the Retry-After header (seconds, possibly
// fractional) or the retry_after body field, preferring the header.
func parseRetryAfter(resp *http.Response) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if secs, err := strconv.ParseFloat(h, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}

	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.RetryAfter > 0 {
		return time.Duration(body.RetryAfter * float64(time.Second))
	}

	return time.Second
}
