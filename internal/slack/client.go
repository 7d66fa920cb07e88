// Package slack reads channel history from the Slack Web API.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"slack_line_mirror/internal/model"
)

const defaultBaseURL = "https://slack.com/api"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client calls the Slack Web API with bearer authentication.
type Client struct {
	client  HTTPClient
	token   string
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
	log     *slog.Logger
}

// New creates a Client using the given bot token.
func New(token string, client HTTPClient, log *slog.Logger) *Client {
	return &Client{
		client:  client,
		token:   token,
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
		// Paces paginated drains and permalink lookups below the Web API
		// rate limits.
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		log:     log,
	}
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type historyMessage struct {
	Subtype string `json:"subtype"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
	TS      string `json:"ts"`
}

type historyResponse struct {
	apiEnvelope
	Messages         []historyMessage `json:"messages"`
	HasMore          bool             `json:"has_more"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

type permalinkResponse struct {
	apiEnvelope
	Permalink string `json:"permalink"`
}

type channelInfoResponse struct {
	apiEnvelope
	Channel struct {
		Name string `json:"name"`
	} `json:"channel"`
}

type authTestResponse struct {
	apiEnvelope
	User string `json:"user"`
	Team string `json:"team"`
}

// FetchNewMessages returns user messages with timestamp strictly greater
// than sinceTS, oldest first, at most limit of them. When the backlog
// exceeds limit, the oldest messages win so nothing is skipped across
// runs. Bot posts and channel events (joins, topic changes) are dropped.
//
// With no watermark yet (sinceTS <= 0) only the most recent page is
// fetched, so a fresh deployment does not replay the channel history.
func (c *Client) FetchNewMessages(ctx context.Context, channelID string, sinceTS float64, limit int) ([]model.Message, error) {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("limit", strconv.Itoa(limit))
	if sinceTS > 0 {
		params.Set("oldest", strconv.FormatFloat(sinceTS, 'f', 6, 64))
	}

	var collected []model.Message
	for {
		var resp historyResponse
		if err := c.getJSON(ctx, "conversations.history", params, &resp); err != nil {
			return nil, err
		}
		if !resp.OK {
			return nil, apiError("conversations.history", resp.Error)
		}

		for _, raw := range resp.Messages {
			if raw.Subtype != "" || raw.BotID != "" {
				continue
			}
			msg := model.Message{
				ChannelID: channelID,
				UserID:    raw.User,
				Text:      raw.Text,
				TS:        raw.TS,
			}
			if msg.UserID == "" {
				msg.UserID = "unknown"
			}
			if msg.TSValue() <= sinceTS {
				continue
			}
			collected = append(collected, msg)
		}

		if sinceTS <= 0 {
			break
		}
		if !resp.HasMore || resp.ResponseMetadata.NextCursor == "" {
			break
		}
		params.Set("cursor", resp.ResponseMetadata.NextCursor)
	}

	// The API returns newest first; deliveries go oldest first.
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].TSValue() < collected[j].TSValue()
	})
	if len(collected) > limit {
		collected = collected[:limit]
	}

	for i := range collected {
		collected[i].Permalink = c.Permalink(ctx, channelID, collected[i].TS)
	}
	return collected, nil
}

// Permalink returns the canonical URL for a message, or "" when the
// lookup fails. Notifications degrade to plain text without it.
func (c *Client) Permalink(ctx context.Context, channelID, ts string) string {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("message_ts", ts)

	var resp permalinkResponse
	if err := c.getJSON(ctx, "chat.getPermalink", params, &resp); err != nil {
		c.log.Debug("permalink lookup failed", "ts", ts, "error", err)
		return ""
	}
	if !resp.OK {
		c.log.Debug("permalink lookup failed", "ts", ts, "error", resp.Error)
		return ""
	}
	return resp.Permalink
}

// ChannelName returns the display name of a channel, or the raw id when
// the lookup fails.
func (c *Client) ChannelName(ctx context.Context, channelID string) string {
	params := url.Values{}
	params.Set("channel", channelID)

	var resp channelInfoResponse
	if err := c.getJSON(ctx, "conversations.info", params, &resp); err != nil {
		c.log.Debug("channel name lookup failed", "channel", channelID, "error", err)
		return channelID
	}
	if !resp.OK || resp.Channel.Name == "" {
		c.log.Debug("channel name lookup failed", "channel", channelID, "error", resp.Error)
		return channelID
	}
	return resp.Channel.Name
}

// CheckAuth verifies the bot token via auth.test and returns the bot
// identity on success.
func (c *Client) CheckAuth(ctx context.Context) (string, error) {
	var resp authTestResponse
	if err := c.getJSON(ctx, "auth.test", url.Values{}, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", apiError("auth.test", resp.Error)
	}
	return fmt.Sprintf("%s (team %s)", resp.User, resp.Team), nil
}

func (c *Client) getJSON(ctx context.Context, method string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + "/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", method, model.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: rate limited (status 429): %w", method, model.ErrTransient)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: server error (status %d): %w", method, resp.StatusCode, model.ErrTransient)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: unexpected status %d", method, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	return nil
}

func apiError(method, code string) error {
	switch code {
	case "invalid_auth", "not_authed", "token_revoked", "token_expired", "account_inactive":
		return fmt.Errorf("%s: %s: %w", method, code, model.ErrAuth)
	case "channel_not_found", "is_archived":
		return fmt.Errorf("%s: %s: %w", method, code, model.ErrChannelNotFound)
	case "ratelimited", "rate_limited":
		return fmt.Errorf("%s: %s: %w", method, code, model.ErrTransient)
	default:
		return fmt.Errorf("%s: slack api error: %s", method, code)
	}
}
