// Package line pushes text notifications through the LINE Messaging API.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"slack_line_mirror/internal/model"
)

const defaultBaseURL = "https://api.line.me"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client delivers messages for one LINE bot channel. With a recipient id
// it pushes to that user; without one it broadcasts to every subscriber
// of the bot.
type Client struct {
	client  HTTPClient
	token   string
	to      string
	baseURL string
	timeout time.Duration
	limiter *rate.Limiter
}

// New creates a Client using the given channel access token. An empty
// recipient id selects broadcast mode.
func New(token, to string, client HTTPClient) *Client {
	return &Client{
		client:  client,
		token:   token,
		to:      to,
		baseURL: defaultBaseURL,
		timeout: 15 * time.Second,
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
	}
}

// Broadcast reports whether pushes go to all bot subscribers.
func (c *Client) Broadcast() bool {
	return c.to == ""
}

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to,omitempty"`
	Messages []textMessage `json:"messages"`
}

// Push delivers a single text message.
func (c *Client) Push(ctx context.Context, text string) error {
	endpoint := "/v2/bot/message/broadcast"
	if c.to != "" {
		endpoint = "/v2/bot/message/push"
	}

	payload := pushRequest{
		To:       c.to,
		Messages: []textMessage{{Type: "text", Text: text}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", endpoint, model.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	return statusError(endpoint, resp)
}

// CheckAuth verifies the channel access token via the bot info endpoint
// and returns the bot display name on success.
func (c *Client) CheckAuth(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/bot/info", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("/v2/bot/info: %w: %v", model.ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("/v2/bot/info", resp)
	}

	var info struct {
		DisplayName string `json:"displayName"`
		BasicID     string `json:"basicId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("/v2/bot/info: decode response: %w", err)
	}
	return info.DisplayName, nil
}

func statusError(endpoint string, resp *http.Response) error {
	detail := errorMessage(resp.Body)
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: status 401, %s: %w", endpoint, detail, model.ErrAuth)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: status 403, %s: %w", endpoint, detail, model.ErrForbidden)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status 429, %s: %w", endpoint, detail, model.ErrTransient)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%s: status %d, %s: %w", endpoint, resp.StatusCode, detail, model.ErrTransient)
	default:
		return fmt.Errorf("%s: status %d, %s", endpoint, resp.StatusCode, detail)
	}
}

func errorMessage(r io.Reader) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r).Decode(&e); err != nil || e.Message == "" {
		return "no error detail"
	}
	return e.Message
}
