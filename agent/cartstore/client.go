package cartstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/johnson2500/retail-shopping-assistant/agent/contract"
	statex "github.com/johnson2500/retail-shopping-assistant/agent/state"
	logx "github.com/johnson2500/retail-shopping-assistant/pkg/logger"
)

const (
	defaultTimeout       = 10 * time.Second
	maxResponseSizeBytes = 2 << 20
)

var _ contractx.CartStore = (*Client)(nil)

// Config points the client at the memory service. Loaded with the MEMORY prefix.
type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Option customizes Client.
type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// Client talks to the memory service over REST. Calls are not retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type cartResponse struct {
	UserID int64             `json:"user_id"`
	Cart   []statex.LineItem `json:"cart"`
}

type contextResponse struct {
	UserID  int64  `json:"user_id"`
	Context string `json:"context"`
}

type messageResponse struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type itemRequest struct {
	Item   string `json:"item"`
	Amount int    `json:"amount"`
}

type contextRequest struct {
	NewContext string `json:"new_context"`
}

// Health is the memory service liveness payload.
type Health struct {
	Status    string  `json:"status"`
	Timestamp float64 `json:"timestamp"`
	Version   string  `json:"version"`
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("memory service url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid memory service url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// GetCart never fails: any transport error or non-200 answer degrades to an
// empty cart tagged CartEmptyOrUnavailable.
func (c *Client) GetCart(ctx context.Context, userID int64) contractx.CartResult {
	var out cartResponse
	if err := c.do(ctx, http.MethodGet, userPath(userID, "cart"), nil, &out); err != nil {
		logx.FromContext(ctx).Warn().Err(err).Int64("user_id", userID).Msg("cart unavailable")
		return contractx.CartResult{Cart: statex.NewCart(), Status: contractx.CartEmptyOrUnavailable}
	}
	return contractx.CartResult{Cart: statex.NewCart(out.Cart...), Status: contractx.CartFetched}
}

func (c *Client) AddItem(ctx context.Context, userID int64, item string, amount int) (string, error) {
	return c.message(ctx, userPath(userID, "cart/add"), itemRequest{Item: item, Amount: amount})
}

func (c *Client) RemoveItem(ctx context.Context, userID int64, item string, amount int) (string, error) {
	return c.message(ctx, userPath(userID, "cart/remove"), itemRequest{Item: item, Amount: amount})
}

// AppendContext is best effort; failures are logged and swallowed.
func (c *Client) AppendContext(ctx context.Context, userID int64, text string) {
	if _, err := c.message(ctx, userPath(userID, "context/add"), contextRequest{NewContext: text}); err != nil {
		logx.FromContext(ctx).Warn().Err(err).Int64("user_id", userID).Msg("append context failed")
	}
}

func (c *Client) GetContext(ctx context.Context, userID int64) (string, error) {
	var out contextResponse
	if err := c.do(ctx, http.MethodGet, userPath(userID, "context"), nil, &out); err != nil {
		return "", err
	}
	return out.Context, nil
}

func (c *Client) ReplaceContext(ctx context.Context, userID int64, text string) (string, error) {
	return c.message(ctx, userPath(userID, "context/replace"), contextRequest{NewContext: text})
}

func (c *Client) ClearContext(ctx context.Context, userID int64) (string, error) {
	return c.message(ctx, userPath(userID, "context/clear"), nil)
}

func (c *Client) ClearCart(ctx context.Context, userID int64) (string, error) {
	return c.message(ctx, userPath(userID, "cart/clear"), nil)
}

func (c *Client) ClearUser(ctx context.Context, userID int64) (string, error) {
	return c.message(ctx, userPath(userID, "clear"), nil)
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return Health{}, err
	}
	return out, nil
}

func (c *Client) message(ctx context.Context, path string, body any) (string, error) {
	var out messageResponse
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build memory request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", contractx.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", contractx.ErrStoreUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", contractx.ErrNotFound, detail(raw, resp.Status))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: %s %s: %s", contractx.ErrStoreUnavailable, method, path, detail(raw, resp.Status))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", contractx.ErrStoreUnavailable, err)
	}
	return nil
}

func userPath(userID int64, suffix string) string {
	return "/user/" + strconv.FormatInt(userID, 10) + "/" + suffix
}

func detail(raw []byte, status string) string {
	var e errorResponse
	if err := json.Unmarshal(raw, &e); err == nil && strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return status
}
