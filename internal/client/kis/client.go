// Package kis is a client for the Korea Investment & Securities OpenAPI
// (overseas-stock endpoints). Every call goes through the shared request
// helpers: rate-limited, bearer-authenticated, and unwrapped from the
// rt_cd/msg_cd/msg1 response envelope.
package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

type Client struct {
	host       string
	appKey     string
	appSecret  string
	sandbox    bool
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *TokenSource
}

// APIError is a business rejection from the gateway: the HTTP exchange
// succeeded but rt_cd was non-zero (or the status was not 200).
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kis: API error (status=%d code=%s): %s", e.Status, e.Code, e.Message)
}

type Options struct {
	Host            string
	AppKey          string
	AppSecret       string
	Sandbox         bool
	RateLimitPerSec int
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	host := strings.TrimRight(opts.Host, "/")
	perSec := opts.RateLimitPerSec
	if perSec <= 0 {
		perSec = 15
	}
	c := &Client{
		host:       host,
		appKey:     opts.AppKey,
		appSecret:  opts.AppSecret,
		sandbox:    opts.Sandbox,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(perSec), perSec),
	}
	c.tokens = &TokenSource{client: c}
	return c
}

func (c *Client) doGet(ctx context.Context, path, trID string, query url.Values) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, trID, query, nil)
}

func (c *Client) doPost(ctx context.Context, path, trID string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, trID, nil, payload)
}

func (c *Client) do(ctx context.Context, method, path, trID string, query url.Values, payload any) ([]byte, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("kis: client is nil")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := c.host + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("kis: failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("appkey", c.appKey)
	req.Header.Set("appsecret", c.appSecret)
	req.Header.Set("tr_id", trID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kis: request failed: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kis: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: string(raw)}
	}
	return raw, nil
}

// unwrap decodes the common envelope and rejects non-success business
// codes before handing the body to the caller's typed decode.
func unwrap(raw []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("kis: malformed response: %w", err)
	}
	if env.RtCd != "0" {
		return &APIError{Status: http.StatusOK, Code: env.MsgCd, Message: env.Msg1}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("kis: malformed response body: %w", err)
	}
	return nil
}
