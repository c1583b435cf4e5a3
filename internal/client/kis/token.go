package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

const (
	tokenPath    = "/oauth2/tokenP"
	approvalPath = "/oauth2/Approval"
)

// refreshMargin renews the token before it actually expires so a cycle
// never starts with a token about to lapse mid-flight.
const refreshMargin = 10 * time.Minute

// TokenSource caches the OAuth bearer token and re-issues it ahead of
// expiry. KIS tokens are opaque client-credential tokens valid for about a
// day; one in-process cache is all the persistence this needs.
type TokenSource struct {
	client *Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func (t *TokenSource) Token(ctx context.Context) (string, error) {
	if t == nil || t.client == nil {
		return "", fmt.Errorf("kis: token source is nil")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && time.Now().Before(t.expires.Add(-refreshMargin)) {
		return t.token, nil
	}
	token, expiresIn, err := t.client.issueToken(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expires = time.Now().Add(time.Duration(expiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token; the next call re-issues.
func (t *TokenSource) Invalidate() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.token = ""
	t.expires = time.Time{}
	t.mu.Unlock()
}

// RefreshToken drops the cached bearer token and issues a new one. The
// scheduled refresh uses this so long-running processes never hit the
// one-day expiry mid-cycle.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c == nil || c.tokens == nil {
		return fmt.Errorf("kis: client is nil")
	}
	c.tokens.Invalidate()
	_, err := c.tokens.Token(ctx)
	return err
}

// ApprovalKey issues the realtime-gateway approval key. Unlike the REST
// bearer token it is not cached; the websocket connects once per process.
func (c *Client) ApprovalKey(ctx context.Context) (string, error) {
	if c == nil || c.httpClient == nil {
		return "", fmt.Errorf("kis: client is nil")
	}
	payload := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"secretkey":  c.appSecret,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+approvalPath, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("kis: approval request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	var ar struct {
		ApprovalKey string `json:"approval_key"`
	}
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("kis: malformed approval response: %w", err)
	}
	if ar.ApprovalKey == "" {
		return "", &APIError{Status: resp.StatusCode, Message: "empty approval key"}
	}
	return ar.ApprovalKey, nil
}

// issueToken posts the client-credentials grant. It bypasses do() because
// the token endpoint itself takes no bearer header and no tr_id.
func (c *Client) issueToken(ctx context.Context) (string, int64, error) {
	payload := map[string]string{
		"grant_type": "client_credentials",
		"appkey":     c.appKey,
		"appsecret":  c.appSecret,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+tokenPath, bytes.NewReader(raw))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("kis: token request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("kis: malformed token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", 0, &APIError{Status: resp.StatusCode, Message: tr.Msg1}
	}
	expiresIn := tr.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = 86400
	}
	return tr.AccessToken, expiresIn, nil
}
