// Package api is a client for the reflex backend REST API.
//
// Requests carry a bearer access token. A 401 triggers one refresh through
// /auth/token/refresh/ and one retry; a failed refresh logs the user out.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultBaseURL is used when Config.BaseURL is empty.
const DefaultBaseURL = "http://localhost:8000/api"

// Config holds configuration for the client.
type Config struct {
	// BaseURL is the API root including the /api prefix.
	BaseURL string

	// Tokens persists credentials. Defaults to an in-memory store.
	Tokens TokenStore

	// HTTPClient allows injecting a custom client. Defaults to a 15s timeout.
	HTTPClient *http.Client

	Logger *log.Logger

	// Now is used to judge token expiry.
	Now func() time.Time
}

// Client talks to the backend. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	logger  *log.Logger
	now     func() time.Time

	refreshMu sync.Mutex
}

// NewClient creates a client with defaults applied.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    cfg.HTTPClient,
		tokens:  cfg.Tokens,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.tokens == nil {
		c.tokens = &MemoryStore{}
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Authenticated reports whether an access token is stored.
func (c *Client) Authenticated() bool {
	return c.loadTokens().Access != ""
}

func (c *Client) loadTokens() Tokens {
	t, err := c.tokens.Load()
	if err != nil {
		c.logger.Debug("load tokens", "err", err)
		return Tokens{}
	}
	return t
}

func (c *Client) clearTokens() {
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("clear tokens", "err", err)
	}
}

// do sends an authenticated request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.request(ctx, method, path, in, out, true)
}

func (c *Client) request(ctx context.Context, method, path string, in, out any, auth bool) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: marshal request: %w", err)
		}
	}

	toks := Tokens{}
	if auth {
		toks = c.loadTokens()
		if toks.Access != "" && toks.Refresh != "" && tokenExpired(toks.Access, c.now()) {
			c.logger.Debug("access token expired, refreshing")
			if c.refresh(ctx, toks.Access) {
				toks = c.loadTokens()
			}
		}
	}

	status, body, err := c.send(ctx, method, path, payload, toks.Access)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized && auth && toks.Refresh != "" {
		if c.refresh(ctx, toks.Access) {
			status, body, err = c.send(ctx, method, path, payload, c.loadTokens().Access)
			if err != nil {
				return err
			}
		}
	}

	if status == http.StatusUnauthorized {
		msg := "credentials rejected"
		if perr, ok := parseError(status, body).(*HTTPError); ok && perr.Message != "" {
			msg = perr.Message
		}
		return &AuthError{StatusCode: status, Message: msg}
	}
	if status < 200 || status >= 300 {
		return parseError(status, body)
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, access string) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("api: read response: %w", err)
	}
	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode)
	return resp.StatusCode, respBody, nil
}

// refresh exchanges the refresh token for a new access token. stale is the
// access token the caller saw; if another goroutine already replaced it the
// refresh is skipped. On failure the stored tokens are cleared.
func (c *Client) refresh(ctx context.Context, stale string) bool {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	toks := c.loadTokens()
	if toks.Refresh == "" {
		return false
	}
	if toks.Access != "" && toks.Access != stale {
		return true
	}

	payload, _ := json.Marshal(map[string]string{"refresh": toks.Refresh})
	status, body, err := c.send(ctx, http.MethodPost, "/auth/token/refresh/", payload, "")
	if err != nil || status != http.StatusOK {
		c.logger.Warn("token refresh failed, logging out", "status", status, "err", err)
		c.clearTokens()
		return false
	}
	var out Tokens
	if err := json.Unmarshal(body, &out); err != nil || out.Access == "" {
		c.logger.Warn("token refresh returned no access token, logging out", "err", err)
		c.clearTokens()
		return false
	}
	toks.Access = out.Access
	if out.Refresh != "" {
		toks.Refresh = out.Refresh
	}
	if err := c.tokens.Save(toks); err != nil {
		c.logger.Warn("save refreshed tokens", "err", err)
	}
	return true
}

// tokenExpired reports whether the JWT's exp claim has passed. Tokens that
// cannot be parsed are left to the server to judge.
func tokenExpired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// decodeList accepts a paginated {"results": [...]} page or a bare list.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("api: decode list: %w", err)
		}
		return items, nil
	}
	var page struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("api: decode page: %w", err)
	}
	return page.Results, nil
}

func (c *Client) getList(ctx context.Context, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
