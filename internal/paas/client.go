// Package paas talks to the easyweb3 PaaS log API and guards the admin API.
package paas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const Agent = "animesanta"

type Client struct {
	BaseURL string
	APIKey  string

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	HTTP *http.Client
	Now  func() time.Time
}

// NewClient returns nil when base or key is missing, which disables remote
// logging everywhere a *Client is accepted.
func NewClient(base, apiKey string) *Client {
	base = strings.TrimSpace(base)
	apiKey = strings.TrimSpace(apiKey)
	if base == "" || apiKey == "" {
		return nil
	}
	return &Client{BaseURL: base, APIKey: apiKey, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func (c *Client) Login(ctx context.Context) error {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		return errors.New("paas base url is empty")
	}
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return errors.New("paas api key is empty")
	}

	body, err := json.Marshal(map[string]any{"api_key": apiKey})
	if err != nil {
		return err
	}
	b, err := c.post(ctx, base+"/api/v1/auth/login", body, "")
	if err != nil {
		return fmt.Errorf("paas login: %w", err)
	}
	var lr loginResponse
	if err := json.Unmarshal(b, &lr); err != nil {
		return err
	}
	exp, _ := time.Parse(time.RFC3339, strings.TrimSpace(lr.ExpiresAt))

	c.mu.Lock()
	c.token = strings.TrimSpace(lr.Token)
	c.expiresAt = exp
	c.mu.Unlock()
	return nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// EnsureToken logs in when there is no token or it expires within two
// minutes.
func (c *Client) EnsureToken(ctx context.Context) error {
	c.mu.RLock()
	tok := c.token
	exp := c.expiresAt
	c.mu.RUnlock()
	if strings.TrimSpace(tok) == "" {
		return c.Login(ctx)
	}
	if !exp.IsZero() && exp.Sub(c.now()) < 2*time.Minute {
		return c.Login(ctx)
	}
	return nil
}

type CreateLogRequest struct {
	Agent      string         `json:"agent"`
	Action     string         `json:"action"`
	Level      string         `json:"level"`
	Details    map[string]any `json:"details"`
	SessionKey string         `json:"session_key"`
	Metadata   map[string]any `json:"metadata"`
}

func (c *Client) CreateLog(ctx context.Context, req CreateLogRequest) error {
	if err := c.EnsureToken(ctx); err != nil {
		return err
	}
	if req.Agent == "" {
		req.Agent = Agent
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.post(ctx, base+"/api/v1/logs", b, c.Token()); err != nil {
		return fmt.Errorf("paas create log: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, token string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return b, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
