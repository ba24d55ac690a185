// Package shikimori looks anime titles up on the Shikimori REST API.
package shikimori

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"animesanta/internal/restriction"
)

const DefaultBaseURL = "https://shikimori.one"

type Client struct {
	host       string
	userAgent  string
	httpClient *http.Client
}

var _ restriction.MetadataService = (*Client)(nil)

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shikimori API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, userAgent string) *Client {
	if host == "" {
		host = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if userAgent == "" {
		userAgent = "animesanta"
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

type anime struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Russian  string `json:"russian"`
	URL      string `json:"url"`
	Score    string `json:"score"`
	Status   string `json:"status"`
	Episodes int    `json:"episodes"`
	Duration int    `json:"duration"`
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Lookup fetches one anime. A missing title is (nil, nil).
func (c *Client) Lookup(ctx context.Context, titleID string) (*restriction.Title, error) {
	if !numericRe.MatchString(titleID) {
		return nil, nil
	}
	body, err := c.doRequest(ctx, "/api/animes/"+titleID)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	var a anime
	if err := json.Unmarshal(body, &a); err != nil {
		return nil, fmt.Errorf("decode anime %s: %w", titleID, err)
	}
	return a.title(c.host)
}

func (a anime) title(host string) (*restriction.Title, error) {
	score := decimal.Zero
	if s := strings.TrimSpace(a.Score); s != "" {
		v, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("anime %d score %q: %w", a.ID, a.Score, err)
		}
		score = v
	}
	name := a.Name
	if a.Russian != "" {
		name = a.Russian
	}
	return &restriction.Title{
		ID:       fmt.Sprint(a.ID),
		Name:     name,
		Episodes: a.Episodes,
		Status:   a.Status,
		Score:    score,
		Duration: a.Duration,
	}, nil
}

var (
	numericRe = regexp.MustCompile(`^\d+$`)
	linkRe    = regexp.MustCompile(`^https?://(?:www\.)?(?:shikimori\.(?:one|me|org)|shiki\.one)/animes/[a-z]?(\d+)(?:[-/?#].*)?$`)
)

// TitleIDFromURL extracts the anime id from a Shikimori link such as
// https://shikimori.one/animes/z5114-fullmetal-alchemist.
func TitleIDFromURL(link string) (string, bool) {
	m := linkRe.FindStringSubmatch(strings.TrimSpace(link))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// TitleURL is the canonical link for id.
func TitleURL(id string) string {
	return DefaultBaseURL + "/animes/" + id
}
