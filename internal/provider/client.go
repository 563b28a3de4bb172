package provider

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

const (
	// DefaultEndpoint is the web search endpoint used when none is
	// configured.
	DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

	// MaxCount is the largest page size the upstream API accepts.
	MaxCount = 20

	// MaxOffset is the largest page offset the upstream API accepts.
	MaxOffset = 9

	requestTimeout = 30 * time.Second
)

// Error is a non-2xx response from the search API. Status 429 carries
// the server's Retry-After hint when one was sent.
type Error struct {
	Status     int
	RetryAfter time.Duration
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("search API returned status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("search API returned status %d", e.Status)
}

// Client calls the upstream web search API.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a search API client. An empty endpoint selects
// DefaultEndpoint.
func NewClient(apiKey, endpoint string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		apiKey:     apiKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// searchResponse mirrors the subset of the API response we consume.
type searchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

// Fetch performs one search request and renders the response as labeled
// text blocks, one block per result. Count and offset are clamped to the
// API's accepted ranges. A single call maps to a single HTTP request:
// retry policy belongs to the caller.
func (c *Client) Fetch(ctx context.Context, query string, count, offset int) (string, error) {
	if count < 1 {
		count = 1
	}
	if count > MaxCount {
		count = MaxCount
	}
	if offset < 0 {
		offset = 0
	}
	if offset > MaxOffset {
		offset = MaxOffset
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(count))
	params.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &Error{
			Status:     resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	return renderBlocks(&parsed), nil
}

// renderBlocks formats API results as blank-line separated blocks of
// "Title:", "Description:" and "URL:" lines. This is the wire format the
// results package parses back.
func renderBlocks(resp *searchResponse) string {
	blocks := make([]string, 0, len(resp.Web.Results))
	for _, r := range resp.Web.Results {
		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\n", r.Title)
		fmt.Fprintf(&b, "Description: %s\n", r.Description)
		fmt.Fprintf(&b, "URL: %s", r.URL)
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// parseRetryAfter handles the delay-seconds form of the header. The
// HTTP-date form is rare enough on this API that we fall back to the
// caller's own backoff for it.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
