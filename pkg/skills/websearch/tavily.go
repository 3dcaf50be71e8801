// Package websearch answers open-web questions through the Tavily
// search API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.tavily.com/search"

	maxResults     = 8
	summaryMaxLen  = 1200
	noSummaryReply = "No summary available."
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type Response struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Search runs an advanced-depth query. The api key is passed per call so
// per-session overrides apply.
func (c *Client) Search(ctx context.Context, apiKey, query string) (*Response, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("websearch: missing api key")
	}
	payload := map[string]any{
		"query":          query,
		"search_depth":   "advanced",
		"include_answer": true,
		"include_images": false,
		"max_results":    maxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("websearch: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("websearch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("websearch: search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("websearch: search: status %d: %s", resp.StatusCode, snippet)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("websearch: decode response: %w", err)
	}
	return &out, nil
}

// Summary picks the spoken reply for a search response: the service's own
// answer when present, otherwise the top result's content clipped to a
// speakable length.
func Summary(resp *Response) string {
	if resp == nil {
		return noSummaryReply
	}
	if answer := strings.TrimSpace(resp.Answer); answer != "" {
		return answer
	}
	if len(resp.Results) > 0 {
		content := strings.TrimSpace(resp.Results[0].Content)
		if content != "" {
			if len(content) > summaryMaxLen {
				content = content[:summaryMaxLen]
			}
			return content
		}
	}
	return noSummaryReply
}
