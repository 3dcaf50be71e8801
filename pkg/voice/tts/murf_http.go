package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGenerateURL = "https://api.murf.ai/v1/speech/generate"
	defaultHTTPVoiceID = "en-US-natalie"
)

// Client performs one-shot speech generation over the REST endpoint.
// The duplex websocket path in Stream is used for live sessions; this
// client backs the simple request/response route.
type Client struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = u }
}

func WithVoiceID(id string) ClientOption {
	return func(c *Client) { c.voiceID = id }
}

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultGenerateURL,
		voiceID:    defaultHTTPVoiceID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type GenerateResult struct {
	AudioURL string  `json:"audioFile"`
	Length   float64 `json:"audioLengthInSeconds"`
}

// Generate synthesizes text and returns a URL for the rendered audio file.
func (c *Client) Generate(ctx context.Context, text string) (*GenerateResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("tts: client not configured")
	}
	payload := struct {
		Text    string `json:"text"`
		VoiceID string `json:"voiceId"`
	}{Text: text, VoiceID: c.voiceID}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tts: generate: status %d: %s", resp.StatusCode, snippet)
	}

	var result GenerateResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("tts: decode response: %w", err)
	}
	return &result, nil
}
