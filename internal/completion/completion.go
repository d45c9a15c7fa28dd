// Package completion is a narrow client for a chat-completions service:
// prompt, temperature, and seed in; the raw content string out. The scoring
// engine owns parsing and validation of the content.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chainproof/walletscore/internal/metrics"
)

var (
	// ErrUnavailable indicates the service could not be reached.
	ErrUnavailable = errors.New("completion: service unavailable")
	// ErrBadStatus indicates a non-2xx response.
	ErrBadStatus = errors.New("completion: unexpected status")
	// ErrEmptyResponse indicates a well-formed response with no content.
	ErrEmptyResponse = errors.New("completion: empty response")
)

// DefaultTimeout bounds a single completion round trip.
const DefaultTimeout = 30 * time.Second

// Client calls the chat-completions endpoint of an OpenAI-compatible service.
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (used by tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a completion client.
func New(baseURL, model, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Seed        uint32        `json:"seed"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one completion request and returns the content of the first
// choice.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float64, seed uint32) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		Seed:        seed,
	})
	if err != nil {
		return "", fmt.Errorf("completion: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("completion: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little for the error message, discard the rest.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %d: %s", ErrBadStatus, resp.StatusCode, snippet)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("completion: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return parsed.Choices[0].Message.Content, nil
}

// Ping checks reachability of the service for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return fmt.Errorf("completion: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}
	return nil
}
