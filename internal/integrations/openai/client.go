// Package openai is an alternate language-model provider speaking the
// OpenAI-compatible Chat Completions protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/integrations/paramstore"
)

const defaultBaseURL = "https://api.openai.com/v1"

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Choices []struct {
		Index   int                `json:"index"`
		Message domain.ChatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client implements the session Generator port against a Chat Completions
// endpoint.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokens      paramstore.TokenSource
	model       string
	temperature *float64
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTemperature(t float64) Option {
	return func(c *Client) {
		c.temperature = &t
	}
}

// NewClient creates a Client. The API token is resolved through tokens on
// every call; ParamToken caches it after the first lookup.
func NewClient(tokens paramstore.TokenSource, model string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("openai: token source must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("openai: model must not be empty")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     tokens,
		model:      model,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// chatMessages flattens a completion request into the system, history and user
// messages of a Chat Completions call.
func chatMessages(req domain.CompletionRequest) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(req.History)+2)
	if req.SystemInstruction != "" {
		out = append(out, domain.ChatMessage{Role: "system", Content: req.SystemInstruction})
	}
	for _, m := range req.History {
		role := "user"
		if m.Role == domain.RoleModel {
			role = "assistant"
		}
		out = append(out, domain.ChatMessage{Role: role, Content: m.Text})
	}
	return append(out, domain.ChatMessage{Role: "user", Content: req.Message})
}

// Generate sends one chat completion and returns the first choice.
func (c *Client) Generate(ctx context.Context, in domain.CompletionRequest) (domain.CompletionResponse, error) {
	apiKey, err := c.tokens.Token(ctx)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai: resolve token: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    chatMessages(in),
		Temperature: c.temperature,
	})
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai: request failed: %w", err)
	}

	var payload chatResponse
	if decErr := json.Unmarshal(raw, &payload); decErr != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai: decode response: %w", decErr)
	}
	if len(payload.Choices) == 0 {
		return domain.CompletionResponse{}, errors.New("openai: no choices in response")
	}
	text := payload.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return domain.CompletionResponse{}, errors.New("openai: empty completion")
	}
	return domain.CompletionResponse{Text: text}, nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
