// Package gemini calls Google's Gemini models through the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"immobilier-assistant/internal/domain"
	"immobilier-assistant/internal/integrations/paramstore"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Client implements the session Generator port. The underlying genai client
// is created on first use so that the token lookup happens lazily.
type Client struct {
	tokens     paramstore.TokenSource
	model      string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

type Option func(*Client)

// WithBaseURL points the client at a different API host.
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

func NewClient(tokens paramstore.TokenSource, model string, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("gemini: token source must not be nil")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	c := &Client{tokens: tokens, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

func (c *Client) genaiClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	apiKey, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("gemini: resolve token: %w", err)
	}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.client = client
	return client, nil
}

// contents converts the forwarded history plus the latest user message.
func contents(req domain.CompletionRequest) []*genai.Content {
	out := make([]*genai.Content, 0, len(req.History)+1)
	for _, m := range req.History {
		role := genai.Role(genai.RoleUser)
		if m.Role == domain.RoleModel {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Text, role))
	}
	return append(out, genai.NewContentFromText(req.Message, genai.RoleUser))
}

// Generate sends one generateContent call and returns the reply text.
func (c *Client) Generate(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	client, err := c.genaiClient(ctx)
	if err != nil {
		return domain.CompletionResponse{}, err
	}

	cfg := &genai.GenerateContentConfig{}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	res, err := client.Models.GenerateContent(ctx, c.model, contents(req), cfg)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("gemini: generate content: %w", err)
	}
	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return domain.CompletionResponse{}, errors.New("gemini: empty response text")
	}
	return domain.CompletionResponse{Text: text}, nil
}
