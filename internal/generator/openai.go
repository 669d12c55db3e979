package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	defaultModel   = "gpt-4o"
	defaultTimeout = 120 * time.Second
)

// Config holds configuration for the OpenAI-compatible client.
type Config struct {
	APIKey  string
	BaseURL string // Optional: any OpenAI-compatible endpoint
	Model   string
	// Fallbacks are tried in order when the primary model errors out.
	Fallbacks   []string
	Temperature float64
	Timeout     time.Duration
	RPM         int // Requests per minute for the local token bucket
	MaxRetries  int // SDK transport retries per request
	Logger      *slog.Logger
	HTTPClient  *http.Client // Optional (tests)
}

// Client implements Generator against an OpenAI-compatible chat API.
type Client struct {
	client      openai.Client
	model       string
	fallbacks   []string
	temperature float64
	limiter     *RateLimiter
	logger      *slog.Logger
}

// NewClient creates a generation client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		fallbacks:   cfg.Fallbacks,
		temperature: cfg.Temperature,
		limiter:     NewRateLimiter(cfg.RPM),
		logger:      cfg.Logger.With("component", "generator"),
	}
}

// Text returns the raw completion, falling back through the configured
// model list before giving up.
func (c *Client) Text(ctx context.Context, req Request) (string, error) {
	models := append([]string{c.model}, c.fallbacks...)

	var lastErr error
	for _, model := range models {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		content, err := c.complete(ctx, model, req)
		if err == nil {
			return content, nil
		}
		lastErr = err
		c.logger.Warn("generation failed, trying next model", "model", model, "error", err)
	}
	return "", fmt.Errorf("all models failed: %w", lastErr)
}

// Structured generates schema-conforming JSON with one local repair pass.
func (c *Client) Structured(ctx context.Context, req Request, schema string, out any) error {
	return structuredViaText(ctx, c, req, schema, out)
}

func (c *Client) complete(ctx context.Context, model string, req Request) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
