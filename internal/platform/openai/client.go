package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/cortex-backend/internal/observability"
	"github.com/yungbote/cortex-backend/internal/pkg/httpx"
	"github.com/yungbote/cortex-backend/internal/platform/logger"
)

const DefaultModel = "gpt-4o-mini"

// ImageInput is the normalized multimodal image input used by Client.
type ImageInput struct {
	// Can be https://... or data:image/...;base64,...
	ImageURL string
	// Optional. "low" | "high" | "auto"
	Detail string
}

// Client is the chat completion surface the rest of the backend depends on.
type Client interface {
	// Plain text (no schema)
	GenerateText(ctx context.Context, system string, user string) (string, error)

	// Multimodal: user prompt + images -> plain text
	GenerateTextWithImages(ctx context.Context, system string, user string, images []ImageInput) (string, error)
}

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxRetries  int
	Temperature *float32
}

type client struct {
	log         *logger.Logger
	api         *goopenai.Client
	model       string
	maxRetries  int
	temperature *float32
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
		log.Warn("OPENAI_MODEL not set, using default", "model", model)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	apiCfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		if !strings.HasSuffix(base, "/v1") {
			base += "/v1"
		}
		apiCfg.BaseURL = base
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	log.Info("Initializing OpenAI client", "model", model, "timeout", timeout.String())
	return &client{
		log:         log.With("service", "OpenAIClient"),
		api:         goopenai.NewClientWithConfig(apiCfg),
		model:       model,
		maxRetries:  maxRetries,
		temperature: cfg.Temperature,
	}, nil
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return c.complete(ctx, []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: system},
		{Role: goopenai.ChatMessageRoleUser, Content: user},
	})
}

func (c *client) GenerateTextWithImages(ctx context.Context, system string, user string, images []ImageInput) (string, error) {
	parts := make([]goopenai.ChatMessagePart, 0, 1+len(images))
	parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: user})
	for _, img := range images {
		u := strings.TrimSpace(img.ImageURL)
		if u == "" {
			continue
		}
		detail := goopenai.ImageURLDetailAuto
		switch strings.ToLower(strings.TrimSpace(img.Detail)) {
		case "low":
			detail = goopenai.ImageURLDetailLow
		case "high":
			detail = goopenai.ImageURLDetailHigh
		}
		parts = append(parts, goopenai.ChatMessagePart{
			Type:     goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{URL: u, Detail: detail},
		})
	}
	if len(parts) == 1 {
		return c.GenerateText(ctx, system, user)
	}
	return c.complete(ctx, []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: system},
		{Role: goopenai.ChatMessageRoleUser, MultiContent: parts},
	})
}

func (c *client) complete(ctx context.Context, msgs []goopenai.ChatCompletionMessage) (string, error) {
	req := goopenai.ChatCompletionRequest{Model: c.model, Messages: msgs}
	if c.temperature != nil {
		req.Temperature = *c.temperature
	}

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			observability.LLMRequests.WithLabelValues(c.model, "ok").Inc()
			observability.LLMTokens.WithLabelValues(c.model, "input").Add(float64(resp.Usage.PromptTokens))
			observability.LLMTokens.WithLabelValues(c.model, "output").Add(float64(resp.Usage.CompletionTokens))
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("openai returned no choices")
			}
			text := resp.Choices[0].Message.Content
			if strings.TrimSpace(text) == "" {
				if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
					return "", fmt.Errorf("model refused: %s", refusal)
				}
				return "", fmt.Errorf("openai returned empty content")
			}
			return text, nil
		}

		status := statusOf(err)
		observability.LLMRequests.WithLabelValues(c.model, status).Inc()
		if !isRetryable(err) || attempt == c.maxRetries {
			return "", fmt.Errorf("openai chat completion: %w", err)
		}

		sleepFor := httpx.Backoff(attempt, time.Second, 10*time.Second)
		c.log.Warn("OpenAI request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"status", status,
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(sleepFor):
		}
	}
	return "", fmt.Errorf("unreachable retry loop")
}

func httpStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func statusOf(err error) string {
	if code := httpStatus(err); code > 0 {
		return strconv.Itoa(code)
	}
	return "error"
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	code := httpStatus(err)
	if code == 0 {
		// Transport failure (timeout, reset) with no HTTP response.
		return true
	}
	return httpx.IsRetryableHTTPStatus(code)
}
