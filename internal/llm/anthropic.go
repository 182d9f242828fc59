package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ai-agentic-browser/pkg/observability"
)

// AnthropicAdapter wraps the Anthropic Messages API, following the same
// x-api-key/anthropic-version header shape and content-block message
// structure the teacher's Claude provider uses, extended with the real
// image content-block shape for vision queries.
type AnthropicAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *observability.Logger
}

func NewAnthropicAdapter(apiKey, model string, ratePerSecond float64, logger *observability.Logger) *AnthropicAdapter {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicAdapter{
		apiKey:     apiKey,
		baseURL:    "https://api.anthropic.com/v1",
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    newLimiter(ratePerSecond),
		logger:     logger,
	}
}

type anthropicContentBlock struct {
	Type   string                 `json:"type"`
	Text   string                 `json:"text,omitempty"`
	Source *anthropicImageSource  `json:"source,omitempty"`
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *AnthropicAdapter) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []anthropicMessage{{
		Role:    "user",
		Content: []anthropicContentBlock{{Type: "text", Text: prompt}},
	}}
	return a.call(ctx, messages, systemPrompt)
}

func (a *AnthropicAdapter) QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error) {
	messages := []anthropicMessage{{
		Role: "user",
		Content: []anthropicContentBlock{
			{Type: "image", Source: &anthropicImageSource{Type: "base64", MediaType: "image/png", Data: imageBase64}},
			{Type: "text", Text: prompt},
		},
	}}
	return a.call(ctx, messages, systemPrompt)
}

func (a *AnthropicAdapter) call(ctx context.Context, messages []anthropicMessage, systemPrompt string) (string, error) {
	if err := waitLimiter(ctx, a.limiter); err != nil {
		return "", err
	}

	reqBody := anthropicRequest{
		Model:       a.model,
		MaxTokens:   600,
		Messages:    messages,
		System:      systemPrompt,
		Temperature: defaultTemperature,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic error: %s", out.Error.Message)
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content")
	}
	if a.logger != nil {
		a.logger.Debug(ctx, "anthropic response received", map[string]interface{}{"model": a.model})
	}
	return out.Content[0].Text, nil
}
