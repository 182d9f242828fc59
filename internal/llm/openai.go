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

// OpenAIAdapter wraps the OpenAI chat-completions API, text and vision
// variants alike (vision uses the same endpoint with an image_url content
// part).
type OpenAIAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *observability.Logger
}

// NewOpenAIAdapter builds an adapter for the given model (default
// "gpt-4o", which supports both tiers' requests). ratePerSecond bounds
// outbound call rate; non-positive disables limiting.
func NewOpenAIAdapter(apiKey, model string, ratePerSecond float64, logger *observability.Logger) *OpenAIAdapter {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAIAdapter{
		apiKey:     apiKey,
		baseURL:    "https://api.openai.com/v1",
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    newLimiter(ratePerSecond),
		logger:     logger,
	}
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *OpenAIAdapter) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []openAIMessage{}
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: prompt})
	return a.call(ctx, messages)
}

func (a *OpenAIAdapter) QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error) {
	messages := []openAIMessage{}
	if systemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: systemPrompt})
	}
	content := []map[string]interface{}{
		{"type": "text", "text": prompt},
		{"type": "image_url", "image_url": map[string]string{
			"url": "data:image/png;base64," + imageBase64,
		}},
	}
	messages = append(messages, openAIMessage{Role: "user", Content: content})
	return a.call(ctx, messages)
}

func (a *OpenAIAdapter) call(ctx context.Context, messages []openAIMessage) (string, error) {
	if err := waitLimiter(ctx, a.limiter); err != nil {
		return "", err
	}

	reqBody := openAIRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   600,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("openai error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	if a.logger != nil {
		a.logger.Debug(ctx, "openai response received", map[string]interface{}{"model": a.model})
	}
	return out.Choices[0].Message.Content, nil
}
