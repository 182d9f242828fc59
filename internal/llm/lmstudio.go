package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ai-agentic-browser/pkg/observability"
)

// LMStudioAdapter wraps a local LM Studio server's OpenAI-compatible
// /v1/chat/completions endpoint, following the teacher's LMStudioProvider
// shape. Vision uses the same image_url content part OpenAI itself uses,
// for LM Studio models that expose a vision-capable checkpoint.
type LMStudioAdapter struct {
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	logger      *observability.Logger
}

func NewLMStudioAdapter(baseURL, model string, temperature float64, maxTokens int, timeout time.Duration, logger *observability.Logger) *LMStudioAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:1234/v1"
	}
	if model == "" {
		model = "local-model"
	}
	if temperature == 0 {
		temperature = defaultTemperature
	}
	if maxTokens == 0 {
		maxTokens = 1000
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &LMStudioAdapter{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type lmStudioMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type lmStudioRequest struct {
	Model       string            `json:"model"`
	Messages    []lmStudioMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

type lmStudioResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *LMStudioAdapter) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []lmStudioMessage{}
	if systemPrompt != "" {
		messages = append(messages, lmStudioMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, lmStudioMessage{Role: "user", Content: prompt})
	return a.call(ctx, messages)
}

func (a *LMStudioAdapter) QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error) {
	messages := []lmStudioMessage{}
	if systemPrompt != "" {
		messages = append(messages, lmStudioMessage{Role: "system", Content: systemPrompt})
	}
	content := []map[string]interface{}{
		{"type": "text", "text": prompt},
		{"type": "image_url", "image_url": map[string]string{"url": "data:image/png;base64," + imageBase64}},
	}
	messages = append(messages, lmStudioMessage{Role: "user", Content: content})
	return a.call(ctx, messages)
}

func (a *LMStudioAdapter) call(ctx context.Context, messages []lmStudioMessage) (string, error) {
	reqBody := lmStudioRequest{
		Model:       a.model,
		Messages:    messages,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal lmstudio request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build lmstudio request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lmstudio request failed: %w", err)
	}
	defer resp.Body.Close()

	var out lmStudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode lmstudio response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("lmstudio error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("lmstudio returned no choices")
	}
	if a.logger != nil {
		a.logger.Debug(ctx, "lmstudio response received", map[string]interface{}{"model": a.model})
	}
	return out.Choices[0].Message.Content, nil
}
