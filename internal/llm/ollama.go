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

// OllamaAdapter wraps a local Ollama server's chat API, following the
// teacher's OllamaProvider request/response shape. Vision queries use
// Ollama's "images" message field for multimodal-capable models
// (llava, bakllava, qwen2.5-vl, ...).
type OllamaAdapter struct {
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *observability.Logger
}

func NewOllamaAdapter(baseURL, model string, temperature float64, timeout time.Duration, logger *observability.Logger) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen3"
	}
	if temperature == 0 {
		temperature = defaultTemperature
	}
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &OllamaAdapter{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

type ollamaChatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string                 `json:"model"`
	Messages []ollamaChatMessage    `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Error   string            `json:"error,omitempty"`
}

func (a *OllamaAdapter) Query(ctx context.Context, prompt, systemPrompt string) (string, error) {
	return a.call(ctx, prompt, systemPrompt, nil)
}

func (a *OllamaAdapter) QueryWithVision(ctx context.Context, prompt, imageBase64, systemPrompt string) (string, error) {
	return a.call(ctx, prompt, systemPrompt, []string{imageBase64})
}

func (a *OllamaAdapter) call(ctx context.Context, prompt, systemPrompt string, images []string) (string, error) {
	messages := []ollamaChatMessage{}
	if systemPrompt != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: prompt, Images: images})

	reqBody := ollamaChatRequest{
		Model:    a.model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]interface{}{"temperature": a.temperature},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	if a.logger != nil {
		a.logger.Debug(ctx, "ollama response received", map[string]interface{}{"model": a.model})
	}
	return out.Message.Content, nil
}
