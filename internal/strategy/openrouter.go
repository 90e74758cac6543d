package strategy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/humanizer/internal/postprocess"
)

const DefaultOpenRouterModel = "meta-llama/llama-3.1-8b-instruct:free"

// OpenRouter rewrites chunks through the OpenRouter chat completions API.
type OpenRouter struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func NewOpenRouter(apiKey, baseURL, model string) *OpenRouter {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = DefaultOpenRouterModel
	}
	return &OpenRouter{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *OpenRouter) Name() string {
	return "openrouter"
}

func (s *OpenRouter) Rewrite(ctx context.Context, req Request) (string, error) {
	if s.apiKey == "" {
		return "", Permanent(errors.New("OpenRouter API key required"))
	}

	body := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: buildSystemPrompt(req)},
			{Role: "user", Content: req.Text},
		},
		MaxTokens: 4096,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to marshal rewrite request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/chat/completions", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to create rewrite request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.apiKey))
	httpReq.Header.Set("X-Title", "Humanizer")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("rewrite request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError("openrouter", resp.StatusCode); err != nil {
		return "", err
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode rewrite response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", errors.New("empty response from API")
	}

	rewritten := postprocess.Clean(chatResp.Choices[0].Message.Content, req.Text)
	if rewritten == "" {
		return "", errors.New("openrouter returned an empty rewrite")
	}
	return rewritten, nil
}
