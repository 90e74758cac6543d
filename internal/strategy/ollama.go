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

const DefaultOllamaModel = "llama3.2"

// Ollama rewrites chunks with a local Ollama model.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &Ollama{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *Ollama) Name() string {
	return "ollama"
}

func (s *Ollama) Rewrite(ctx context.Context, req Request) (string, error) {
	body := ollamaRequest{
		Model:  s.model,
		System: buildSystemPrompt(req),
		Prompt: req.Text,
		Stream: false,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to marshal rewrite request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", Permanent(fmt.Errorf("failed to create rewrite request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("rewrite request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := statusError("ollama", resp.StatusCode); err != nil {
		return "", err
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode rewrite response: %w", err)
	}

	rewritten := postprocess.Clean(ollamaResp.Response, req.Text)
	if rewritten == "" {
		return "", errors.New("ollama returned an empty rewrite")
	}
	return rewritten, nil
}

// statusError classifies an HTTP status. Throttling and server errors are
// retryable; other client errors are not.
func statusError(service string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%s returned status %d", service, code)
	default:
		return Permanent(fmt.Errorf("%s returned status %d", service, code))
	}
}
