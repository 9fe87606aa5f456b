package llm

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

	"github.com/PabloGalante/tonal/internal/domain"
)

const (
	defaultMistralURL   = "https://api.mistral.ai/v1/chat/completions"
	defaultMistralModel = "mistral-small"
)

type MistralConfig struct {
	APIKey string
	URL    string
	Model  string
}

// MistralTransformer calls the Mistral chat completions endpoint.
type MistralTransformer struct {
	apiKey     string
	url        string
	model      string
	HTTPClient *http.Client
}

func NewMistralTransformer(cfg MistralConfig) (*MistralTransformer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("mistral api key is required")
	}

	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = defaultMistralURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultMistralModel
	}

	return &MistralTransformer{
		apiKey: apiKey,
		url:    url,
		model:  model,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (m *MistralTransformer) Transform(ctx context.Context, text string, tone domain.Tone) (string, error) {
	prompt := BuildPrompt(text, tone)

	payload, err := json.Marshal(chatRequest{
		Model: m.model,
		Messages: []chatMessage{
			{Role: "system", Content: prompt.System},
			{Role: "user", Content: prompt.User},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mistral request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return "", fmt.Errorf("mistral status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var out chatResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("mistral decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("mistral returned no choices")
	}

	return finish(out.Choices[0].Message.Content)
}

var _ domain.Transformer = (*MistralTransformer)(nil)
