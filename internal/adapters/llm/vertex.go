package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/PabloGalante/tonal/internal/domain"
)

type VertexConfig struct {
	Project  string
	Location string
	Model    string
}

type VertexTransformer struct {
	client    *genai.Client
	modelName string
}

// NewVertexTransformer creates a Transformer based on Vertex AI (Gemini).
func NewVertexTransformer(ctx context.Context, cfg VertexConfig) (*VertexTransformer, error) {
	if cfg.Project == "" || cfg.Location == "" {
		return nil, fmt.Errorf("vertex project and location must be set")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.Project,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexTransformer{
		client:    client,
		modelName: modelName,
	}, nil
}

// Transform implements domain.Transformer using Vertex AI.
func (v *VertexTransformer) Transform(ctx context.Context, text string, tone domain.Tone) (string, error) {
	prompt := BuildPrompt(text, tone)

	contents := []*genai.Content{
		genai.NewContentFromText(prompt.User, genai.RoleUser),
	}

	temp := float32(0.4)
	outputTokens := int32(4096)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   outputTokens,
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("vertex generate content: %w", err)
	}

	return finish(res.Text())
}

var _ domain.Transformer = (*VertexTransformer)(nil)
