package llm

import (
	"context"
	"strings"

	"github.com/PabloGalante/tonal/internal/domain"
)

// MockTransformer is a deterministic stand-in for local development.
type MockTransformer struct{}

func NewMockTransformer() *MockTransformer {
	return &MockTransformer{}
}

// Transform upper-cases the text and marks it with "-ish"; tone is ignored.
func (m *MockTransformer) Transform(ctx context.Context, text string, _ domain.Tone) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(text)) + "-ish", nil
}

var _ domain.Transformer = (*MockTransformer)(nil)
