package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PabloGalante/tonal/internal/domain"
)

const systemPrompt = `
You rewrite text to match a requested level of formality.

Rules:
- Keep the meaning, facts and language of the original text.
- Return ONLY the rewritten text.
- Do not include ANY explanations, introductions, notes about formality levels, or commentary.
- Do not mention the formality level in your response.
`

// Prompt represents the system prompt + the content to send as "user".
type Prompt struct {
	System string
	User   string
}

// ToneDescription turns a tone into the phrase used inside the prompt.
func ToneDescription(tone domain.Tone) string {
	return fmt.Sprintf(
		"with a formality level of %d/100, where 0 is very casual/friendly/humanlike and 100 is very formal",
		int(tone),
	)
}

// BuildPrompt builds the system prompt and the user content for a rewrite.
func BuildPrompt(text string, tone domain.Tone) Prompt {
	var user strings.Builder
	user.WriteString("Rewrite the following text ")
	user.WriteString(ToneDescription(tone))
	user.WriteString(":\n\n")
	user.WriteString(text)

	return Prompt{
		System: strings.TrimSpace(systemPrompt),
		User:   user.String(),
	}
}

// CleanOutput strips the commentary models tend to add around a rewrite:
// a trailing "Note:" section and any line talking about the original text
// or the formality level.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "Note:"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	lower := strings.ToLower(s)
	if !strings.Contains(lower, "original text") && !strings.Contains(lower, "formality level") {
		return s
	}

	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		l := strings.ToLower(line)
		if strings.Contains(l, "original text") || strings.Contains(l, "formality level") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// ErrEmptyOutput is returned when the model answer is empty after cleanup.
var ErrEmptyOutput = errors.New("model returned empty text")

// finish cleans raw model output and rejects an empty result, which would
// otherwise be committed as a blank history state.
func finish(raw string) (string, error) {
	out := CleanOutput(raw)
	if out == "" {
		return "", ErrEmptyOutput
	}
	return out, nil
}
