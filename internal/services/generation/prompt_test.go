package generation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unifiedui/mentalbot-service/internal/domain/models"
	"github.com/unifiedui/mentalbot-service/internal/services/generation"
)

func turns(pairs ...string) []models.Turn {
	out := make([]models.Turn, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, models.Turn{Role: models.MessageRole(pairs[i]), Content: pairs[i+1]})
	}
	return out
}

func TestBuildPrompt_Structure(t *testing.T) {
	prompt := generation.BuildPrompt("I can't sleep", nil)

	assert.True(t, strings.HasPrefix(prompt, `"Offer personalized, empathetic, and achievable solutions`))
	assert.Equal(t, 4, strings.Count(prompt, "\nOutput: \""), "four exemplars")
	assert.Contains(t, prompt, "Previous Context: \n\n")
	assert.True(t, strings.HasSuffix(prompt, "Input: \"I can't sleep\"\nOutput:\"\n"))
	assert.Contains(t, prompt, "overcame challenges—that's evidence of your capabilities.")
}

func TestBuildPrompt_ContextWindow(t *testing.T) {
	history := turns(
		"user", "first",
		"assistant", "second",
		"user", "third",
		"assistant", "fourth",
	)

	prompt := generation.BuildPrompt("next", history)

	assert.Contains(t, prompt, "Previous Context: user: third assistant: fourth\n\n")
	assert.NotContains(t, prompt, "first")
	assert.NotContains(t, prompt, "second")
}

func TestBuildPrompt_SingleTurn(t *testing.T) {
	prompt := generation.BuildPrompt("hello", turns("user", "hello"))

	assert.Contains(t, prompt, "Previous Context: user: hello\n\nInput: \"hello\"")
}

func TestBuildPrompt_OrderIsFixed(t *testing.T) {
	prompt := generation.BuildPrompt("now", turns("user", "before"))

	preamble := strings.Index(prompt, "Offer personalized")
	lastExample := strings.LastIndex(prompt, "draft a supportive message")
	context := strings.Index(prompt, "Previous Context:")
	input := strings.Index(prompt, `Input: "now"`)
	cue := strings.LastIndex(prompt, `Output:"`)

	assert.True(t, preamble < lastExample && lastExample < context && context < input && input < cue)
}
