package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

func TestFactoryWithoutKeysReturnsUnavailable(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Gemini.APIKey = ""
	cfg.Claude.APIKey = ""

	svc := NewLLMService(cfg, arbor.NewLogger())
	require.NotNil(t, svc)
	assert.False(t, svc.Available())
	assert.Equal(t, "none", svc.Provider())

	_, err := svc.Generate(context.Background(), "hello", interfaces.GenerateOptions{})
	assert.ErrorIs(t, err, models.ErrLLMUnavailable)
}

func TestGeminiRequiresKey(t *testing.T) {
	_, err := NewGeminiService(&common.GeminiConfig{Timeout: "5m"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestClaudeRequiresKey(t *testing.T) {
	_, err := NewClaudeService(&common.ClaudeConfig{Timeout: "5m"}, arbor.NewLogger())
	assert.Error(t, err)
}

func TestClaudeRejectsBadTimeout(t *testing.T) {
	_, err := NewClaudeService(&common.ClaudeConfig{APIKey: "sk-test", Timeout: "not-a-duration"}, arbor.NewLogger())
	assert.Error(t, err)
}
