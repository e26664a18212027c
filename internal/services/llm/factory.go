package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
	"github.com/ternarybob/fury/internal/models"
)

// NewLLMService creates the configured provider. A missing API key is not
// an error: the unavailable service is returned and every consumer
// degrades to its deterministic fallback.
func NewLLMService(cfg *common.Config, logger arbor.ILogger) interfaces.LLMService {
	provider := cfg.LLM.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	switch provider {
	case common.LLMProviderGemini:
		if svc, err := NewGeminiService(&cfg.Gemini, logger); err == nil {
			return svc
		} else {
			logger.Warn().Err(err).Msg("Gemini unavailable, AI features will use fallbacks")
		}
	case common.LLMProviderClaude:
		if svc, err := NewClaudeService(&cfg.Claude, logger); err == nil {
			return svc
		} else {
			logger.Warn().Err(err).Msg("Claude unavailable, AI features will use fallbacks")
		}
	default:
		logger.Warn().Str("provider", string(provider)).Msg("Unknown LLM provider, AI features will use fallbacks")
	}

	return NewUnavailableService()
}

// UnavailableService is the no-provider implementation. Every Generate
// call fails with ErrLLMUnavailable so callers take their fallback path.
type UnavailableService struct{}

// NewUnavailableService returns the no-provider LLM service.
func NewUnavailableService() *UnavailableService {
	return &UnavailableService{}
}

func (s *UnavailableService) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	return "", fmt.Errorf("no LLM provider configured: %w", models.ErrLLMUnavailable)
}

func (s *UnavailableService) Available() bool { return false }

func (s *UnavailableService) Provider() string { return "none" }

func (s *UnavailableService) Close() error { return nil }
