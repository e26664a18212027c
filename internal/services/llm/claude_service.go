package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fury/internal/common"
	"github.com/ternarybob/fury/internal/interfaces"
)

// ClaudeService implements LLMService against the Anthropic messages API.
type ClaudeService struct {
	config  *common.ClaudeConfig
	logger  arbor.ILogger
	client  anthropic.Client
	open    bool
	timeout time.Duration
	mu      sync.Mutex // serializes calls, same policy as Gemini
}

// NewClaudeService creates a Claude LLM service. The API key must already
// be resolved into the config (environment overrides happen at load).
func NewClaudeService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY, FURY_ANTHROPIC_API_KEY, or claude.api_key in config)")
	}

	if config.Model == "" {
		config.Model = "claude-haiku-3-5-20241022"
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Timeout, err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
	)

	logger.Info().
		Str("model", config.Model).
		Dur("timeout", timeout).
		Msg("Claude LLM service initialized")

	return &ClaudeService{
		config:  config,
		logger:  logger,
		client:  client,
		open:    true,
		timeout: timeout,
	}, nil
}

// Generate sends a single prompt and returns the raw response text.
// Concurrent callers are serialized. Claude has no JSON response mode;
// callers strip markdown fences instead.
func (s *ClaudeService) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return "", fmt.Errorf("claude client is closed")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.config.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = s.config.Temperature
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}

	if opts.SystemInstruction != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: opts.SystemInstruction},
		}
	}

	start := time.Now()
	resp, err := s.client.Messages.New(timeoutCtx, params)
	if err != nil {
		s.logger.Error().Err(err).Int("prompt_length", len(prompt)).Msg("Claude generation failed")
		return "", fmt.Errorf("claude generation failed: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}

	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from claude")
	}

	s.logger.Debug().
		Int("prompt_length", len(prompt)).
		Int("response_length", response.Len()).
		Dur("duration", time.Since(start)).
		Msg("Claude generation completed")

	return response.String(), nil
}

// Available reports whether the provider is usable.
func (s *ClaudeService) Available() bool {
	return s.open
}

// Provider returns the provider name.
func (s *ClaudeService) Provider() string {
	return "claude"
}

// Close releases the client.
func (s *ClaudeService) Close() error {
	s.logger.Debug().Msg("Closing Claude LLM service")
	s.open = false
	return nil
}
