// Package llm provides completion backends for report generation.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/radreport-mcp-server/internal/domain"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// CompleterFunc adapts a function to domain.Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// New builds the configured provider and wraps it with retries, rate
// limiting and a circuit breaker.
func New(cfg domain.LLMConfig, logger *logrus.Logger) (*Resilient, error) {
	var (
		backend domain.Completer
		err     error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		backend, err = NewOpenAICompleter(OpenAIConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	case ProviderAnthropic:
		backend, err = NewAnthropicCompleter(AnthropicConfig{
			APIKey:    cfg.APIKey,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewResilient(backend, ResilienceOptions{
		Name:            cfg.Provider,
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		Backoff:         cfg.RetryBackoff,
		RateLimit:       cfg.RateLimit,
		Burst:           cfg.Burst,
		BreakerFailures: cfg.BreakerFailures,
	}, logger), nil
}
