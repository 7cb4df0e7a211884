package bootstrap

import (
	"context"
	"fmt"
	"time"

	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/internal/observability/metrics"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// BuildLLMClient wires the configured provider, wrapped with the fallback
// provider when one is set. The returned cleanup releases provider clients.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, m *metrics.ChatMetrics, logger *logging.Logger) (conversation.LLMClient, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	primary, closePrimary, err := buildProvider(ctx, cfg, cfg.LLMProvider)
	if err != nil {
		return nil, nil, err
	}
	cleanup := closePrimary
	var client conversation.LLMClient = primary

	if cfg.LLMFallbackProvider != "" {
		fallback, closeFallback, err := buildProvider(ctx, cfg, cfg.LLMFallbackProvider)
		if err != nil {
			closePrimary()
			return nil, nil, err
		}
		cleanup = func() {
			closePrimary()
			closeFallback()
		}
		client = conversation.NewFallbackLLMClient(primary, fallback, logger,
			conversation.WithProviderNames(cfg.LLMProvider, cfg.LLMFallbackProvider),
			conversation.WithFallbackMetrics(m),
		)
		logger.Info("llm fallback enabled", "primary", cfg.LLMProvider, "fallback", cfg.LLMFallbackProvider)
	}

	if cfg.LLMTimeout > 0 {
		client = &timeoutLLMClient{next: client, timeout: cfg.LLMTimeout}
	}

	logger.Info("llm provider configured", "provider", cfg.LLMProvider)
	return client, cleanup, nil
}

func buildProvider(ctx context.Context, cfg *appconfig.Config, provider string) (conversation.LLMClient, func(), error) {
	noop := func() {}
	switch provider {
	case appconfig.ProviderGemini:
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini: %w", err)
		}
		return client, func() { _ = client.Close() }, nil
	case appconfig.ProviderBedrock:
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return conversation.NewBedrockLLMClient(newBedrockClient(awsCfg), cfg.BedrockModelID), noop, nil
	case appconfig.ProviderOpenAI:
		client, err := conversation.NewOpenAILLMClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: openai: %w", err)
		}
		return client, noop, nil
	default:
		return nil, nil, fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}

// timeoutLLMClient bounds every completion, including a fallback attempt.
type timeoutLLMClient struct {
	next    conversation.LLMClient
	timeout time.Duration
}

func (c *timeoutLLMClient) Complete(ctx context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.next.Complete(ctx, req)
}
