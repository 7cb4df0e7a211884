package conversation

import (
	"context"
	"fmt"

	"github.com/yaseenp24/Healthcare-Agent/internal/observability/metrics"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// FallbackLLMClient fails over from a primary provider to a secondary one.
// Each request reaches the fallback at most once.
type FallbackLLMClient struct {
	primary      LLMClient
	fallback     LLMClient
	primaryName  string
	fallbackName string
	metrics      *metrics.ChatMetrics
	logger       *logging.Logger
}

// FallbackOption customizes a FallbackLLMClient.
type FallbackOption func(*FallbackLLMClient)

// WithProviderNames labels both providers in logs and errors.
func WithProviderNames(primary, fallback string) FallbackOption {
	return func(c *FallbackLLMClient) {
		c.primaryName = primary
		c.fallbackName = fallback
	}
}

// WithFallbackMetrics counts failovers.
func WithFallbackMetrics(m *metrics.ChatMetrics) FallbackOption {
	return func(c *FallbackLLMClient) {
		c.metrics = m
	}
}

// NewFallbackLLMClient creates a failover client. A nil fallback leaves the
// primary alone in charge.
func NewFallbackLLMClient(primary, fallback LLMClient, logger *logging.Logger, opts ...FallbackOption) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &FallbackLLMClient{
		primary:      primary,
		fallback:     fallback,
		primaryName:  "primary",
		fallbackName: "fallback",
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	resp, err := c.primary.Complete(ctx, req)
	if err == nil || c.fallback == nil {
		return resp, err
	}
	// The caller is gone; a second provider cannot help.
	if ctx.Err() != nil {
		return LLMResponse{}, err
	}

	c.metrics.ObserveAdapterFailure("llm", "failover")
	c.logger.Warn("llm provider failed, failing over",
		"provider", c.primaryName,
		"fallback", c.fallbackName,
		"error", err,
	)

	// Model ids are provider specific; the fallback uses its own default.
	req.Model = ""
	resp, fallbackErr := c.fallback.Complete(ctx, req)
	if fallbackErr != nil {
		return LLMResponse{}, fmt.Errorf("%s: %w; %s: %w", c.primaryName, err, c.fallbackName, fallbackErr)
	}
	return resp, nil
}
