package llm

import (
	"context"
	"fmt"
)

// NewProvider builds the provider selected by cfg. cfg should already be
// normalized. log and metrics are optional decorators; pass nil to skip them.
func NewProvider(ctx context.Context, cfg Config, log RequestLog, metrics *Metrics) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		p, err = NewGeminiProvider(ctx, cfg)
	case ProviderOpenAI:
		p, err = NewOpenAIProvider(cfg)
	case ProviderAnthropic:
		p, err = NewAnthropicProvider(cfg)
	case ProviderMock:
		p = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	if metrics != nil {
		p = WithMetrics(p, metrics)
	}
	if log != nil {
		p = WithLogging(p, cfg.Provider, log)
	}
	return p, nil
}
