// File: internal/llmclient/factory.go
package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/q0rren/attendant/api/schemas"
	"github.com/q0rren/attendant/internal/config"
)

// NewClient is a factory function that creates an LLMClient based on the
// configuration.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderMock:
		// Offline rule-based oracle; useful for demos and local runs without
		// an API key.
		return NewRuleClient(logger), nil
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: %q. Supported: [%s, %s]",
			cfg.Provider, config.ProviderGemini, config.ProviderMock)
	}
}
