package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
)

// NewProvider creates the provider selected by llm.default_provider
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.ModelProvider, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderGemini, "":
		return NewGeminiProvider(ctx, config.Gemini, logger)
	case common.LLMProviderClaude:
		return NewClaudeProvider(config.Claude, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (expected gemini or claude)", config.LLM.DefaultProvider)
	}
}
