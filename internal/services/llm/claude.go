package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
)

// ClaudeProvider implements interfaces.ModelProvider with the Anthropic API
type ClaudeProvider struct {
	client      anthropic.Client
	maxTokens   int
	temperature float32
	logger      arbor.ILogger
}

var _ interfaces.ModelProvider = (*ClaudeProvider)(nil)

// NewClaudeProvider creates a Claude client with SDK retries disabled.
// Extra options are appended after the defaults.
func NewClaudeProvider(config common.ClaudeConfig, logger arbor.ILogger, opts ...option.RequestOption) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)")
	}

	requestOptions := append([]option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}, opts...)

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &ClaudeProvider{
		client:      anthropic.NewClient(requestOptions...),
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

func (p *ClaudeProvider) Name() string {
	return string(common.LLMProviderClaude)
}

// ListModels pages through the catalog. Every Claude model supports messages.
func (p *ClaudeProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	var catalog []models.ModelInfo

	iter := p.client.Models.ListAutoPaging(ctx, anthropic.ModelListParams{})
	for iter.Next() {
		m := iter.Current()
		catalog = append(catalog, models.ModelInfo{
			ID:                 m.ID,
			DisplayName:        m.DisplayName,
			SupportsGeneration: true,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to list Claude models: %w", err)
	}

	p.logger.Debug().Int("count", len(catalog)).Msg("Claude catalog listed")
	return catalog, nil
}

func (p *ClaudeProvider) Generate(ctx context.Context, modelID string, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if p.temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.temperature))
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude %s: %w", modelID, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("Claude %s: %w", modelID, ErrEmptyResponse)
	}
	return text.String(), nil
}

func (p *ClaudeProvider) Close() error {
	return nil
}
