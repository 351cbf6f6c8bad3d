package llm

import (
	"context"
	"fmt"
	"slices"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
	"google.golang.org/genai"
)

// GeminiProvider implements interfaces.ModelProvider with the Gemini API
type GeminiProvider struct {
	client      *genai.Client
	temperature float32
	logger      arbor.ILogger
}

var _ interfaces.ModelProvider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client. The API key must already be resolved.
func NewGeminiProvider(ctx context.Context, config common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		temperature: config.Temperature,
		logger:      logger,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return string(common.LLMProviderGemini)
}

// ListModels pages through the whole catalog
func (p *GeminiProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	var catalog []models.ModelInfo
	for m, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		catalog = append(catalog, geminiModelInfo(m))
	}

	p.logger.Debug().Int("count", len(catalog)).Msg("Gemini catalog listed")
	return catalog, nil
}

// Generate asks for a JSON response; callers still strip fences defensively
func (p *GeminiProvider) Generate(ctx context.Context, modelID string, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if p.temperature > 0 {
		config.Temperature = genai.Ptr(p.temperature)
	}

	resp, err := p.client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("Gemini %s: %w", modelID, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("Gemini %s: %w", modelID, ErrEmptyResponse)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("Gemini %s: %w", modelID, ErrEmptyResponse)
	}
	return text, nil
}

// Close is a no-op; the genai client holds no resources to release
func (p *GeminiProvider) Close() error {
	return nil
}

func geminiModelInfo(m *genai.Model) models.ModelInfo {
	if m == nil {
		return models.ModelInfo{}
	}
	return models.ModelInfo{
		ID:                 NormalizeModelID(m.Name),
		DisplayName:        m.DisplayName,
		SupportsGeneration: slices.Contains(m.SupportedActions, "generateContent"),
	}
}
