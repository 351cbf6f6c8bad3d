package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/tickerbrief/internal/models"
)

// fakeProvider answers from fixed tables and records every Generate call
type fakeProvider struct {
	mu         sync.Mutex
	catalog    []models.ModelInfo
	catalogErr error
	responses  map[string]string
	errors     map[string]error
	calls      []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ListModels(ctx context.Context) ([]models.ModelInfo, error) {
	return f.catalog, f.catalogErr
}

func (f *fakeProvider) Generate(ctx context.Context, modelID string, prompt string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, modelID)
	f.mu.Unlock()

	if err, ok := f.errors[modelID]; ok {
		return "", err
	}
	if text, ok := f.responses[modelID]; ok {
		return text, nil
	}
	return "", fmt.Errorf("model %s not found", modelID)
}

func (f *fakeProvider) Close() error { return nil }
