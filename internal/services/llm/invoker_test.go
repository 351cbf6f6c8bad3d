package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/models"
)

const validResponse = "```json\n{\"industry\": {\"moat\": \"scale\"}}\n```"

func TestInvoke_FallsThroughToFirstValidCandidate(t *testing.T) {
	provider := &fakeProvider{
		errors: map[string]error{
			"model-a": errors.New("Error 429, Message: Please retry in 30s., Status: RESOURCE_EXHAUSTED"),
		},
		responses: map[string]string{
			"model-b": "Sorry, I can only answer in prose.",
			"model-c": validResponse,
			"model-d": validResponse,
		},
	}

	output, used := NewInvoker(provider, time.Second, arbor.NewLogger()).
		Invoke(context.Background(), "prompt", []string{"model-a", "model-b", "model-c", "model-d"})

	require.NotNil(t, output)
	assert.Equal(t, "model-c", used)
	assert.Equal(t, "scale", output.Industry.Value.Moat)
	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, provider.calls, "each candidate at most once, stop at first success")
}

func TestInvoke_WrongShapeReplyMovesToNextCandidate(t *testing.T) {
	provider := &fakeProvider{
		responses: map[string]string{
			"model-a": `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`,
			"model-b": "{}",
			"model-c": validResponse,
		},
	}

	output, used := NewInvoker(provider, time.Second, arbor.NewLogger()).
		Invoke(context.Background(), "prompt", []string{"model-a", "model-b", "model-c"})

	require.NotNil(t, output)
	assert.Equal(t, "model-c", used)
	assert.True(t, output.Industry.IsValid())
	assert.Equal(t, []string{"model-a", "model-b", "model-c"}, provider.calls)
}

func TestInvoke_AllCandidatesFail(t *testing.T) {
	provider := &fakeProvider{
		errors:    map[string]error{"model-a": errors.New("boom")},
		responses: map[string]string{"model-b": "[]"},
	}

	output, used := NewInvoker(provider, time.Second, arbor.NewLogger()).
		Invoke(context.Background(), "prompt", []string{"model-a", "model-b"})

	assert.Nil(t, output)
	assert.Equal(t, models.NoModel, used)
	assert.Equal(t, []string{"model-a", "model-b"}, provider.calls)
}

func TestInvoke_EmptyCandidates(t *testing.T) {
	provider := &fakeProvider{}
	output, used := NewInvoker(provider, time.Second, arbor.NewLogger()).Invoke(context.Background(), "prompt", nil)

	assert.Nil(t, output)
	assert.Equal(t, models.NoModel, used)
	assert.Empty(t, provider.calls)
}

func TestInvoke_StopsOnCancelledContext(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{"model-a": validResponse}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	output, used := NewInvoker(provider, time.Second, arbor.NewLogger()).Invoke(ctx, "prompt", []string{"model-a"})

	assert.Nil(t, output)
	assert.Equal(t, models.NoModel, used)
	assert.Empty(t, provider.calls)
}

// slowProvider blocks until the per-call deadline expires
type slowProvider struct {
	fakeProvider
}

func (s *slowProvider) Generate(ctx context.Context, modelID string, prompt string) (string, error) {
	s.fakeProvider.calls = append(s.fakeProvider.calls, modelID)
	if modelID == "fast" {
		return validResponse, nil
	}
	<-ctx.Done()
	return "", ctx.Err()
}

func TestInvoke_TimeoutMovesToNextCandidate(t *testing.T) {
	provider := &slowProvider{}

	output, used := NewInvoker(provider, 20*time.Millisecond, arbor.NewLogger()).
		Invoke(context.Background(), "prompt", []string{"slow", "fast"})

	require.NotNil(t, output)
	assert.Equal(t, "fast", used)
	assert.Equal(t, []string{"slow", "fast"}, provider.calls)
}
