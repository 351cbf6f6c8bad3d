package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
	"github.com/ternarybob/tickerbrief/internal/models"
)

// Invoker submits a prompt to ranked candidates until one answers with
// parseable structured output. Each candidate is tried at most once and a
// failure moves straight to the next one.
type Invoker struct {
	provider interfaces.ModelProvider
	timeout  time.Duration
	logger   arbor.ILogger
}

// NewInvoker creates an invoker; timeout bounds each candidate call
func NewInvoker(provider interfaces.ModelProvider, timeout time.Duration, logger arbor.ILogger) *Invoker {
	return &Invoker{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
	}
}

// Invoke returns the first valid output and the id that produced it,
// or (nil, models.NoModel) when every candidate failed.
func (i *Invoker) Invoke(ctx context.Context, prompt string, candidates []string) (*models.ModelOutput, string) {
	for n, id := range candidates {
		if ctx.Err() != nil {
			break
		}

		output, err := i.attempt(ctx, id, prompt)
		if err != nil {
			i.logger.Warn().
				Str("model", id).
				Int("attempt", n+1).
				Int("candidates", len(candidates)).
				Bool("rate_limited", IsRateLimitError(err)).
				Dur("retry_after", ExtractRetryDelay(err)).
				Err(err).
				Msg("Model candidate failed, trying next")
			continue
		}

		i.logger.Debug().Str("model", id).Int("attempt", n+1).Msg("Model candidate succeeded")
		return output, id
	}

	return nil, models.NoModel
}

func (i *Invoker) attempt(ctx context.Context, id string, prompt string) (*models.ModelOutput, error) {
	callCtx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	text, err := i.provider.Generate(callCtx, id, prompt)
	if err != nil {
		return nil, err
	}
	return ParseOutput(text)
}
