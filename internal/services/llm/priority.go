package llm

import (
	"context"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerbrief/internal/common"
	"github.com/ternarybob/tickerbrief/internal/interfaces"
)

// Tier is the preference class of a model id. Higher ranks first.
type Tier int

const (
	TierUnranked Tier = iota
	TierFamily
	TierFast
	TierHigh
	TierPreview
)

func (t Tier) String() string {
	switch t {
	case TierPreview:
		return "preview"
	case TierHigh:
		return "high"
	case TierFast:
		return "fast"
	case TierFamily:
		return "family"
	default:
		return "unranked"
	}
}

// Policy is the naming convention used to rank one provider's catalog
type Policy struct {
	Family         string   // id prefix of the target model family
	PreviewMarkers []string // preview/experimental tier
	HighMarkers    []string // high-capability tier
	FastMarkers    []string // fast/economical tier
	Defaults       []string // used when the catalog is unavailable; high then fast
}

// GeminiPolicy ranks Gemini ids: preview/exp > pro > flash
func GeminiPolicy() Policy {
	return Policy{
		Family:         "gemini-",
		PreviewMarkers: []string{"preview", "exp"},
		HighMarkers:    []string{"pro"},
		FastMarkers:    []string{"flash"},
		Defaults:       []string{"gemini-2.5-pro", "gemini-2.5-flash"},
	}
}

// ClaudePolicy ranks Claude ids: preview/exp > opus, sonnet > haiku
func ClaudePolicy() Policy {
	return Policy{
		Family:         "claude-",
		PreviewMarkers: []string{"preview", "exp"},
		HighMarkers:    []string{"opus", "sonnet"},
		FastMarkers:    []string{"haiku"},
		Defaults:       []string{"claude-sonnet-4-5", "claude-haiku-4-5"},
	}
}

// PolicyFor returns the provider's policy with any [llm] overrides applied
func PolicyFor(provider common.LLMProvider, config common.LLMConfig) Policy {
	policy := GeminiPolicy()
	if provider == common.LLMProviderClaude {
		policy = ClaudePolicy()
	}

	if len(config.PreviewMarkers) > 0 {
		policy.PreviewMarkers = config.PreviewMarkers
	}
	if len(config.HighMarkers) > 0 {
		policy.HighMarkers = config.HighMarkers
	}
	if len(config.FastMarkers) > 0 {
		policy.FastMarkers = config.FastMarkers
	}
	if len(config.DefaultModels) > 0 {
		policy.Defaults = config.DefaultModels
	}
	return policy
}

// Classify assigns a tier from substring markers.
// Family ids without any marker rank below fast; ids outside the family are unranked.
func Classify(policy Policy, id string) Tier {
	name := strings.ToLower(NormalizeModelID(id))
	if !strings.HasPrefix(name, strings.ToLower(policy.Family)) {
		return TierUnranked
	}

	switch {
	case containsAny(name, policy.PreviewMarkers):
		return TierPreview
	case containsAny(name, policy.HighMarkers):
		return TierHigh
	case containsAny(name, policy.FastMarkers):
		return TierFast
	default:
		return TierFamily
	}
}

func containsAny(name string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(name, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// NormalizeModelID strips the "models/" resource prefix Gemini catalogs use
func NormalizeModelID(id string) string {
	return strings.TrimPrefix(strings.TrimSpace(id), "models/")
}

// Resolver produces the ordered candidate list for one run
type Resolver struct {
	provider interfaces.ModelProvider
	policy   Policy
	logger   arbor.ILogger
}

// NewResolver creates a resolver for provider ranked by policy
func NewResolver(provider interfaces.ModelProvider, policy Policy, logger arbor.ILogger) *Resolver {
	return &Resolver{
		provider: provider,
		policy:   policy,
		logger:   logger,
	}
}

// Resolve queries the catalog once and ranks generation-capable ids of the
// policy family. Failure or zero matches yields the policy defaults.
func (r *Resolver) Resolve(ctx context.Context) []string {
	catalog, err := r.provider.ListModels(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Str("provider", r.provider.Name()).Strs("defaults", r.policy.Defaults).Msg("Model catalog unavailable, using default candidates")
		return r.defaults()
	}

	type ranked struct {
		id   string
		tier Tier
	}
	seen := make(map[string]bool)
	candidates := make([]ranked, 0, len(catalog))
	for _, m := range catalog {
		if !m.SupportsGeneration {
			continue
		}
		id := NormalizeModelID(m.ID)
		if seen[id] {
			continue
		}
		tier := Classify(r.policy, id)
		if tier == TierUnranked {
			continue
		}
		seen[id] = true
		candidates = append(candidates, ranked{id: id, tier: tier})
	}

	if len(candidates) == 0 {
		r.logger.Warn().Str("provider", r.provider.Name()).Int("catalog_size", len(catalog)).Msg("No catalog model matched the policy, using default candidates")
		return r.defaults()
	}

	// Higher version strings sort first within a tier
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].tier != candidates[j].tier {
			return candidates[i].tier > candidates[j].tier
		}
		return candidates[i].id > candidates[j].id
	})

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}

	r.logger.Info().Str("provider", r.provider.Name()).Strs("candidates", ids).Msg("Model candidates resolved")
	return ids
}

func (r *Resolver) defaults() []string {
	return append([]string(nil), r.policy.Defaults...)
}
