package council

import (
	"context"
	"fmt"
)

// PlaceholderProvider is the deterministic, canned-content fallback used
// when no real Provider is configured (spec.md §4.6 "placeholder mode").
// It never errors and never calls any network.
type PlaceholderProvider struct{}

// NewPlaceholderProvider returns a PlaceholderProvider.
func NewPlaceholderProvider() *PlaceholderProvider {
	return &PlaceholderProvider{}
}

// Generate returns canned content deterministic in prompt/model, with no
// latency and no tokens charged.
func (p *PlaceholderProvider) Generate(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
	return GenerationResult{
		Content:    fmt.Sprintf("[placeholder] response to: %s", prompt),
		ModelUsed:  model,
		TokensUsed: 0,
		LatencyMs:  0,
	}, nil
}

// placeholderVerdict is the canned verdict every placeholder judge call
// returns: always a tie. Used by judging.go when the configured Provider
// is a PlaceholderProvider, matching spec.md §8 scenario 1 ("all judges
// produce canned verdict A1=A2").
const placeholderVerdict = "[[%s=%s]]"

// isPlaceholder reports whether p is a *PlaceholderProvider.
func isPlaceholder(p Provider) bool {
	_, ok := p.(*PlaceholderProvider)
	return ok
}
