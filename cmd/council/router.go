package main

import (
	"context"
	"fmt"

	"github.com/praetorian-inc/council/pkg/council"
)

// modelRouter implements council.Provider by dispatching each Generate
// call to the backend registered for that call's model string.
//
// Council drives every role through a single Provider, but each role
// can name a different provider backend in config. The router is the
// piece of CLI wiring that reconciles the two: one backend per model,
// built once at startup from the roles actually selected for this run.
type modelRouter struct {
	byModel map[string]council.Provider
}

func newModelRouter() *modelRouter {
	return &modelRouter{byModel: make(map[string]council.Provider)}
}

func (m *modelRouter) register(model string, provider council.Provider) {
	m.byModel[model] = provider
}

// Generate implements council.Provider. Per the Provider contract,
// remote failures are captured into GenerationResult.Error; an unknown
// model is itself a routing failure and is captured the same way rather
// than returned, so one misconfigured role does not abort the entire
// deliberation.
func (m *modelRouter) Generate(ctx context.Context, prompt, model string, sampling council.SamplingConfig) (council.GenerationResult, error) {
	provider, ok := m.byModel[model]
	if !ok {
		return council.GenerationResult{
			ModelUsed: model,
			Error:     fmt.Errorf("no provider backend registered for model %q", model),
		}, nil
	}

	return provider.Generate(ctx, prompt, model, sampling)
}
