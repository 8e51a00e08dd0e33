package council

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()
	reg := NewRegistry()
	for _, n := range names {
		require.NoError(t, reg.Add(NewRole(n, "You are "+n+".", n+"-model")))
	}
	return reg
}

// Scenario 1: two roles, no provider, perspectives mode.
func TestDeliberate_Scenario1_PlaceholderModePerspectives(t *testing.T) {
	reg := newTestRegistry(t, "Alice", "Bob")
	cfg := DefaultConfig()
	cfg.Anonymize = true

	c := NewCouncil(reg, nil, cfg, nil)
	out, err := c.Deliberate(context.Background(), "hi", nil)
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	for _, r := range out.Results {
		assert.True(t, r.Success())
	}
	assert.Empty(t, out.Synthesis)

	borda := out.AggregationScores[MethodBorda].Scores
	require.Len(t, borda, 2)
	for _, v := range borda {
		assert.InDelta(t, 0.5, v, 1e-9)
	}
}

// Scenario 2: three roles, mocked provider with deterministic verdicts.
func TestDeliberate_Scenario2_DeterministicVerdicts(t *testing.T) {
	reg := newTestRegistry(t, "role1", "role2", "role3")
	cfg := DefaultConfig()
	cfg.Anonymize = false

	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		if sampling.MaxTokens == 500 {
			// Judging call: decide verdict by which two role names appear.
			hasRole := func(name string) bool { return containsSubstring(prompt, name) }
			switch {
			case hasRole("role1") && hasRole("role2"):
				return verdictFor(prompt, "role1", "role2", "≫"), nil
			case hasRole("role1") && hasRole("role3"):
				return verdictFor(prompt, "role1", "role3", ">"), nil
			case hasRole("role2") && hasRole("role3"):
				return verdictFor(prompt, "role2", "role3", ">"), nil
			}
			return GenerationResult{Content: ""}, nil
		}
		return GenerationResult{Content: "answer from " + model}, nil
	})

	c := NewCouncil(reg, provider, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)

	borda := out.AggregationScores[MethodBorda].Scores
	assert.InDelta(t, 4.0, borda["role1"], 1e-9)
	assert.InDelta(t, 1.0, borda["role2"], 1e-9)
	assert.InDelta(t, 0.0, borda["role3"], 1e-9)

	bt := out.AggregationScores[MethodBradleyTerry].Scores
	assert.Greater(t, bt["role1"], bt["role2"])
	assert.Greater(t, bt["role2"], bt["role3"])
}

// Scenario 4: malformed judgment drops silently and is counted.
func TestDeliberate_Scenario4_MalformedJudgmentDropped(t *testing.T) {
	reg := newTestRegistry(t, "alice", "bob")
	cfg := DefaultConfig()

	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		if sampling.MaxTokens == 500 {
			return GenerationResult{Content: "I think both are fine"}, nil
		}
		return GenerationResult{Content: "answer"}, nil
	})

	c := NewCouncil(reg, provider, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)

	// 2 judges (alice, bob) x 1 unordered pair = 2 unparseable judgments.
	assert.Equal(t, 2, out.Metadata["dropped_judgments"])
	assert.Empty(t, out.AggregationScores[MethodBorda].Scores)
}

// Scenario 5: synthesis mode "both" with a chairman model produces
// non-empty synthesis alongside role results.
func TestDeliberate_Scenario5_SynthesisBothMode(t *testing.T) {
	reg := newTestRegistry(t, "alice", "bob")
	cfg := DefaultConfig()
	cfg.OutputMode = OutputBoth
	cfg.ChairmanModel = "x"

	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		if model == "x" {
			return GenerationResult{Content: "final synthesized answer"}, nil
		}
		if sampling.MaxTokens == 500 {
			return GenerationResult{Content: "[[A1=A2]]"}, nil
		}
		return GenerationResult{Content: "answer from " + model}, nil
	})

	c := NewCouncil(reg, provider, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)

	assert.Equal(t, "final synthesized answer", out.Synthesis)
	require.Len(t, out.Results, 2)
}

func TestDeliberate_SynthesisFailureDoesNotPropagate(t *testing.T) {
	reg := newTestRegistry(t, "alice")
	cfg := DefaultConfig()
	cfg.OutputMode = OutputSynthesis
	cfg.EnablePeerReview = false

	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		if model == "gpt-4" {
			return GenerationResult{}, fmt.Errorf("upstream unavailable")
		}
		return GenerationResult{Content: "answer"}, nil
	})

	c := NewCouncil(reg, provider, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.Contains(t, out.Synthesis, "Synthesis failed")
}

func TestDeliberate_AllRolesFailedReturnsEmptyAggregation(t *testing.T) {
	reg := newTestRegistry(t, "alice", "bob")
	cfg := DefaultConfig()

	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		return GenerationResult{}, fmt.Errorf("down")
	})

	c := NewCouncil(reg, provider, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)
	for _, r := range out.Results {
		assert.False(t, r.Success())
	}
	assert.Empty(t, out.AggregateRankings)
	assert.Empty(t, out.Synthesis)
}

func TestDeliberate_SingleSuccessfulResultSkipsPeerReview(t *testing.T) {
	reg := newTestRegistry(t, "solo")
	cfg := DefaultConfig()

	c := NewCouncil(reg, nil, cfg, nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)
	assert.Empty(t, out.AggregateRankings)
}

func TestDeliberate_EmptyTaskIsConfigurationError(t *testing.T) {
	reg := newTestRegistry(t, "alice")
	c := NewCouncil(reg, nil, DefaultConfig(), nil)
	_, err := c.Deliberate(context.Background(), "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDeliberate_EmptyRegistryIsConfigurationError(t *testing.T) {
	reg := NewRegistry()
	c := NewCouncil(reg, nil, DefaultConfig(), nil)
	_, err := c.Deliberate(context.Background(), "task", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestDeliberate_ResultOrderMatchesRegistryOrder(t *testing.T) {
	reg := newTestRegistry(t, "zed", "alpha", "mid")
	c := NewCouncil(reg, nil, DefaultConfig(), nil)
	out, err := c.Deliberate(context.Background(), "task", nil)
	require.NoError(t, err)

	names := make([]string, len(out.Results))
	for i, r := range out.Results {
		names[i] = r.RoleName
	}
	assert.Equal(t, []string{"zed", "alpha", "mid"}, names)
}

func containsSubstring(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func verdictFor(prompt, first, second, sym string) GenerationResult {
	// Determine which of first/second is labeled A vs B by position in
	// the prompt (whichever name appears first is "Response <id_a>").
	idxFirst := indexOf(prompt, first)
	idxSecond := indexOf(prompt, second)
	if idxFirst < idxSecond {
		return GenerationResult{Content: fmt.Sprintf("[[A%sB]]", sym)}
	}
	return GenerationResult{Content: fmt.Sprintf("[[B%sA]]", sym)}
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
