package council

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePairwiseVerdict_IDSpecificPattern(t *testing.T) {
	v, ok := parsePairwiseVerdict("I conclude [[A3≫A1]] because X is clearer.", "A3", "A1")
	require.True(t, ok)
	assert.Equal(t, VerdictAMuchBetter, v)
}

func TestParsePairwiseVerdict_GenericFallback(t *testing.T) {
	v, ok := parsePairwiseVerdict("After review: [[B>A]]", "A3", "A1")
	require.True(t, ok)
	assert.Equal(t, VerdictBBetter, v)
}

func TestParsePairwiseVerdict_Unparseable(t *testing.T) {
	_, ok := parsePairwiseVerdict("I think both are fine", "A1", "A2")
	assert.False(t, ok)
}

func TestVerdictToOutcome_AllFiveLevels(t *testing.T) {
	cases := []struct {
		verdict PairwiseVerdict
		winner  Winner
		margin  Margin
	}{
		{VerdictAMuchBetter, WinnerA, MarginMajor},
		{VerdictABetter, WinnerA, MarginMinor},
		{VerdictTie, WinnerTie, MarginTie},
		{VerdictBBetter, WinnerB, MarginMinor},
		{VerdictBMuchBetter, WinnerB, MarginMajor},
	}
	for _, c := range cases {
		w, m := verdictToOutcome(c.verdict)
		assert.Equal(t, c.winner, w)
		assert.Equal(t, c.margin, m)
	}
}

func TestBuildPairwiseJobs_CoversEveryJudgeAndUnorderedPair(t *testing.T) {
	judges := []Role{NewRole("j1", "p", "m"), NewRole("j2", "p", "m")}
	labeled := []LabeledResult{
		{Label: "A1", Result: RoleResult{RoleName: "alice"}},
		{Label: "A2", Result: RoleResult{RoleName: "bob"}},
		{Label: "A3", Result: RoleResult{RoleName: "carol"}},
	}
	jobs := buildPairwiseJobs(judges, labeled)
	// 2 judges * C(3,2) = 2*3 = 6
	assert.Len(t, jobs, 6)
}

func TestDispatchPairwiseJudging_UnparseableYieldsNoRecord(t *testing.T) {
	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		return GenerationResult{Content: "I think both are fine"}, nil
	})
	judges := []Role{NewRole("j1", "p", "m")}
	labeled := []LabeledResult{
		{Label: "A1", Result: RoleResult{RoleName: "alice"}},
		{Label: "A2", Result: RoleResult{RoleName: "bob"}},
	}
	jobs := buildPairwiseJobs(judges, labeled)

	outcomes, err := dispatchPairwiseJudging(context.Background(), "task", jobs, provider, 4)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Nil(t, outcomes[0].record)
	assert.NotEmpty(t, outcomes[0].judgmentText)
}

func TestDispatchPairwiseJudging_ParseableYieldsRecord(t *testing.T) {
	provider := ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
		return GenerationResult{Content: fmt.Sprintf("[[%s≫%s]]", "A1", "A2")}, nil
	})
	judges := []Role{NewRole("j1", "p", "m")}
	labeled := []LabeledResult{
		{Label: "A1", Result: RoleResult{RoleName: "alice"}},
		{Label: "A2", Result: RoleResult{RoleName: "bob"}},
	}
	jobs := buildPairwiseJobs(judges, labeled)

	outcomes, err := dispatchPairwiseJudging(context.Background(), "task", jobs, provider, 4)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	require.NotNil(t, outcomes[0].record)
	assert.Equal(t, WinnerA, outcomes[0].record.Winner)
	assert.Equal(t, MarginMajor, outcomes[0].record.Margin)
}

func TestJudgeOnce_PlaceholderReturnsCannedTie(t *testing.T) {
	job := pairwiseJob{judgeRole: NewRole("j", "p", "m"), idA: "A1", idB: "A2"}
	text := judgeOnce(context.Background(), "task", job, NewPlaceholderProvider())
	v, ok := parsePairwiseVerdict(text, "A1", "A2")
	require.True(t, ok)
	assert.Equal(t, VerdictTie, v)
}
