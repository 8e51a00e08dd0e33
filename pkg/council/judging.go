package council

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// judgeSampling is fixed for every judging call regardless of the
// judging role's own configured sampling (spec.md §4.4: "judgment
// should be crisp").
var judgeSampling = SamplingConfig{Temperature: 0.3, MaxTokens: 500}

// pairwiseJob is one (judge, unordered pair) dispatch unit.
type pairwiseJob struct {
	judgeRole Role
	idA, idB  string
	contentA  string
	contentB  string
}

// pairwiseOutcome is the result of one dispatched job: the raw judgment
// text (for peer_review_texts) and, if parseable, a PairwiseRecord.
type pairwiseOutcome struct {
	judgeModel   string
	judgeRole    string
	idA, idB     string
	judgmentText string
	record       *PairwiseRecord
}

// buildPairwiseJobs builds every judge x unordered-pair job. Judges are
// every role in the registry (spec.md §4.6 step 5: "dispatch all judge x
// pair comparison prompts"), not only the roles whose own answer
// succeeded - a role can judge even if its own answer failed.
func buildPairwiseJobs(judges []Role, labeled []LabeledResult) []pairwiseJob {
	var jobs []pairwiseJob
	for _, judge := range judges {
		for i := 0; i < len(labeled); i++ {
			for j := i + 1; j < len(labeled); j++ {
				jobs = append(jobs, pairwiseJob{
					judgeRole: judge,
					idA:       labeled[i].Label,
					idB:       labeled[j].Label,
					contentA:  labeled[i].Result.Content,
					contentB:  labeled[j].Result.Content,
				})
			}
		}
	}
	return jobs
}

// dispatchPairwiseJudging runs every job concurrently, capped at
// concurrency in-flight Provider calls, and returns one outcome per job,
// in job order. An outcome with empty judgment text (provider failure)
// carries no record; an outcome whose text holds no parseable verdict
// keeps the text with a nil record, so the caller can still count it
// and add it to peer_review_texts.
func dispatchPairwiseJudging(ctx context.Context, task string, jobs []pairwiseJob, provider Provider, concurrency int) ([]pairwiseOutcome, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 16
	}

	outcomes := make([]pairwiseOutcome, len(jobs))
	sem := semaphore.NewWeighted(int64(concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			text := judgeOnce(gctx, task, job, provider)
			outcome := pairwiseOutcome{
				judgeModel:   job.judgeRole.Model,
				judgeRole:    job.judgeRole.Name,
				idA:          job.idA,
				idB:          job.idB,
				judgmentText: text,
			}
			if text != "" {
				if verdict, ok := parsePairwiseVerdict(text, job.idA, job.idB); ok {
					winner, margin := verdictToOutcome(verdict)
					outcome.record = &PairwiseRecord{
						JudgeModel: job.judgeRole.Model,
						ItemA:      job.idA,
						ItemB:      job.idB,
						Winner:     winner,
						Margin:     margin,
					}
				}
			}
			outcomes[i] = outcome
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("council: %w: %v", ErrPeerReview, err)
	}
	return outcomes, nil
}

// judgeOnce issues a single pairwise comparison prompt and returns the
// raw judgment text, or "" on any provider failure or a nil provider.
// When provider is the placeholder it makes no call and returns the
// fixed tie verdict for the pair (spec.md §8 scenario 1).
func judgeOnce(ctx context.Context, task string, job pairwiseJob, provider Provider) string {
	if provider == nil {
		return ""
	}
	if isPlaceholder(provider) {
		return fmt.Sprintf(placeholderVerdict, job.idA, job.idB)
	}
	prompt := pairwiseComparisonPrompt(task, job.idA, job.idB, job.contentA, job.contentB)
	result, err := provider.Generate(ctx, prompt, job.judgeRole.Model, judgeSampling)
	if err != nil || result.Error != nil {
		return ""
	}
	return result.Content
}

// verdictToOutcome maps a parsed PairwiseVerdict to (winner, margin) per
// spec.md §4.4.
func verdictToOutcome(v PairwiseVerdict) (Winner, Margin) {
	switch v {
	case VerdictAMuchBetter:
		return WinnerA, MarginMajor
	case VerdictABetter:
		return WinnerA, MarginMinor
	case VerdictTie:
		return WinnerTie, MarginTie
	case VerdictBBetter:
		return WinnerB, MarginMinor
	case VerdictBMuchBetter:
		return WinnerB, MarginMajor
	default:
		return WinnerTie, MarginTie
	}
}

// parsePairwiseVerdict regex-scans text for the exact bracketed token
// naming idA and idB; if none is found it falls back to a positional
// A/B scan using the generic markers. Returns false if nothing matches.
func parsePairwiseVerdict(text, idA, idB string) (PairwiseVerdict, bool) {
	specific := []struct {
		pattern string
		verdict PairwiseVerdict
	}{
		{`\[\[` + regexp.QuoteMeta(idA) + `≫` + regexp.QuoteMeta(idB) + `\]\]`, VerdictAMuchBetter},
		{`\[\[` + regexp.QuoteMeta(idA) + `>` + regexp.QuoteMeta(idB) + `\]\]`, VerdictABetter},
		{`\[\[` + regexp.QuoteMeta(idA) + `=` + regexp.QuoteMeta(idB) + `\]\]`, VerdictTie},
		{`\[\[` + regexp.QuoteMeta(idB) + `>` + regexp.QuoteMeta(idA) + `\]\]`, VerdictBBetter},
		{`\[\[` + regexp.QuoteMeta(idB) + `≫` + regexp.QuoteMeta(idA) + `\]\]`, VerdictBMuchBetter},
	}
	for _, s := range specific {
		if regexp.MustCompile(s.pattern).MatchString(text) {
			return s.verdict, true
		}
	}

	// Fallback: generic positional A/B markers.
	generic := []struct {
		pattern string
		verdict PairwiseVerdict
	}{
		{`\[\[A≫B\]\]`, VerdictAMuchBetter},
		{`\[\[A>B\]\]`, VerdictABetter},
		{`\[\[A=B\]\]`, VerdictTie},
		{`\[\[B>A\]\]`, VerdictBBetter},
		{`\[\[B≫A\]\]`, VerdictBMuchBetter},
	}
	for _, g := range generic {
		if regexp.MustCompile(g.pattern).MatchString(text) {
			return g.verdict, true
		}
	}

	return "", false
}

// sortedKeys returns the keys of a float64-valued map in sorted order.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
