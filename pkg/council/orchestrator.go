package council

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Council is the top-level deliberation driver.
type Council struct {
	registry *Registry
	provider Provider
	config   Config
	log      *slog.Logger
}

// NewCouncil builds a Council over the given registry and provider. A
// nil provider is replaced with PlaceholderProvider (spec.md §4.6
// "placeholder mode"). Every call to any other provider runs under a
// context deadline of config.ProviderTimeoutSeconds (120s when zero).
// A nil logger falls back to slog.Default().
func NewCouncil(registry *Registry, provider Provider, config Config, logger *slog.Logger) *Council {
	if provider == nil {
		provider = NewPlaceholderProvider()
	}
	if !isPlaceholder(provider) {
		timeout := 120 * time.Second
		if config.ProviderTimeoutSeconds > 0 {
			timeout = time.Duration(config.ProviderTimeoutSeconds) * time.Second
		}
		inner := provider
		provider = ProviderFunc(func(ctx context.Context, prompt, model string, sampling SamplingConfig) (GenerationResult, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return inner.Generate(ctx, prompt, model, sampling)
		})
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Council{registry: registry, provider: provider, config: config, log: logger}
}

// Deliberate runs one full deliberation over task, emitting events to
// sink (NoopSink{} if nil). See spec.md §4.6 for the phase sequence and
// failure discipline.
func (c *Council) Deliberate(ctx context.Context, task string, sink StreamSink) (DeliberationOutput, error) {
	if sink == nil {
		sink = NoopSink{}
	}

	c.log.Debug("deliberation validating", "task_len", len(task))
	if err := c.validate(task); err != nil {
		return DeliberationOutput{}, err
	}

	order, err := topologicalOrder(c.registry.Roles())
	if err != nil {
		return DeliberationOutput{}, err
	}

	c.log.Info("deliberation starting", "roles", c.registry.Len())
	results, err := c.runRoles(ctx, task, order, sink)
	if err != nil {
		return DeliberationOutput{}, err
	}
	if ctx.Err() != nil {
		return DeliberationOutput{}, ctx.Err()
	}

	output := DeliberationOutput{
		Task:    task,
		Results: orderResultsByRegistry(results, c.registry.Names()),
		Metadata: map[string]any{
			"failed_count": countFailed(results),
		},
	}

	successful := successfulResults(output.Results)

	if c.config.EnablePeerReview && len(successful) >= 2 {
		c.log.Debug("deliberation reviewing", "successful", len(successful))
		if err := c.review(ctx, task, successful, &output); err != nil {
			return DeliberationOutput{}, err
		}
	}

	if c.config.OutputMode == OutputSynthesis || c.config.OutputMode == OutputBoth {
		c.log.Debug("deliberation synthesizing")
		c.synthesize(ctx, task, successful, &output)
	}

	c.log.Info("deliberation complete", "task_len", len(task))
	sink.Emit(newEvent(EventComplete))
	return output, nil
}

func (c *Council) validate(task string) error {
	if task == "" {
		return fmt.Errorf("%w: task must not be empty", ErrConfiguration)
	}
	if c.registry.Len() == 0 {
		return fmt.Errorf("%w: registry must not be empty", ErrConfiguration)
	}
	if err := c.config.Validate(); err != nil {
		return err
	}
	for _, role := range c.registry.Roles() {
		for _, dep := range role.DependsOn {
			if !c.registry.Has(dep) {
				return fmt.Errorf("%w: role %q depends_on unknown role %q", ErrConfiguration, role.Name, dep)
			}
		}
	}
	return nil
}

// runRoles executes every DAG level concurrently via errgroup, waiting
// for a level to finish (the join barrier) before starting the next.
func (c *Council) runRoles(ctx context.Context, task string, levels [][]Role, sink StreamSink) ([]RoleResult, error) {
	var all []RoleResult
	completed := make(map[string]RoleResult)

	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		levelResults := make([]RoleResult, len(level))

		for i, role := range level {
			i, role := i, role
			g.Go(func() error {
				sink.Emit(Event{Type: EventRoleStart, RoleName: role.Name, TimestampISO: nowISO()})

				deps := make(map[string]string, len(role.DependsOn))
				for _, d := range role.DependsOn {
					if r, ok := completed[d]; ok {
						deps[d] = r.Content
					}
				}

				result := c.executeRole(gctx, task, role, deps)
				levelResults[i] = result

				if result.Success() {
					sink.Emit(Event{Type: EventRoleComplete, RoleName: role.Name, Content: result.Content, Result: &result, TimestampISO: nowISO()})
				} else {
					sink.Emit(Event{Type: EventRoleError, RoleName: role.Name, Error: fmt.Errorf("%s", result.Error), TimestampISO: nowISO()})
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		for _, r := range levelResults {
			completed[r.RoleName] = r
			all = append(all, r)
		}
	}

	return all, nil
}

func (c *Council) executeRole(ctx context.Context, task string, role Role, deps map[string]string) RoleResult {
	prompt := buildRolePrompt(role, task, deps)
	start := time.Now()
	gen, err := c.provider.Generate(ctx, prompt, role.Model, role.Sampling)
	latency := time.Since(start).Milliseconds()

	result := RoleResult{
		RoleName:   role.Name,
		Model:      role.Model,
		TokensUsed: gen.TokensUsed,
		LatencyMs:  latency,
	}
	if gen.LatencyMs != 0 {
		result.LatencyMs = gen.LatencyMs
	}

	if err != nil {
		result.Error = err.Error()
		return result
	}
	if gen.Error != nil {
		result.Error = gen.Error.Error()
		return result
	}
	result.Content = gen.Content
	if gen.ModelUsed != "" {
		result.Model = gen.ModelUsed
	}
	return result
}

// review runs the peer-review phase: anonymize, dispatch pairwise
// judging, parse verdicts, de-anonymize, feed all three aggregators,
// and select the configured method into AggregateRankings.
func (c *Council) review(ctx context.Context, task string, successful []RoleResult, output *DeliberationOutput) error {
	var seed *int64
	if c.config.AnonymizeSeed != nil {
		seed = c.config.AnonymizeSeed
	}

	labeled, _ := anonymize(successful, c.config.Anonymize, seed)

	judges := c.registry.Roles()
	jobs := buildPairwiseJobs(judges, labeled)

	outcomes, err := dispatchPairwiseJudging(ctx, task, jobs, c.provider, c.config.judgeConcurrency())
	if err != nil {
		return err
	}

	labelToRole := make(map[string]string, len(labeled))
	for _, l := range labeled {
		labelToRole[l.Label] = l.Result.RoleName
	}

	peerReviewTexts := make(map[string][]string)
	var records []PairwiseRecord
	dropped := 0

	for _, o := range outcomes {
		if o.judgmentText == "" {
			continue
		}
		nameA, nameB := labelToRole[o.idA], labelToRole[o.idB]
		peerReviewTexts[o.judgeModel] = append(peerReviewTexts[o.judgeModel],
			fmt.Sprintf("Comparing %s vs %s: %s", nameA, nameB, o.judgmentText))

		if o.record == nil {
			dropped++
			continue
		}
		rec := *o.record
		rec.ItemA = nameA
		rec.ItemB = nameB
		records = append(records, rec)
	}
	if dropped > 0 {
		c.log.Warn("dropped unparseable judgments", "dropped", dropped, "expected", len(jobs))
	}

	scores := computeScoresFromPairwise(records, c.config.AnonymizeSeed)

	output.AggregationScores = scores
	output.PeerReviewTexts = peerReviewTexts
	if output.Metadata == nil {
		output.Metadata = make(map[string]any)
	}
	output.Metadata["dropped_judgments"] = dropped
	output.Metadata["expected_judgments"] = len(jobs)

	if primary, ok := scores[c.config.AggregationMethod]; ok {
		output.AggregateRankings = primary.Scores
	}

	return nil
}

// computeScoresFromPairwise runs all three aggregators over the same
// record set. It is unexported, so code outside this package cannot
// call it.
func computeScoresFromPairwise(records []PairwiseRecord, seed *int64) map[AggregationMethod]AggregationScores {
	return map[AggregationMethod]AggregationScores{
		MethodBorda:        aggregateBorda(records),
		MethodBradleyTerry: aggregateBradleyTerry(records),
		MethodElo:          aggregateElo(records, "", seed),
	}
}

// synthesize dispatches the chairman synthesis prompt. Failure never
// propagates: Output.Synthesis becomes "Synthesis failed: <msg>" per
// spec.md §4.6 step 6.
func (c *Council) synthesize(ctx context.Context, task string, successful []RoleResult, output *DeliberationOutput) {
	model := c.config.ChairmanModel
	if model == "" {
		model = "gpt-4"
	}

	stage1 := formatStage1Responses(successful)
	stage2 := formatStage2Reviews(output.PeerReviewTexts, sortedJudgeNames(output.PeerReviewTexts))
	prompt := chairmanSynthesisPrompt(task, stage1, stage2)

	gen, err := c.provider.Generate(ctx, prompt, model, SamplingConfig{Temperature: 0.7})
	if err != nil {
		output.Synthesis = fmt.Sprintf("Synthesis failed: %v", err)
		return
	}
	if gen.Error != nil {
		output.Synthesis = fmt.Sprintf("Synthesis failed: %v", gen.Error)
		return
	}
	output.Synthesis = gen.Content
}

func sortedJudgeNames(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func orderResultsByRegistry(results []RoleResult, order []string) []RoleResult {
	byName := make(map[string]RoleResult, len(results))
	for _, r := range results {
		byName[r.RoleName] = r
	}
	out := make([]RoleResult, 0, len(order))
	for _, name := range order {
		if r, ok := byName[name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func countFailed(results []RoleResult) int {
	n := 0
	for _, r := range results {
		if !r.Success() {
			n++
		}
	}
	return n
}

func successfulResults(results []RoleResult) []RoleResult {
	out := make([]RoleResult, 0, len(results))
	for _, r := range results {
		if r.Success() {
			out = append(out, r)
		}
	}
	return out
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
