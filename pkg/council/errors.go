package council

import "errors"

// Sentinel error kinds per spec.md §7. Callers should use errors.Is
// against these; concrete errors are wrapped with additional context
// via fmt.Errorf("...: %w", ErrX).
var (
	// ErrConfiguration covers empty task, empty registry, invalid
	// sampling bounds, duplicate role names, cyclic dependencies, and
	// unknown aggregation_method/output_mode. It fails fast, before any
	// Provider work begins.
	ErrConfiguration = errors.New("council: configuration error")

	// ErrProvider names the provider error kind. Deliberate never
	// returns it and no code in this package wraps it: a provider
	// failure is recorded as the message text in RoleResult.Error.
	ErrProvider = errors.New("council: provider error")

	// ErrAggregation covers Elo numerical failure: computeMLEElo returns
	// it on a singular fit. bootstrapElo skips such iterations and
	// aggregateElo reports their count as "failed_bootstrap_iterations"
	// in the Elo metadata; the other methods are unaffected. The failure
	// is not logged, and the Bradley-Terry aggregator never returns it.
	ErrAggregation = errors.New("council: aggregation error")

	// ErrPeerReview covers dispatch-level failure in the judging phase;
	// in normal operation this reduces to per-comparison drops rather
	// than a hard failure.
	ErrPeerReview = errors.New("council: peer review error")
)
