package council

import "fmt"

// Config controls a single Deliberate call. It mirrors
// original_source's CouncilConfig dataclass field-for-field.
type Config struct {
	OutputMode        OutputMode
	AggregationMethod AggregationMethod
	EnablePeerReview  bool
	Anonymize         bool
	ChairmanModel     string
	IncludeWeights    bool
	IncludeConfidence bool

	// AnonymizeSeed, if non-nil, makes anonymization's shuffle
	// deterministic. Nil means a fresh random shuffle per call.
	AnonymizeSeed *int64

	// JudgeConcurrency caps in-flight pairwise judging Provider calls.
	// Zero means the default of 16 (spec.md §5).
	JudgeConcurrency int

	// ProviderTimeoutSeconds bounds each Provider call, in seconds; zero
	// means the default of 120s (spec.md §5).
	ProviderTimeoutSeconds int
}

// DefaultConfig returns the spec's default CouncilConfig.
func DefaultConfig() Config {
	return Config{
		OutputMode:             OutputPerspectives,
		AggregationMethod:      MethodBorda,
		EnablePeerReview:       true,
		Anonymize:              false,
		IncludeWeights:         true,
		IncludeConfidence:      true,
		JudgeConcurrency:       16,
		ProviderTimeoutSeconds: 120,
	}
}

// Validate checks the cross-field invariants original_source's
// CouncilConfig.__post_init__ enforces.
func (c Config) Validate() error {
	switch c.OutputMode {
	case OutputSynthesis, OutputPerspectives, OutputBoth:
	default:
		return fmt.Errorf("%w: unknown output_mode %q", ErrConfiguration, c.OutputMode)
	}
	switch c.AggregationMethod {
	case MethodBorda, MethodBradleyTerry, MethodElo:
	default:
		return fmt.Errorf("%w: unknown aggregation_method %q", ErrConfiguration, c.AggregationMethod)
	}
	if c.JudgeConcurrency < 0 {
		return fmt.Errorf("%w: judge_concurrency must be >= 0", ErrConfiguration)
	}
	return nil
}

func (c Config) judgeConcurrency() int {
	if c.JudgeConcurrency <= 0 {
		return 16
	}
	return c.JudgeConcurrency
}
