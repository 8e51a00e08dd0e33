package results

import (
	"time"

	"github.com/praetorian-inc/council/pkg/council"
)

// RoleLine represents one role's contribution to a deliberation in a
// flattened, line-oriented format suitable for JSONL output.
//
// This mirrors DeliberationOutput.Results but adds the task and a
// timestamp so each line is self-describing once separated from its
// siblings.
type RoleLine struct {
	// Task is the question or prompt the council deliberated on.
	Task string `json:"task"`

	// RoleName identifies which role produced this result.
	RoleName string `json:"role_name"`

	// Model is the model string the role actually used.
	Model string `json:"model"`

	// Content is the role's generated answer.
	Content string `json:"content"`

	// TokensUsed is the token count reported by the provider, if any.
	TokensUsed int `json:"tokens_used,omitempty"`

	// LatencyMs is how long the role's generation took.
	LatencyMs int64 `json:"latency_ms,omitempty"`

	// Success indicates whether the role produced a usable result.
	Success bool `json:"success"`

	// Error contains the failure message if Success is false.
	Error string `json:"error,omitempty"`

	// Timestamp records when the line was written.
	Timestamp time.Time `json:"timestamp"`
}

// Summary provides high-level statistics about a deliberation.
type Summary struct {
	// TotalRoles is the number of roles that took part.
	TotalRoles int `json:"total_roles"`

	// Succeeded is the number of roles that returned a usable result.
	Succeeded int `json:"succeeded"`

	// Failed is the number of roles whose generation failed.
	Failed int `json:"failed"`

	// AggregationMethods lists which ranking methods produced scores.
	AggregationMethods []council.AggregationMethod `json:"aggregation_methods,omitempty"`

	// HasSynthesis reports whether a chairman synthesis is present.
	HasSynthesis bool `json:"has_synthesis"`
}

// ToRoleLines flattens a DeliberationOutput into per-role lines, all
// stamped with the same timestamp, for JSONL output.
func ToRoleLines(output *council.DeliberationOutput, timestamp time.Time) []RoleLine {
	lines := make([]RoleLine, 0, len(output.Results))

	for _, r := range output.Results {
		lines = append(lines, RoleLine{
			Task:       output.Task,
			RoleName:   r.RoleName,
			Model:      r.Model,
			Content:    r.Content,
			TokensUsed: r.TokensUsed,
			LatencyMs:  r.LatencyMs,
			Success:    r.Success(),
			Error:      r.Error,
			Timestamp:  timestamp,
		})
	}

	return lines
}

// ComputeSummary calculates summary statistics for a deliberation.
func ComputeSummary(output *council.DeliberationOutput) Summary {
	summary := Summary{
		TotalRoles:   len(output.Results),
		HasSynthesis: output.Synthesis != "",
	}

	for _, r := range output.Results {
		if r.Success() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	for method := range output.AggregationScores {
		summary.AggregationMethods = append(summary.AggregationMethods, method)
	}

	return summary
}
