package main

import (
	"fmt"

	"github.com/praetorian-inc/council/pkg/council"
	"github.com/praetorian-inc/council/pkg/results"
)

// printSummary prints a human-readable overview of a deliberation to
// stdout, mirroring the shape of the machine-readable output without
// duplicating its full content.
func printSummary(output *council.DeliberationOutput, verbose bool) {
	fmt.Println("\nCouncil Deliberation")
	fmt.Println("====================")
	fmt.Printf("Task: %s\n", output.Task)

	summary := results.ComputeSummary(output)
	fmt.Printf("\nRoles: %d succeeded, %d failed (of %d)\n", summary.Succeeded, summary.Failed, summary.TotalRoles)

	for _, r := range output.Results {
		status := "ok"
		if !r.Success() {
			status = "error: " + r.Error
		}
		fmt.Printf("  - %-20s [%s] %s\n", r.RoleName, r.Model, status)
		if verbose && r.Success() {
			fmt.Printf("      %s\n", truncate(r.Content, 200))
		}
	}

	for _, method := range summary.AggregationMethods {
		scores := output.AggregationScores[method]
		fmt.Printf("\nAggregation (%s):\n", method)
		for role, score := range scores.Scores {
			fmt.Printf("  - %-20s %.3f\n", role, score)
		}
	}

	if output.Synthesis != "" {
		fmt.Println("\nSynthesis:")
		fmt.Println(truncate(output.Synthesis, 2000))
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
