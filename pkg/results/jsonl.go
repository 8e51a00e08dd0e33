package results

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/praetorian-inc/council/pkg/council"
)

// WriteJSON writes the complete deliberation output as a single
// pretty-printed JSON document, including synthesis, aggregation scores,
// and confidence intervals.
func WriteJSON(outputPath string, output *council.DeliberationOutput) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("failed to encode deliberation output: %w", err)
	}

	return nil
}

// WriteJSONL writes one role result per line.
//
// Each line is a complete JSON object representing a single role's
// contribution to the deliberation. This format streams well and is
// easy to process with line-based tools, but it drops the
// deliberation-level fields (synthesis, aggregate rankings) that only
// make sense once - use WriteJSON when those are needed.
//
// Example output:
//
//	{"task":"...","role_name":"optimist","model":"gpt-4","content":"...","success":true,"timestamp":"2025-12-30T10:00:00Z"}
//	{"task":"...","role_name":"skeptic","model":"claude-3-opus","content":"...","success":true,"timestamp":"2025-12-30T10:00:00Z"}
func WriteJSONL(outputPath string, output *council.DeliberationOutput) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	lines := ToRoleLines(output, time.Now().UTC())

	encoder := json.NewEncoder(file)
	for _, line := range lines {
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	}

	return nil
}
