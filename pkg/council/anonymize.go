package council

import (
	"fmt"
	"math/rand"
)

// AnonymousLabel is an opaque string assigned bijectively to successful
// RoleResults for the lifetime of a single deliberation.
type AnonymousLabel = string

// LabeledResult pairs a RoleResult with its anonymous label.
type LabeledResult struct {
	Label  AnonymousLabel
	Result RoleResult
}

// anonymize assigns labels "A1".."An" to results in their current order
// (the "A" prefix is fixed; there is no prefix parameter), disambiguating duplicate role names with a
// "_N" suffix before labeling, then optionally shuffles the (label,
// result) pairing with the given seed. It returns the labeled results in
// their final (possibly shuffled) order plus the label->result bijection.
//
// When shuffle is false, labels are assigned in input order and no
// randomness is used, so the function is deterministic regardless of
// seed.
func anonymize(results []RoleResult, shuffle bool, seed *int64) ([]LabeledResult, map[AnonymousLabel]RoleResult) {
	labeled := make([]LabeledResult, len(results))
	bijection := make(map[AnonymousLabel]RoleResult, len(results))

	seen := make(map[string]int)
	for i, r := range results {
		label := fmt.Sprintf("A%d", i+1)
		disambiguated := r
		if n := seen[r.RoleName]; n > 0 {
			disambiguated.RoleName = fmt.Sprintf("%s_%d", r.RoleName, n+1)
		}
		seen[r.RoleName]++
		labeled[i] = LabeledResult{Label: label, Result: disambiguated}
		bijection[label] = disambiguated
	}

	if shuffle {
		var rng *rand.Rand
		if seed != nil {
			rng = rand.New(rand.NewSource(*seed))
		} else {
			rng = rand.New(rand.NewSource(rand.Int63()))
		}
		rng.Shuffle(len(labeled), func(i, j int) {
			labeled[i], labeled[j] = labeled[j], labeled[i]
		})
	}

	return labeled, bijection
}

// deAnonymize reverses a label->result bijection back into a plain
// RoleResult slice. Order is not meaningful; callers that need order
// should carry it alongside the bijection (e.g. via LabeledResult).
func deAnonymize(bijection map[AnonymousLabel]RoleResult) []RoleResult {
	out := make([]RoleResult, 0, len(bijection))
	for _, r := range bijection {
		out = append(out, r)
	}
	return out
}
