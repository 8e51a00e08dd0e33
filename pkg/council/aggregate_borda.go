package council

// bordaWeights maps a record's margin to the weight its winner earns;
// ties earn 0.5 to both sides (spec.md §9 Open Question: the source
// splits the credit across both sides rather than once per record, and
// this implementation follows suit).
var bordaWeights = map[Margin]float64{
	MarginMajor: 3.0,
	MarginMinor: 1.0,
}

const bordaTieCredit = 0.5

// aggregateBorda computes the weighted Borda count over records. Scores
// contain exactly the keys that appear as either ItemA or ItemB across
// records, and the result is invariant under any permutation of
// records.
func aggregateBorda(records []PairwiseRecord) AggregationScores {
	scores := make(map[string]float64)
	for _, r := range records {
		if _, ok := scores[r.ItemA]; !ok {
			scores[r.ItemA] = 0
		}
		if _, ok := scores[r.ItemB]; !ok {
			scores[r.ItemB] = 0
		}

		switch r.Winner {
		case WinnerA:
			scores[r.ItemA] += bordaWeights[r.Margin]
		case WinnerB:
			scores[r.ItemB] += bordaWeights[r.Margin]
		case WinnerTie:
			scores[r.ItemA] += bordaTieCredit
			scores[r.ItemB] += bordaTieCredit
		}
	}
	return AggregationScores{Scores: scores}
}
