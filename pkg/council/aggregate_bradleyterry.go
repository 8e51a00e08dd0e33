package council

import "math"

// btMajorWinMultiplier is how many "wins" a major-margin record counts
// as when building the weighted win matrix (spec.md §4.5).
const btMajorWinMultiplier = 3.0

const (
	btMaxIterations = 100
	btTolerance     = 1e-6
	btFloor         = 1e-10
)

// buildWinMatrix builds the weighted win-count matrix: W[i][j] is the
// weighted number of times i beat j. Major wins count 3, minor wins
// count 1, ties add 0.5 in both directions.
func buildWinMatrix(records []PairwiseRecord) (map[string]map[string]float64, []string) {
	items := make(map[string]bool)
	for _, r := range records {
		items[r.ItemA] = true
		items[r.ItemB] = true
	}
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sortStrings(names)

	w := make(map[string]map[string]float64, len(names))
	for _, n := range names {
		w[n] = make(map[string]float64)
	}

	for _, r := range records {
		switch r.Winner {
		case WinnerA:
			weight := 1.0
			if r.Margin == MarginMajor {
				weight = btMajorWinMultiplier
			}
			w[r.ItemA][r.ItemB] += weight
		case WinnerB:
			weight := 1.0
			if r.Margin == MarginMajor {
				weight = btMajorWinMultiplier
			}
			w[r.ItemB][r.ItemA] += weight
		case WinnerTie:
			w[r.ItemA][r.ItemB] += 0.5
			w[r.ItemB][r.ItemA] += 0.5
		}
	}

	return w, names
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// aggregateBradleyTerry fits Bradley-Terry strengths by MM iterative
// scaling (spec.md §4.5). Scores are positive and renormalized to
// geometric mean 1 after every full pass; no confidence intervals.
func aggregateBradleyTerry(records []PairwiseRecord) AggregationScores {
	if len(records) == 0 {
		return AggregationScores{Scores: map[string]float64{}}
	}

	w, names := buildWinMatrix(records)

	// n[i][j] = total comparisons between i and j (both directions).
	n := make(map[string]map[string]float64, len(names))
	for _, i := range names {
		n[i] = make(map[string]float64)
		for _, j := range names {
			if i == j {
				continue
			}
			n[i][j] = w[i][j] + w[j][i]
		}
	}

	pi := make(map[string]float64, len(names))
	for _, name := range names {
		pi[name] = 1.0
	}

	totalWins := make(map[string]float64, len(names))
	for _, i := range names {
		sum := 0.0
		for _, j := range names {
			if i == j {
				continue
			}
			sum += w[i][j]
		}
		totalWins[i] = sum
	}

	for iter := 0; iter < btMaxIterations; iter++ {
		newPi := make(map[string]float64, len(names))
		maxChange := 0.0

		for _, i := range names {
			denom := 0.0
			for _, j := range names {
				if i == j || n[i][j] == 0 {
					continue
				}
				denom += n[i][j] / (pi[i] + pi[j])
			}
			var v float64
			if denom > 0 {
				v = totalWins[i] / denom
			}
			if v < btFloor {
				v = btFloor
			}
			newPi[i] = v
		}

		// Renormalize by geometric mean.
		logSum := 0.0
		for _, v := range newPi {
			logSum += math.Log(math.Max(v, btFloor))
		}
		geoMean := math.Exp(logSum / float64(len(names)))
		for _, i := range names {
			v := newPi[i] / geoMean
			if v < btFloor {
				v = btFloor
			}
			change := math.Abs(v - pi[i])
			if change > maxChange {
				maxChange = change
			}
			newPi[i] = v
		}

		pi = newPi
		if maxChange < btTolerance {
			break
		}
	}

	return AggregationScores{Scores: pi}
}

// bradleyTerryWinProbability returns P(i beats j) = pi_i / (pi_i + pi_j).
func bradleyTerryWinProbability(scores map[string]float64, i, j string) float64 {
	pi, pj := scores[i], scores[j]
	if pi+pj == 0 {
		return 0.5
	}
	return pi / (pi + pj)
}
