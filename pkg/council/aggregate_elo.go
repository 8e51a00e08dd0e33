package council

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	eloInitRating  = 1000.0
	eloScale       = 400.0
	eloBase        = 10.0
	eloMajorWeight = 3
	eloBootstrapN  = 1000
	eloIRLSMaxIter = 50
	eloIRLSTol     = 1e-8
	eloIRLSRidge   = 1e-8 // numerical-stability-only damping, not a penalty term
)

// eloBattle is one expanded head-to-head record, after margin-weight
// duplication, ready to be folded into the design matrix.
type eloBattle struct {
	modelA, modelB string
	winner         string // "model_a", "model_b", or "tie"
}

// resultsToBattles expands records into battles, duplicating major-
// margin wins by eloMajorWeight (spec.md §4.5 baseline MLE step).
func resultsToBattles(records []PairwiseRecord) []eloBattle {
	var battles []eloBattle
	for _, r := range records {
		weight := 1
		if r.Margin == MarginMajor {
			weight = eloMajorWeight
		}
		winner := "tie"
		switch r.Winner {
		case WinnerA:
			winner = "model_a"
		case WinnerB:
			winner = "model_b"
		}
		for i := 0; i < weight; i++ {
			battles = append(battles, eloBattle{modelA: r.ItemA, modelB: r.ItemB, winner: winner})
		}
	}
	return battles
}

// computeMLEElo fits Elo ratings via logistic regression with no
// intercept and no regularization over the battle-duplicated, tie-split
// design matrix (spec.md §4.5). Returns ErrAggregation on a singular
// fit.
func computeMLEElo(records []PairwiseRecord, referenceItem string) (map[string]float64, error) {
	battles := resultsToBattles(records)
	if len(battles) == 0 {
		return map[string]float64{}, nil
	}

	itemSet := make(map[string]bool)
	for _, b := range battles {
		itemSet[b.modelA] = true
		itemSet[b.modelB] = true
	}
	models := make([]string, 0, len(itemSet))
	for m := range itemSet {
		models = append(models, m)
	}
	sort.Strings(models)
	idx := make(map[string]int, len(models))
	for i, m := range models {
		idx[m] = i
	}

	numBattles := len(battles)
	doubled := make([]eloBattle, 0, numBattles*2)
	doubled = append(doubled, battles...)
	doubled = append(doubled, battles...)

	p := len(models)
	n := len(doubled)
	lnBase := math.Log(eloBase)

	X := make([][]float64, n)
	Y := make([]float64, n)
	for i, b := range doubled {
		row := make([]float64, p)
		row[idx[b.modelA]] = lnBase
		row[idx[b.modelB]] = -lnBase
		X[i] = row

		firstHalf := i < numBattles
		switch {
		case b.winner == "model_a":
			Y[i] = 1.0
		case b.winner == "tie" && firstHalf:
			Y[i] = 1.0
		default:
			Y[i] = 0.0
		}
	}

	if !hasTwoOutcomes(Y) {
		scores := make(map[string]float64, p)
		for _, m := range models {
			scores[m] = eloInitRating
		}
		return scores, nil
	}

	beta, err := fitLogisticIRLS(X, Y, p)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, p)
	for i, m := range models {
		scores[m] = eloScale*beta[i] + eloInitRating
	}

	ref := referenceItem
	if ref == "" {
		ref = models[0]
	}
	refScore, ok := scores[ref]
	if ok {
		shift := eloInitRating - refScore
		for m := range scores {
			scores[m] += shift
		}
	}

	return scores, nil
}

func hasTwoOutcomes(y []float64) bool {
	seenZero, seenOne := false, false
	for _, v := range y {
		if v == 0 {
			seenZero = true
		} else {
			seenOne = true
		}
		if seenZero && seenOne {
			return true
		}
	}
	return false
}

// fitLogisticIRLS fits a no-intercept logistic regression by iteratively
// reweighted least squares. A small diagonal damping term is added to
// the Hessian purely to keep the linear solve well-posed near-
// perfectly-separable data; it is not a regularization penalty on the
// objective.
func fitLogisticIRLS(X [][]float64, y []float64, p int) ([]float64, error) {
	beta := make([]float64, p)
	n := len(X)

	for iter := 0; iter < eloIRLSMaxIter; iter++ {
		grad := make([]float64, p)
		hessian := make([][]float64, p)
		for i := range hessian {
			hessian[i] = make([]float64, p)
		}

		for i := 0; i < n; i++ {
			eta := dot(X[i], beta)
			mu := sigmoid(eta)
			w := mu * (1 - mu)
			residual := y[i] - mu
			for a := 0; a < p; a++ {
				if X[i][a] == 0 {
					continue
				}
				grad[a] += X[i][a] * residual
				for b := 0; b < p; b++ {
					if X[i][b] == 0 {
						continue
					}
					hessian[a][b] += X[i][a] * w * X[i][b]
				}
			}
		}

		for a := 0; a < p; a++ {
			hessian[a][a] += eloIRLSRidge
		}

		delta, ok := solveLinearSystem(hessian, grad)
		if !ok {
			return nil, fmt.Errorf("%w: singular Hessian during Elo MLE fit", ErrAggregation)
		}

		maxAbs := 0.0
		for a := 0; a < p; a++ {
			beta[a] += delta[a]
			if math.Abs(delta[a]) > maxAbs {
				maxAbs = math.Abs(delta[a])
			}
		}
		if maxAbs < eloIRLSTol {
			break
		}
	}

	return beta, nil
}

func dot(a []float64, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1 / (1 + z)
	}
	z := math.Exp(x)
	return z / (1 + z)
}

// solveLinearSystem solves A x = b via Gaussian elimination with partial
// pivoting. Returns ok=false if A is numerically singular.
func solveLinearSystem(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	m := make([][]float64, n)
	for i := range a {
		row := make([]float64, n+1)
		copy(row, a[i])
		row[n] = b[i]
		m[i] = row
	}

	for col := 0; col < n; col++ {
		pivot := col
		maxVal := math.Abs(m[col][col])
		for r := col + 1; r < n; r++ {
			if v := math.Abs(m[r][col]); v > maxVal {
				pivot, maxVal = r, v
			}
		}
		if maxVal < 1e-14 {
			return nil, false
		}
		m[col], m[pivot] = m[pivot], m[col]

		for r := col + 1; r < n; r++ {
			factor := m[r][col] / m[col][col]
			for c := col; c <= n; c++ {
				m[r][c] -= factor * m[col][c]
			}
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for c := row + 1; c < n; c++ {
			sum -= m[row][c] * x[c]
		}
		x[row] = sum / m[row][row]
	}
	return x, true
}

// EloRating is a single participant's bootstrap Elo summary.
type EloRating struct {
	ItemID      string
	Rating      float64
	LowerCI     float64
	UpperCI     float64
	GamesPlayed int
}

// bootstrapElo resamples records with replacement numRounds times,
// recomputing MLE Elo per sample, and reports the median and [2.5,
// 97.5] percentiles per participant (spec.md §4.5). If len(records) <
// 100, resampling is skipped and the full record set is reused every
// round - intentionally redundant, matching the source's behavior
// (spec.md §9 Open Question).
func bootstrapElo(records []PairwiseRecord, numRounds int, referenceItem string, seed *int64) (map[string]EloRating, int) {
	if len(records) < 2 {
		return map[string]EloRating{}, 0
	}
	if numRounds <= 0 {
		numRounds = eloBootstrapN
	}

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewSource(*seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	gamesPlayed := make(map[string]int)
	for _, r := range records {
		gamesPlayed[r.ItemA]++
		gamesPlayed[r.ItemB]++
	}

	perItem := make(map[string][]float64)
	failedIterations := 0

	for round := 0; round < numRounds; round++ {
		var sample []PairwiseRecord
		if len(records) < 100 {
			sample = records
		} else {
			sample = make([]PairwiseRecord, len(records))
			for i := range sample {
				sample[i] = records[rng.Intn(len(records))]
			}
		}

		scores, err := computeMLEElo(sample, referenceItem)
		if err != nil {
			failedIterations++
			continue
		}
		for item, score := range scores {
			perItem[item] = append(perItem[item], score)
		}
	}

	out := make(map[string]EloRating, len(perItem))
	for item, values := range perItem {
		sort.Float64s(values)
		out[item] = EloRating{
			ItemID:      item,
			Rating:      percentile(values, 50),
			LowerCI:     percentile(values, 2.5),
			UpperCI:     percentile(values, 97.5),
			GamesPlayed: gamesPlayed[item],
		}
	}
	return out, failedIterations
}

// percentile returns the linear-interpolated percentile p (0-100) of a
// pre-sorted slice of values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100.0) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// aggregateElo runs the full Elo pipeline (MLE + bootstrap) and packages
// it as an AggregationScores, with confidence_intervals populated (the
// only aggregator that does).
func aggregateElo(records []PairwiseRecord, referenceItem string, seed *int64) AggregationScores {
	if len(records) == 0 {
		return AggregationScores{Scores: map[string]float64{}}
	}

	ratings, failed := bootstrapElo(records, eloBootstrapN, referenceItem, seed)

	scores := make(map[string]float64, len(ratings))
	cis := make(map[string][2]float64, len(ratings))
	for item, r := range ratings {
		scores[item] = r.Rating
		cis[item] = [2]float64{r.LowerCI, r.UpperCI}
	}

	return AggregationScores{
		Scores:              scores,
		ConfidenceIntervals: cis,
		Metadata:            map[string]any{"failed_bootstrap_iterations": failed},
	}
}

// calculateSeparability returns the fraction of participant pairs whose
// 95% CIs do not overlap.
func calculateSeparability(ratings map[string]EloRating) float64 {
	if len(ratings) < 2 {
		return 0.0
	}
	items := make([]string, 0, len(ratings))
	for k := range ratings {
		items = append(items, k)
	}
	sort.Strings(items)

	total, separable := 0, 0
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			a, b := ratings[items[i]], ratings[items[j]]
			total++
			if a.UpperCI < b.LowerCI || b.UpperCI < a.LowerCI {
				separable++
			}
		}
	}
	if total == 0 {
		return 0.0
	}
	return float64(separable) / float64(total)
}

// calculatePolarization returns max(rating) - min(rating) across
// participants.
func calculatePolarization(ratings map[string]EloRating) float64 {
	if len(ratings) == 0 {
		return 0.0
	}
	first := true
	var lo, hi float64
	for _, r := range ratings {
		if first {
			lo, hi = r.Rating, r.Rating
			first = false
			continue
		}
		if r.Rating < lo {
			lo = r.Rating
		}
		if r.Rating > hi {
			hi = r.Rating
		}
	}
	return hi - lo
}

// predictWinRate returns the pairwise win-probability table implied by
// a set of Elo ratings.
func predictWinRate(ratings map[string]EloRating) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(ratings))
	for a, ra := range ratings {
		out[a] = make(map[string]float64, len(ratings))
		for b, rb := range ratings {
			if a == b {
				out[a][b] = 0.5
				continue
			}
			out[a][b] = 1.0 / (1.0 + math.Pow(eloBase, (rb.Rating-ra.Rating)/eloScale))
		}
	}
	return out
}
