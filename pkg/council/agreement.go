package council

import (
	"sort"
)

// AgreementMetrics summarizes how closely two judges' verdicts align
// over their common comparisons.
type AgreementMetrics struct {
	JudgeA            string
	JudgeB            string
	ExactAgreement    float64
	SidewiseAgreement float64
	CohenKappa        *float64
	NumComparisons    int
}

// pairKey identifies a comparison independent of which judge made it.
type pairKey struct {
	a, b string
}

// verdictString renders a PairwiseRecord's 5-level verdict as its bare
// PairwiseVerdict string (e.g. "A≫B", without brackets or labels), used
// as the label alphabet for exact agreement and Cohen's kappa.
func verdictString(r PairwiseRecord) string {
	switch {
	case r.Winner == WinnerA && r.Margin == MarginMajor:
		return string(VerdictAMuchBetter)
	case r.Winner == WinnerA:
		return string(VerdictABetter)
	case r.Winner == WinnerTie:
		return string(VerdictTie)
	case r.Winner == WinnerB && r.Margin == MarginMajor:
		return string(VerdictBMuchBetter)
	case r.Winner == WinnerB:
		return string(VerdictBBetter)
	default:
		return string(VerdictTie)
	}
}

// JudgeAgreementAnalyzer computes inter-judge agreement over pairwise
// records grouped by judge (spec.md §4.7).
type JudgeAgreementAnalyzer struct {
	byJudge map[string]map[pairKey]PairwiseRecord
	judges  []string
}

// NewJudgeAgreementAnalyzer groups records by JudgeModel and indexes
// each judge's comparisons by (item_a, item_b).
func NewJudgeAgreementAnalyzer(records []PairwiseRecord) *JudgeAgreementAnalyzer {
	byJudge := make(map[string]map[pairKey]PairwiseRecord)
	for _, r := range records {
		if _, ok := byJudge[r.JudgeModel]; !ok {
			byJudge[r.JudgeModel] = make(map[pairKey]PairwiseRecord)
		}
		byJudge[r.JudgeModel][pairKey{r.ItemA, r.ItemB}] = r
	}
	judges := make([]string, 0, len(byJudge))
	for j := range byJudge {
		judges = append(judges, j)
	}
	sort.Strings(judges)
	return &JudgeAgreementAnalyzer{byJudge: byJudge, judges: judges}
}

// Judges returns the judge identifiers seen, sorted.
func (a *JudgeAgreementAnalyzer) Judges() []string {
	out := make([]string, len(a.judges))
	copy(out, a.judges)
	return out
}

func (a *JudgeAgreementAnalyzer) commonKeys(judgeA, judgeB string) []pairKey {
	ra, ok1 := a.byJudge[judgeA]
	rb, ok2 := a.byJudge[judgeB]
	if !ok1 || !ok2 {
		return nil
	}
	var keys []pairKey
	for k := range ra {
		if _, ok := rb[k]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// GetAgreementMetrics computes the full AgreementMetrics for one pair of
// judges.
func (a *JudgeAgreementAnalyzer) GetAgreementMetrics(judgeA, judgeB string) AgreementMetrics {
	if judgeA == judgeB {
		one := 1.0
		return AgreementMetrics{JudgeA: judgeA, JudgeB: judgeB, ExactAgreement: 1.0, SidewiseAgreement: 1.0, CohenKappa: &one}
	}

	keys := a.commonKeys(judgeA, judgeB)
	n := len(keys)
	if n == 0 {
		return AgreementMetrics{JudgeA: judgeA, JudgeB: judgeB}
	}

	var labelsA, labelsB []string
	exactMatches, sideMatches := 0, 0
	for _, k := range keys {
		ra := a.byJudge[judgeA][k]
		rb := a.byJudge[judgeB][k]
		va, vb := verdictString(ra), verdictString(rb)
		labelsA = append(labelsA, va)
		labelsB = append(labelsB, vb)
		if va == vb {
			exactMatches++
		}
		if ra.Winner == rb.Winner || ra.Winner == WinnerTie || rb.Winner == WinnerTie {
			sideMatches++
		}
	}

	kappa := cohenKappa(labelsA, labelsB)

	return AgreementMetrics{
		JudgeA:            judgeA,
		JudgeB:            judgeB,
		ExactAgreement:    float64(exactMatches) / float64(n),
		SidewiseAgreement: float64(sideMatches) / float64(n),
		CohenKappa:        kappa,
		NumComparisons:    n,
	}
}

// cohenKappa computes Cohen's kappa over a and b, two equal-length
// label sequences drawn from the closed 5-level verdict alphabet.
// Returns nil if there are fewer than 2 distinct labels across both
// sequences or the lengths mismatch.
func cohenKappa(a, b []string) *float64 {
	if len(a) != len(b) || len(a) == 0 {
		return nil
	}
	labelSet := make(map[string]bool)
	for _, v := range a {
		labelSet[v] = true
	}
	for _, v := range b {
		labelSet[v] = true
	}
	if len(labelSet) < 2 {
		return nil
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}

	k := len(labels)
	confusion := make([][]float64, k)
	for i := range confusion {
		confusion[i] = make([]float64, k)
	}
	n := float64(len(a))
	for i := range a {
		confusion[idx[a[i]]][idx[b[i]]]++
	}

	po := 0.0
	rowSum := make([]float64, k)
	colSum := make([]float64, k)
	for i := 0; i < k; i++ {
		po += confusion[i][i]
		for j := 0; j < k; j++ {
			rowSum[i] += confusion[i][j]
			colSum[j] += confusion[i][j]
		}
	}
	po /= n

	pe := 0.0
	for i := 0; i < k; i++ {
		pe += (rowSum[i] / n) * (colSum[i] / n)
	}

	if pe >= 1.0 {
		zero := 0.0
		return &zero
	}
	kappa := (po - pe) / (1 - pe)
	return &kappa
}

// GetAgreementMatrix returns the full pairwise agreement matrix using
// the given method ("exact", "sidewise", or "cohen_kappa"). The
// diagonal is always 1.0.
func (a *JudgeAgreementAnalyzer) GetAgreementMatrix(method string) map[string]map[string]float64 {
	matrix := make(map[string]map[string]float64, len(a.judges))
	for _, j1 := range a.judges {
		matrix[j1] = make(map[string]float64, len(a.judges))
		for _, j2 := range a.judges {
			if j1 == j2 {
				matrix[j1][j2] = 1.0
				continue
			}
			m := a.GetAgreementMetrics(j1, j2)
			matrix[j1][j2] = selectMethod(m, method)
		}
	}
	return matrix
}

func selectMethod(m AgreementMetrics, method string) float64 {
	switch method {
	case "sidewise":
		return m.SidewiseAgreement
	case "cohen_kappa":
		if m.CohenKappa == nil {
			return 0.0
		}
		return *m.CohenKappa
	default:
		return m.ExactAgreement
	}
}

// GetMeanAgreement returns, for each judge, the mean agreement with
// every other judge (excluding self) under the given method.
func (a *JudgeAgreementAnalyzer) GetMeanAgreement(method string) map[string]float64 {
	out := make(map[string]float64, len(a.judges))
	for _, j1 := range a.judges {
		sum, count := 0.0, 0
		for _, j2 := range a.judges {
			if j1 == j2 {
				continue
			}
			sum += selectMethod(a.GetAgreementMetrics(j1, j2), method)
			count++
		}
		if count > 0 {
			out[j1] = sum / float64(count)
		} else {
			out[j1] = 0.0
		}
	}
	return out
}

// FindConsensusItems returns the items on which at least 2 judges hold a
// score and all those scores are equal. A judge's score for an item is
// its summed win credit over that judge's comparisons (1 per win, 0.5
// per tie); a judge that gave the item no win or tie holds no score
// for it.
func (a *JudgeAgreementAnalyzer) FindConsensusItems() []string {
	itemRanksByJudge := make(map[string]map[string]float64)
	allItems := make(map[string]bool)

	for judge, records := range a.byJudge {
		scores := make(map[string]float64)
		for k, r := range records {
			allItems[k.a] = true
			allItems[k.b] = true
			switch r.Winner {
			case WinnerA:
				scores[k.a]++
			case WinnerB:
				scores[k.b]++
			case WinnerTie:
				scores[k.a] += 0.5
				scores[k.b] += 0.5
			}
		}
		itemRanksByJudge[judge] = scores
	}

	var consensus []string
	for item := range allItems {
		var values []float64
		for _, scores := range itemRanksByJudge {
			if v, ok := scores[item]; ok {
				values = append(values, v)
			}
		}
		if len(values) < 2 {
			continue
		}
		same := true
		for _, v := range values[1:] {
			if v != values[0] {
				same = false
				break
			}
		}
		if same {
			consensus = append(consensus, item)
		}
	}
	sort.Strings(consensus)
	return consensus
}

// FindDisputedItems returns every item seen minus the consensus items.
func (a *JudgeAgreementAnalyzer) FindDisputedItems() []string {
	consensus := make(map[string]bool)
	for _, c := range a.FindConsensusItems() {
		consensus[c] = true
	}
	allItems := make(map[string]bool)
	for _, records := range a.byJudge {
		for k := range records {
			allItems[k.a] = true
			allItems[k.b] = true
		}
	}
	var disputed []string
	for item := range allItems {
		if !consensus[item] {
			disputed = append(disputed, item)
		}
	}
	sort.Strings(disputed)
	return disputed
}

// AgreementSummary is the aggregate dictionary GetSummary returns.
type AgreementSummary struct {
	NumJudges             int
	NumPairs              int
	MeanExactAgreement    float64
	MeanSidewiseAgreement float64
	MeanCohenKappa        *float64
	ConsensusItems        int
	DisputedItems         int
}

// Summarize computes the aggregate summary dictionary over every unique
// judge pair.
func (a *JudgeAgreementAnalyzer) Summarize() AgreementSummary {
	var exactSum, sideSum, kappaSum float64
	var kappaCount, pairCount int

	for i := 0; i < len(a.judges); i++ {
		for j := i + 1; j < len(a.judges); j++ {
			m := a.GetAgreementMetrics(a.judges[i], a.judges[j])
			exactSum += m.ExactAgreement
			sideSum += m.SidewiseAgreement
			if m.CohenKappa != nil {
				kappaSum += *m.CohenKappa
				kappaCount++
			}
			pairCount++
		}
	}

	summary := AgreementSummary{
		NumJudges:      len(a.judges),
		NumPairs:       pairCount,
		ConsensusItems: len(a.FindConsensusItems()),
		DisputedItems:  len(a.FindDisputedItems()),
	}
	if pairCount > 0 {
		summary.MeanExactAgreement = exactSum / float64(pairCount)
		summary.MeanSidewiseAgreement = sideSum / float64(pairCount)
	}
	if kappaCount > 0 {
		mean := kappaSum / float64(kappaCount)
		summary.MeanCohenKappa = &mean
	}
	return summary
}
