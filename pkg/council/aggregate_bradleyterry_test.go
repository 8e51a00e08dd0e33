package council

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateBradleyTerry_Scenario2Ranking(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "role1", ItemB: "role2", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "role1", ItemB: "role3", Winner: WinnerA, Margin: MarginMinor},
		{ItemA: "role2", ItemB: "role3", Winner: WinnerA, Margin: MarginMinor},
	}
	scores := aggregateBradleyTerry(records).Scores
	assert.Greater(t, scores["role1"], scores["role2"])
	assert.Greater(t, scores["role2"], scores["role3"])
}

func TestAggregateBradleyTerry_WinnerStrengthDominatesIsolatedPair(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMinor},
	}
	scores := aggregateBradleyTerry(records).Scores
	assert.GreaterOrEqual(t, scores["a"], scores["b"])
}

func TestAggregateBradleyTerry_TiesConvergeToUniform(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "a", ItemB: "b", Winner: WinnerTie, Margin: MarginTie},
		{ItemA: "b", ItemB: "c", Winner: WinnerTie, Margin: MarginTie},
		{ItemA: "a", ItemB: "c", Winner: WinnerTie, Margin: MarginTie},
	}
	scores := aggregateBradleyTerry(records).Scores
	assert.InDelta(t, scores["a"], scores["b"], 1e-4)
	assert.InDelta(t, scores["b"], scores["c"], 1e-4)
}

func TestAggregateBradleyTerry_GeometricMeanIsOne(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "b", ItemB: "c", Winner: WinnerB, Margin: MarginMinor},
		{ItemA: "a", ItemB: "c", Winner: WinnerA, Margin: MarginMinor},
	}
	scores := aggregateBradleyTerry(records).Scores

	logSum := 0.0
	for _, v := range scores {
		logSum += math.Log(v)
	}
	geoMean := math.Exp(logSum / float64(len(scores)))
	assert.InDelta(t, 1.0, geoMean, 1e-3)
}

func TestAggregateBradleyTerry_EmptyRecords(t *testing.T) {
	scores := aggregateBradleyTerry(nil).Scores
	assert.Empty(t, scores)
}
