package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMLEElo_ReferenceParticipantPinnedToInitRating(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "b", ItemB: "c", Winner: WinnerB, Margin: MarginMinor},
		{ItemA: "a", ItemB: "c", Winner: WinnerA, Margin: MarginMinor},
		{ItemA: "c", ItemB: "a", Winner: WinnerB, Margin: MarginMinor},
	}
	scores, err := computeMLEElo(records, "a")
	require.NoError(t, err)
	assert.InDelta(t, eloInitRating, scores["a"], 1e-6)
}

func TestComputeMLEElo_DefaultReferenceIsLexicographicallyFirst(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "zebra", ItemB: "aardvark", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "aardvark", ItemB: "zebra", Winner: WinnerB, Margin: MarginMinor},
	}
	scores, err := computeMLEElo(records, "")
	require.NoError(t, err)
	assert.InDelta(t, eloInitRating, scores["aardvark"], 1e-6)
}

func TestComputeMLEElo_WinnerOutranksLoser(t *testing.T) {
	var records []PairwiseRecord
	for i := 0; i < 10; i++ {
		records = append(records, PairwiseRecord{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor})
	}
	scores, err := computeMLEElo(records, "a")
	require.NoError(t, err)
	assert.Greater(t, scores["b"], 0.0)
	assert.InDelta(t, eloInitRating, scores["a"], 1e-6)
}

func TestBootstrapElo_IntervalsContainMedian(t *testing.T) {
	records := []PairwiseRecord{
		{ItemA: "a", ItemB: "b", Winner: WinnerA, Margin: MarginMajor},
		{ItemA: "b", ItemB: "c", Winner: WinnerB, Margin: MarginMinor},
		{ItemA: "a", ItemB: "c", Winner: WinnerA, Margin: MarginMinor},
		{ItemA: "c", ItemB: "a", Winner: WinnerB, Margin: MarginMinor},
		{ItemA: "a", ItemB: "b", Winner: WinnerTie, Margin: MarginTie},
	}
	ratings, _ := bootstrapElo(records, 200, "", nil)
	for item, r := range ratings {
		assert.LessOrEqualf(t, r.LowerCI, r.Rating, "item %s", item)
		assert.LessOrEqualf(t, r.Rating, r.UpperCI, "item %s", item)
	}
}

func TestBootstrapElo_SeededRunsAreIdentical(t *testing.T) {
	var records []PairwiseRecord
	pairs := [][2]string{{"p1", "p2"}, {"p2", "p3"}, {"p3", "p4"}, {"p1", "p4"}, {"p1", "p3"}}
	for i := 0; i < 4; i++ {
		for _, pair := range pairs {
			records = append(records, PairwiseRecord{ItemA: pair[0], ItemB: pair[1], Winner: WinnerA, Margin: MarginMinor})
		}
	}
	require.Len(t, records, 20)

	seed := int64(7)
	r1, f1 := bootstrapElo(records, 1000, "", &seed)
	r2, f2 := bootstrapElo(records, 1000, "", &seed)

	assert.Equal(t, f1, f2)
	for item, rating1 := range r1 {
		rating2, ok := r2[item]
		require.True(t, ok)
		assert.InDelta(t, rating1.Rating, rating2.Rating, 1e-9)
		assert.InDelta(t, rating1.LowerCI, rating2.LowerCI, 1e-9)
		assert.InDelta(t, rating1.UpperCI, rating2.UpperCI, 1e-9)
	}
}

func TestBootstrapElo_TooFewRecordsReturnsEmpty(t *testing.T) {
	ratings, failed := bootstrapElo([]PairwiseRecord{{ItemA: "a", ItemB: "b", Winner: WinnerA}}, 100, "", nil)
	assert.Empty(t, ratings)
	assert.Equal(t, 0, failed)
}

func TestCalculateSeparabilityAndPolarization(t *testing.T) {
	ratings := map[string]EloRating{
		"a": {ItemID: "a", Rating: 1100, LowerCI: 1050, UpperCI: 1150},
		"b": {ItemID: "b", Rating: 900, LowerCI: 850, UpperCI: 950},
	}
	assert.Equal(t, 1.0, calculateSeparability(ratings))
	assert.InDelta(t, 200.0, calculatePolarization(ratings), 1e-9)
}

func TestPredictWinRate_SelfIsFifty(t *testing.T) {
	ratings := map[string]EloRating{
		"a": {ItemID: "a", Rating: 1000},
		"b": {ItemID: "b", Rating: 1000},
	}
	table := predictWinRate(ratings)
	assert.InDelta(t, 0.5, table["a"]["a"], 1e-9)
	assert.InDelta(t, 0.5, table["a"]["b"], 1e-9)
}
