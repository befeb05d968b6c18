package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatscore/domain/entities"
)

func TestSumScores(t *testing.T) {
	t.Run("sums values per address across maps", func(t *testing.T) {
		entries := SumScores(
			map[string]float64{"0xaa": 10, "0xbb": 5},
			map[string]float64{"0xaa": 2.5, "0xcc": 1},
		)

		require.Len(t, entries, 3)
		assert.Equal(t, entities.ScoreEntry{Address: "0xaa", Score: 12.5}, entries[0])
		assert.Equal(t, entities.ScoreEntry{Address: "0xbb", Score: 5}, entries[1])
		assert.Equal(t, entities.ScoreEntry{Address: "0xcc", Score: 1}, entries[2])
	})

	t.Run("orders deterministically on equal scores", func(t *testing.T) {
		entries := SumScores(map[string]float64{"0xbb": 1, "0xaa": 1})
		require.Len(t, entries, 2)
		assert.Equal(t, "0xaa", entries[0].Address)
		assert.Equal(t, "0xbb", entries[1].Address)
	})

	t.Run("empty input yields no entries", func(t *testing.T) {
		assert.Empty(t, SumScores())
		assert.Empty(t, SumScores(map[string]float64{}))
	})
}

func TestFilterPositive(t *testing.T) {
	entries := FilterPositive([]entities.ScoreEntry{
		{Address: "0xaa", Score: 1.5},
		{Address: "0xbb", Score: 0},
		{Address: "0xcc", Score: -2},
	})

	require.Len(t, entries, 1)
	assert.Equal(t, "0xaa", entries[0].Address)
}
