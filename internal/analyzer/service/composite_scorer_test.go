package service

import (
	"testing"

	"golang-stock-insight/internal/analyzer/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultWeights() config.Weights {
	return config.Weights{Technical: 0.4, Fundamental: 0.4, Sentiment: 0.2}
}

func defaultThresholds() config.Recommendation {
	return config.Recommendation{Thresholds: []config.Threshold{
		{Min: 80, Label: "strong buy"},
		{Min: 60, Label: "buy"},
		{Min: 40, Label: "hold"},
		{Min: 20, Label: "sell"},
		{Min: 0, Label: "strong sell"},
	}}
}

func available(v float64) SubScore {
	return SubScore{Value: v, Available: true}
}

func TestCompositeScorer_Extremes(t *testing.T) {
	scorer, err := NewCompositeScorer(defaultWeights(), defaultThresholds())
	require.NoError(t, err)

	top, err := scorer.Combine(available(100), available(100), available(100))
	require.NoError(t, err)
	assert.InDelta(t, 100, top.Composite, 1e-9)
	assert.Equal(t, "strong buy", top.Recommendation)

	bottom, err := scorer.Combine(available(0), available(0), available(0))
	require.NoError(t, err)
	assert.InDelta(t, 0, bottom.Composite, 1e-9)
	assert.Equal(t, "strong sell", bottom.Recommendation)
}

func TestCompositeScorer_WeightedSum(t *testing.T) {
	scorer, err := NewCompositeScorer(defaultWeights(), defaultThresholds())
	require.NoError(t, err)

	result, err := scorer.Combine(available(80), available(60), available(40))
	require.NoError(t, err)
	assert.InDelta(t, 0.4*80+0.4*60+0.2*40, result.Composite, 1e-9)
	assert.False(t, result.Partial)
	assert.Empty(t, result.Missing)
}

func TestCompositeScorer_ThresholdPartition(t *testing.T) {
	scorer, err := NewCompositeScorer(defaultWeights(), defaultThresholds())
	require.NoError(t, err)

	cases := map[float64]string{
		100:  "strong buy",
		80:   "strong buy",
		79.9: "buy",
		60:   "buy",
		59.9: "hold",
		40:   "hold",
		20:   "sell",
		19.9: "strong sell",
		0:    "strong sell",
	}
	for score, label := range cases {
		result, err := scorer.Combine(available(score), available(score), available(score))
		require.NoError(t, err)
		assert.Equal(t, label, result.Recommendation, "composite %v", score)
	}
}

func TestCompositeScorer_RenormalizesMissingCategory(t *testing.T) {
	scorer, err := NewCompositeScorer(defaultWeights(), defaultThresholds())
	require.NoError(t, err)

	result, err := scorer.Combine(available(80), SubScore{}, available(60))
	require.NoError(t, err)

	// Fundamental's 0.4 redistributes: technical 0.4/0.6, sentiment 0.2/0.6.
	expected := (0.4*80 + 0.2*60) / 0.6
	assert.InDelta(t, expected, result.Composite, 1e-9)
	assert.True(t, result.Partial)
	assert.Equal(t, []string{"fundamental"}, result.Missing)
	assert.InDelta(t, 0.4/0.6, result.AppliedWeights["technical"], 1e-9)
	assert.Equal(t, 0.0, result.AppliedWeights["fundamental"])
}

func TestCompositeScorer_AllCategoriesMissing(t *testing.T) {
	scorer, err := NewCompositeScorer(defaultWeights(), defaultThresholds())
	require.NoError(t, err)

	_, err = scorer.Combine(SubScore{}, SubScore{}, SubScore{})
	require.Error(t, err)
}

func TestCompositeScorer_RejectsInvalidConfig(t *testing.T) {
	_, err := NewCompositeScorer(config.Weights{Technical: 0.5, Fundamental: 0.5, Sentiment: 0.5}, defaultThresholds())
	require.Error(t, err, "weights not summing to 1 must be rejected")

	_, err = NewCompositeScorer(defaultWeights(), config.Recommendation{Thresholds: []config.Threshold{
		{Min: 40, Label: "hold"},
		{Min: 60, Label: "buy"},
	}})
	require.Error(t, err, "non-descending thresholds must be rejected")

	_, err = NewCompositeScorer(defaultWeights(), config.Recommendation{Thresholds: []config.Threshold{
		{Min: 60, Label: "buy"},
		{Min: 40, Label: "hold"},
	}})
	require.Error(t, err, "ladder not ending at 0 leaves a gap")
}
