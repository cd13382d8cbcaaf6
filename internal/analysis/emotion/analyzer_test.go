package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResultPrimaryIsArgmax(t *testing.T) {
	dist := Distribution{Sad: 0.6, Angry: 0.25, Neutral: 0.1, Fearful: 0.05}

	result := NewResult(dist, 0, "test-model")

	assert.Equal(t, Sad, result.PrimaryEmotion)
	assert.InDelta(t, 0.6, result.PrimaryScore, 1e-9)
	require.Len(t, result.SecondaryEmotions, 3)
	assert.Equal(t, []Secondary{
		{Label: Angry, Score: 0.25},
		{Label: Neutral, Score: 0.1},
		{Label: Fearful, Score: 0.05},
	}, result.SecondaryEmotions)
	assert.Equal(t, "test-model", result.ModelUsed)
}

func TestNewResultSecondaryExcludesPrimaryAndIsSorted(t *testing.T) {
	inputs := []Distribution{
		{Happy: 0.2, Surprised: 0.2, Neutral: 0.6},
		{Angry: 1},
		{Disgusted: 0.01, Sad: 0.33, Fearful: 0.33, Happy: 0.33},
	}

	for _, dist := range inputs {
		result := NewResult(dist, 0, "m")
		assert.Equal(t, dist.Max(), result.PrimaryScore)
		assert.Len(t, result.SecondaryEmotions, len(dist)-1)
		for i, sec := range result.SecondaryEmotions {
			assert.NotEqual(t, result.PrimaryEmotion, sec.Label)
			assert.Equal(t, dist[sec.Label], sec.Score)
			if i > 0 {
				assert.GreaterOrEqual(t, result.SecondaryEmotions[i-1].Score, sec.Score)
			}
		}
	}
}

func TestNewResultTieBreaksByLabel(t *testing.T) {
	result := NewResult(Distribution{Sad: 0.5, Angry: 0.5}, 0, "m")
	assert.Equal(t, Angry, result.PrimaryEmotion)
}

func TestNewResultEmptyDistributionFallsBackToNeutral(t *testing.T) {
	result := NewResult(nil, 0, "m")
	assert.Equal(t, Neutral, result.PrimaryEmotion)
	assert.InDelta(t, 0.7, result.PrimaryScore, 1e-9)
	assert.Empty(t, result.SecondaryEmotions)
}

func TestIntensityMonotonicInPrimaryScore(t *testing.T) {
	prev := -1.0
	for score := 0.0; score <= 1.0; score += 0.05 {
		got := Intensity(score, 0.3)
		assert.GreaterOrEqual(t, got, prev)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 10.0)
		prev = got
	}
	assert.Equal(t, 8.0, Intensity(0.8, 0))
}

func TestIntensityReducedBySarcasm(t *testing.T) {
	plain := Intensity(0.9, 0)
	sarcastic := Intensity(0.9, 0.9)
	assert.Less(t, sarcastic, plain)
	assert.Equal(t, 5.0, Intensity(1, 1))
}

func TestMapDistributionNormalizesFriendlyLabels(t *testing.T) {
	dist := MapDistribution(map[string]float64{
		"joy":     0.6,
		"sadness": 0.2,
		"LABEL_1": 0.2,
		"bogus":   0.5,
	})

	require.Len(t, dist, 3)
	total := 0.0
	for _, score := range dist {
		total += score
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.6/0.8, dist[Happy], 1e-9)
	assert.Contains(t, dist, Sarcastic)
}

func TestMapDistributionFallsBackToNeutral(t *testing.T) {
	assert.Equal(t, Distribution{Neutral: 0.5}, MapDistribution(map[string]float64{"bogus": 1}))
	assert.Equal(t, Distribution{Neutral: 0.5}, MapDistribution(nil))
}

func TestLexiconScoresSadMessage(t *testing.T) {
	dist := MapDistribution(LexiconScores("I failed my exam and feel awful"))
	result := NewResult(dist, 0, "lexicon")
	assert.Equal(t, Sad, result.PrimaryEmotion)
}

func TestLexiconScoresPlainTextIsNeutral(t *testing.T) {
	dist := MapDistribution(LexiconScores("the meeting moved to tuesday"))
	assert.Equal(t, Neutral, NewResult(dist, 0, "lexicon").PrimaryEmotion)
}

func TestSarcasmScore(t *testing.T) {
	assert.Zero(t, SarcasmScore("I had a nice walk today"))
	assert.Greater(t, SarcasmScore("Oh great, another Monday. Just what I needed."), SarcasmThreshold)
}
