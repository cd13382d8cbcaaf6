package emotion

import (
	"math"
	"sort"
)

// SarcasmThreshold is the confidence above which sarcasm is added to the distribution.
const SarcasmThreshold = 0.7

// Secondary is a non-primary label with its score.
type Secondary struct {
	Label Label   `json:"label"`
	Score float64 `json:"score"`
}

// Result is the outcome of analyzing one piece of text.
type Result struct {
	Distribution      Distribution `json:"distribution"`
	PrimaryEmotion    Label        `json:"primary_emotion"`
	PrimaryScore      float64      `json:"primary_score"`
	Intensity         float64      `json:"intensity"`
	SecondaryEmotions []Secondary  `json:"secondary_emotions"`
	SarcasmScore      float64      `json:"sarcasm_score"`
	ModelUsed         string       `json:"model_used"`
}

// NewResult derives primary, secondary and intensity from a distribution.
// The primary label is the argmax; ties go to the lexically smaller label.
func NewResult(dist Distribution, sarcasm float64, model string) Result {
	if len(dist) == 0 {
		dist = Distribution{Neutral: 0.7}
	}

	primary, primaryScore := Neutral, -1.0
	for _, label := range dist.Labels() {
		if score := dist[label]; score > primaryScore {
			primary, primaryScore = label, score
		}
	}

	secondary := make([]Secondary, 0, len(dist)-1)
	for label, score := range dist {
		if label == primary {
			continue
		}
		secondary = append(secondary, Secondary{Label: label, Score: score})
	}
	sort.Slice(secondary, func(i, j int) bool {
		if secondary[i].Score != secondary[j].Score {
			return secondary[i].Score > secondary[j].Score
		}
		return secondary[i].Label < secondary[j].Label
	})

	return Result{
		Distribution:      dist,
		PrimaryEmotion:    primary,
		PrimaryScore:      primaryScore,
		Intensity:         Intensity(primaryScore, sarcasm),
		SecondaryEmotions: secondary,
		SarcasmScore:      sarcasm,
		ModelUsed:         model,
	}
}

// Intensity maps the primary score and sarcasm confidence onto a 0-10 scale.
// Sarcasm halves the intensity at full confidence since it inverts the literal sentiment.
func Intensity(primaryScore, sarcasm float64) float64 {
	primaryScore = clamp(primaryScore, 0, 1)
	sarcasm = clamp(sarcasm, 0, 1)
	value := 10 * primaryScore * (1 - 0.5*sarcasm)
	return math.Round(clamp(value, 0, 10)*10) / 10
}

// Low reports whether the intensity is below the threshold for regulation suggestions.
func (r Result) Low() bool {
	return r.Intensity < 5
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
