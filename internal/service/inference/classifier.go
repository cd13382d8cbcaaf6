package inference

import (
	"context"
	"errors"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
)

// ErrUnavailable marks a classifier that cannot serve requests at all
// (missing credentials, unknown model). Transient failures are returned unwrapped.
var ErrUnavailable = errors.New("classifier unavailable")

// Score is a single label/score pair produced by a text classifier.
type Score struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Classifier maps text onto raw label scores.
type Classifier interface {
	Classify(ctx context.Context, text string) ([]Score, error)
	Model() string
}

// ToMap folds scores into a lowercase label map, keeping the max per label.
func ToMap(scores []Score) map[string]float64 {
	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		key := lower(s.Label)
		if s.Score > out[key] {
			out[key] = s.Score
		}
	}
	return out
}

// SarcasmConfidence returns the highest score among sarcastic labels.
func SarcasmConfidence(scores []Score) float64 {
	best := 0.0
	for _, s := range scores {
		if _, ok := emotion.SarcasticRawLabels[lower(s.Label)]; ok && s.Score > best {
			best = s.Score
		}
	}
	return best
}

// Lexicon is a keyword classifier for emotions. It never fails.
type Lexicon struct{}

func (Lexicon) Classify(_ context.Context, text string) ([]Score, error) {
	raw := emotion.LexiconScores(text)
	scores := make([]Score, 0, len(raw))
	for label, score := range raw {
		scores = append(scores, Score{Label: label, Score: score})
	}
	return scores, nil
}

func (Lexicon) Model() string { return "lexicon" }

// SarcasmLexicon is a cue-phrase sarcasm classifier.
type SarcasmLexicon struct{}

func (SarcasmLexicon) Classify(_ context.Context, text string) ([]Score, error) {
	score := emotion.SarcasmScore(text)
	return []Score{
		{Label: "LABEL_1", Score: score},
		{Label: "LABEL_0", Score: 1 - score},
	}, nil
}

func (SarcasmLexicon) Model() string { return "sarcasm-lexicon" }
