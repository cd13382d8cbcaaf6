package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
)

// ResponseClassifier re-classifies generated text.
type ResponseClassifier interface {
	Classify(ctx context.Context, text string) (emotion.Result, error)
}

// neutralCompatible lists the reply emotions accepted when the user was neutral.
var neutralCompatible = map[emotion.Label]struct{}{
	emotion.Neutral:   {},
	emotion.Happy:     {},
	emotion.Surprised: {},
	emotion.Curious:   {},
}

// Validator checks that a reply carries the emotional tone expected for the user.
type Validator struct {
	classifier ResponseClassifier
	metrics    metrics.Recorder
	log        *zap.Logger
}

func NewValidator(classifier ResponseClassifier, recorder metrics.Recorder, log *zap.Logger) *Validator {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{classifier: classifier, metrics: recorder, log: log.With(zap.String("component", "validator"))}
}

// Validate never returns an error; classification failures count as a mismatch.
func (v *Validator) Validate(ctx context.Context, response string, expected emotion.Label) bool {
	aligned := v.check(ctx, response, expected)
	v.metrics.IncAlignment(aligned)
	return aligned
}

func (v *Validator) check(ctx context.Context, response string, expected emotion.Label) bool {
	if v.classifier == nil {
		v.log.Error("response validation failed: no classifier")
		return false
	}

	result, err := v.classifier.Classify(ctx, response)
	if err != nil {
		v.log.Error("response validation failed", zap.Error(err))
		return false
	}

	got := result.PrimaryEmotion
	if expected == emotion.Neutral {
		if _, ok := neutralCompatible[got]; ok {
			v.log.Debug("response validated: neutral input allows", zap.String("got", string(got)))
			return true
		}
	}
	if got == expected {
		return true
	}

	v.log.Warn("response emotion mismatch",
		zap.String("expected", string(expected)),
		zap.String("got", string(got)))
	return false
}
