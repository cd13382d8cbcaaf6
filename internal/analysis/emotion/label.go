package emotion

import (
	"sort"
	"strings"
)

// Label is a friendly emotion name exposed to the prompt and the frontend.
type Label string

const (
	Neutral      Label = "neutral"
	Happy        Label = "happy"
	Sad          Label = "sad"
	Angry        Label = "angry"
	Fearful      Label = "fearful"
	Disgusted    Label = "disgusted"
	Surprised    Label = "surprised"
	Curious      Label = "curious"
	Sarcastic    Label = "sarcastic"
	NotSarcastic Label = "not_sarcastic"
)

// rawToFriendly maps classifier output labels onto friendly labels.
var rawToFriendly = map[string]Label{
	"anger":    Angry,
	"disgust":  Disgusted,
	"fear":     Fearful,
	"joy":      Happy,
	"neutral":  Neutral,
	"sadness":  Sad,
	"surprise": Surprised,
	"sarcasm":  Sarcastic,
	"label_1":  Sarcastic,
	"label_0":  NotSarcastic,
}

var friendlyLabels = map[Label]struct{}{
	Neutral: {}, Happy: {}, Sad: {}, Angry: {}, Fearful: {}, Disgusted: {},
	Surprised: {}, Curious: {}, Sarcastic: {}, NotSarcastic: {},
}

// SarcasticRawLabels lists raw labels that mean "sarcastic" for the sarcasm model.
var SarcasticRawLabels = map[string]struct{}{
	"sarcasm":   {},
	"sarcastic": {},
	"label_1":   {},
}

// FriendlyLabel resolves a raw classifier label. Friendly labels resolve to themselves.
func FriendlyLabel(raw string) (Label, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := rawToFriendly[key]; ok {
		return mapped, true
	}
	if _, ok := friendlyLabels[Label(key)]; ok {
		return Label(key), true
	}
	return "", false
}

// Distribution maps a friendly label to its probability.
type Distribution map[Label]float64

// Labels returns the distribution labels in lexical order.
func (d Distribution) Labels() []Label {
	labels := make([]Label, 0, len(d))
	for label := range d {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Max returns the highest score, or 0 for an empty distribution.
func (d Distribution) Max() float64 {
	best := 0.0
	for _, score := range d {
		if score > best {
			best = score
		}
	}
	return best
}

// Normalize rescales the scores so they sum to 1. Zero-sum distributions are returned as a copy.
func (d Distribution) Normalize() Distribution {
	total := 0.0
	for _, score := range d {
		total += score
	}
	out := make(Distribution, len(d))
	for label, score := range d {
		if total > 0 {
			out[label] = score / total
		} else {
			out[label] = score
		}
	}
	return out
}

// MapDistribution converts raw classifier scores into a normalized friendly distribution.
// Unknown labels are dropped; duplicates after mapping are summed. An empty mapping
// falls back to a low-confidence neutral distribution.
func MapDistribution(raw map[string]float64) Distribution {
	friendly := make(Distribution)
	total := 0.0
	for _, score := range raw {
		total += score
	}

	for rawLabel, score := range raw {
		label, ok := FriendlyLabel(rawLabel)
		if !ok {
			continue
		}
		if total == 0 {
			friendly[label] = 0
			continue
		}
		friendly[label] += score / total
	}

	if len(friendly) == 0 || friendly.Max() == 0 {
		return Distribution{Neutral: 0.5}
	}
	return friendly.Normalize()
}
