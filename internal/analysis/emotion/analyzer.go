package emotion

import (
	"strings"
)

// keywordBuckets holds cue words per raw classifier label.
var keywordBuckets = map[string][]string{
	"joy": {
		"happy", "glad", "great", "awesome", "amazing", "love", "excited", "thanks", "thank you",
		"wonderful", "fantastic", "yay", "proud", "relieved", "good news", "lol", "haha",
	},
	"sadness": {
		"sad", "awful", "failed", "lonely", "alone", "cry", "crying", "depressed", "miss", "lost",
		"hurt", "heartbroken", "down", "upset", "grief", "died", "hopeless", "empty", "tired of",
	},
	"anger": {
		"angry", "furious", "mad", "hate", "annoyed", "pissed", "rage", "unfair", "fed up",
		"sick of", "irritated", "outraged", "can't stand",
	},
	"fear": {
		"afraid", "scared", "anxious", "anxiety", "worried", "nervous", "panic", "terrified",
		"fear", "dread", "overwhelmed", "what if",
	},
	"disgust": {
		"disgusting", "gross", "disgusted", "revolting", "nasty", "sickening", "creepy",
	},
	"surprise": {
		"wow", "surprised", "unexpected", "can't believe", "shocked", "no way", "suddenly",
		"out of nowhere",
	},
}

var sarcasmCues = []string{
	"yeah right", "oh great", "oh, great", "just great", "sure, because", "as if", "/s",
	"just what i needed", "love how", "totally not", "what a surprise", "how wonderful",
	"thanks a lot", "oh joy", "big surprise", "clearly the best",
}

var punctuationBoost = map[string]float64{
	"surprise": 2,
	"joy":      1,
}

// LexiconScores scores text against the keyword buckets and returns raw label
// probabilities. Text without cues resolves to neutral.
func LexiconScores(text string) map[string]float64 {
	normalized := strings.TrimSpace(strings.ToLower(text))
	weights := map[string]float64{"neutral": 1}
	if normalized == "" {
		return weights
	}

	hits := 0.0
	for label, keywords := range keywordBuckets {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				weights[label] += 3
				hits += 3
			}
		}
	}

	exclamations := strings.Count(text, "!")
	if exclamations > 0 {
		weights["surprise"] += float64(exclamations) * punctuationBoost["surprise"]
		if exclamations == 1 {
			weights["joy"] += punctuationBoost["joy"]
		}
	}

	// a single weak cue should not drown out neutral entirely
	if hits == 0 {
		weights["neutral"] += 2
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}
	scores := make(map[string]float64, len(weights))
	for label, w := range weights {
		scores[label] = w / total
	}
	return scores
}

// SarcasmScore estimates sarcasm confidence from cue phrases.
func SarcasmScore(text string) float64 {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return 0
	}

	score := 0.0
	for _, cue := range sarcasmCues {
		if strings.Contains(normalized, cue) {
			score += 0.45
		}
	}
	if strings.Contains(text, "...") && score > 0 {
		score += 0.1
	}
	if score > 0.95 {
		score = 0.95
	}
	return score
}
