package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/model/persona"
)

func charlotte() persona.Persona {
	p, _ := persona.Resolve(persona.NewMemoryStore(persona.Seed()), "charlotte")
	return p
}

func TestBuildIncludesEmotionState(t *testing.T) {
	result := emotion.NewResult(emotion.Distribution{emotion.Sad: 0.8, emotion.Fearful: 0.15, emotion.Neutral: 0.05}, 0, "m")
	prompt := NewPromptBuilder(charlotte(), 2).Build(result, "I failed my exam and feel awful", nil)

	assert.Contains(t, prompt, "You are Charlotte, a professional, empathetic human therapist")
	assert.Contains(t, prompt, "Primary emotion: sad (intensity: 8/10)")
	assert.Contains(t, prompt, "Secondary emotions: fearful (0.15), neutral (0.05).")
	assert.Contains(t, prompt, "**Current Message:** I failed my exam and feel awful")
	assert.Contains(t, prompt, "**Context:** "+NoContextSentinel)
	assert.Contains(t, prompt, "appraisal ('Threat' or 'Challenge')")
}

func TestBuildQuotesLastContextTurns(t *testing.T) {
	result := emotion.NewResult(emotion.Distribution{emotion.Neutral: 1}, 0, "m")
	history := []string{"first", "second", "third"}

	prompt := NewPromptBuilder(charlotte(), 2).Build(result, "now", history)

	assert.Contains(t, prompt, "**Context:** second third\n")
	assert.NotContains(t, prompt, "first")
	assert.NotContains(t, prompt, NoContextSentinel)
}

func TestBuildIsDeterministicAndKeepsMessageVerbatim(t *testing.T) {
	builder := NewPromptBuilder(charlotte(), 2)
	result := emotion.NewResult(emotion.Distribution{emotion.Angry: 0.5, emotion.Sad: 0.3, emotion.Neutral: 0.2}, 0.2, "m")

	messages := []string{"100% done? {not json}", "   spaced   ", "multi\nline", ""}
	for _, msg := range messages {
		a := builder.Build(result, msg, []string{"ctx"})
		b := builder.Build(result, msg, []string{"ctx"})
		assert.Equal(t, a, b)
		assert.True(t, strings.Contains(a, "**Current Message:** "+msg+"\n"))
	}
}

func TestBuildUsesPersonaName(t *testing.T) {
	p := persona.Persona{ID: "x", Name: "Theo"}
	prompt := NewPromptBuilder(p, 0).Build(emotion.NewResult(nil, 0, "m"), "hi", nil)
	assert.Contains(t, prompt, "You are Theo, a professional, empathetic human therapist")
}
