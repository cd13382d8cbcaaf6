package ai

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/model/persona"
)

// NoContextSentinel stands in for the context section of a first message.
const NoContextSentinel = "No prior conversation."

// PromptBuilder renders the therapist prompt for one turn.
type PromptBuilder struct {
	persona      persona.Persona
	contextTurns int
}

// NewPromptBuilder creates a builder speaking as p. contextTurns caps how many
// recent messages are quoted back to the model.
func NewPromptBuilder(p persona.Persona, contextTurns int) *PromptBuilder {
	if contextTurns < 1 {
		contextTurns = 2
	}
	return &PromptBuilder{persona: p, contextTurns: contextTurns}
}

// Persona returns the persona the builder speaks as.
func (b *PromptBuilder) Persona() persona.Persona {
	return b.persona
}

// Build renders the prompt. history is chronological, oldest first.
func (b *PromptBuilder) Build(result emotion.Result, userText string, history []string) string {
	return fmt.Sprintf(promptTemplate,
		b.persona.Name,
		b.title(),
		b.hint(),
		result.PrimaryEmotion,
		strconv.FormatFloat(result.Intensity, 'f', -1, 64),
		formatSecondary(result.SecondaryEmotions),
		b.formatContext(history),
		userText,
	)
}

func (b *PromptBuilder) title() string {
	if t := strings.TrimSpace(b.persona.Title); t != "" {
		return t
	}
	return "professional, empathetic human therapist"
}

func (b *PromptBuilder) hint() string {
	if h := strings.TrimSpace(b.persona.PromptHint); h != "" {
		return h
	}
	return "Respond as a warm, understanding person would in a therapy session, avoiding any AI-like or robotic language."
}

func (b *PromptBuilder) formatContext(history []string) string {
	if len(history) == 0 {
		return NoContextSentinel
	}
	if len(history) > b.contextTurns {
		history = history[len(history)-b.contextTurns:]
	}
	return strings.Join(history, " ")
}

func formatSecondary(secondary []emotion.Secondary) string {
	parts := make([]string, 0, len(secondary))
	for _, s := range secondary {
		parts = append(parts, fmt.Sprintf("%s (%.2f)", s.Label, s.Score))
	}
	return strings.Join(parts, ", ")
}

const promptTemplate = `**Role:** You are %s, a %s with years of experience. %s
**User State:** Primary emotion: %s (intensity: %s/10). Secondary emotions: %s.
**Context:** %s
**Current Message:** %s
**Instructions:**
- Respond in 2-4 sentences with a natural, conversational tone, mirroring the user's emotional tone and intensity as a therapist would.
- If the user's message is a question, directly address it in a warm, personal way before offering any therapeutic insights.
- For low-intensity (<5/10) or neutral emotions, keep responses light, casual, and engaging, avoiding therapeutic suggestions unless prompted.
- For ambiguous, short, or question-based inputs, assume a neutral or curious tone unless context strongly suggests otherwise.
- Use Lazarus' Appraisal Theory to classify the situation as 'Threat' or 'Challenge' and weave this subtly into your tone (e.g., 'Challenge' feels hopeful, 'Threat' feels protective), but only for moderate-to-high intensity (>5/10).
- Suggest 1-2 practical emotion regulation strategies (e.g., deep breathing, reframing, grounding exercises) only for moderate-to-high intensity emotions (>5/10); otherwise, focus on connection and curiosity.
- Ensure the response feels personal, logical, and aligned with the detected emotion and context, avoiding generic phrases.
- End with a warm, open-ended follow-up question to invite further sharing, like a therapist would.
- Output a JSON object with fields: appraisal ('Threat' or 'Challenge'), regulation (array of 1-2 strings, empty for low-intensity), response (string).
Example for casual question: 'Hey, you asked how I’m doing—thanks for that! I’m feeling good, just enjoying the moment. What about you, how’s your day going?'
Example for intense emotion: 'I hear how tough this is for you right now, and I’m here to help. Let’s try a slow breath together to ease that tension. What’s been the hardest part of this for you?'`
