package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	"github.com/zhouzirui/heartline/backend/internal/model/persona"
)

// ErrGeneration is returned when the model could not be reached on the final attempt.
var ErrGeneration = errors.New("response generation failed")

const (
	temperatureStep = 0.1
	temperatureCap  = 0.9
)

// AlignmentChecker decides whether a reply fits the expected emotion.
type AlignmentChecker interface {
	Validate(ctx context.Context, response string, expected emotion.Label) bool
}

// GeneratorConfig holds the attempt budget and base sampling settings.
type GeneratorConfig struct {
	Base        GenerationParams
	MaxAttempts int
	RetryDelay  time.Duration
}

// AttemptParams is the immutable per-attempt state of the generation loop.
type AttemptParams struct {
	Number   int
	Sampling GenerationParams
}

// next advances after a validation failure and raises the temperature.
func (p AttemptParams) next() AttemptParams {
	p.Number++
	p.Sampling.Temperature = min(p.Sampling.Temperature+temperatureStep, temperatureCap)
	return p
}

// retry advances after a transport failure. Sampling is unchanged.
func (p AttemptParams) retry() AttemptParams {
	p.Number++
	return p
}

// Generation is the outcome of one Generate call.
type Generation struct {
	Reply    chat.Reply
	Attempts int
	Aligned  bool
	Model    string
}

// Generator runs the call-parse-validate loop against a Client.
type Generator struct {
	client    Client
	validator AlignmentChecker
	cfg       GeneratorConfig
	metrics   metrics.Recorder
	log       *zap.Logger
}

func NewGenerator(client Client, validator AlignmentChecker, cfg GeneratorConfig, recorder metrics.Recorder, log *zap.Logger) *Generator {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Base.MaxTokens <= 0 {
		cfg.Base.MaxTokens = 300
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		client:    client,
		validator: validator,
		cfg:       cfg,
		metrics:   recorder,
		log:       log.With(zap.String("component", "generator")),
	}
}

// Model returns the underlying model name.
func (g *Generator) Model() string {
	return g.client.Model()
}

// Generate produces a reply for prompt. It returns on the first aligned reply and
// otherwise degrades to the last reply once the attempt budget is spent.
func (g *Generator) Generate(ctx context.Context, prompt string, analysis emotion.Result, p persona.Persona) (Generation, error) {
	delays := &backoff.ExponentialBackOff{
		InitialInterval:     g.cfg.RetryDelay,
		RandomizationFactor: 0,
		Multiplier:          1.5,
		MaxInterval:         30 * time.Second,
	}
	delays.Reset()

	var last chat.Reply
	produced := false
	params := AttemptParams{Number: 1, Sampling: g.cfg.Base}

	for params.Number <= g.cfg.MaxAttempts {
		start := time.Now()
		raw, err := g.client.Generate(ctx, prompt, params.Sampling)
		g.metrics.ObserveLLMCall(time.Since(start))

		if err != nil {
			g.log.Warn("LLM call failed",
				zap.Int("attempt", params.Number),
				zap.Error(err))
			if params.Number == g.cfg.MaxAttempts || ctx.Err() != nil {
				return Generation{}, fmt.Errorf("%w: attempt %d: %w", ErrGeneration, params.Number, err)
			}
			if err := sleep(ctx, delays.NextBackOff()); err != nil {
				return Generation{}, fmt.Errorf("%w: %w", ErrGeneration, err)
			}
			params = params.retry()
			continue
		}

		reply := g.decode(raw, p, params.Number)
		reply = reply.Sanitize(analysis.Low())
		last, produced = reply, true

		if g.validator == nil || g.validator.Validate(ctx, reply.Response, analysis.PrimaryEmotion) {
			return Generation{Reply: reply, Attempts: params.Number, Aligned: true, Model: g.client.Model()}, nil
		}

		g.log.Warn("response validation failed, retrying",
			zap.Int("attempt", params.Number),
			zap.Float32("temperature", params.Sampling.Temperature))
		params = params.next()
	}

	if !produced {
		return Generation{}, ErrGeneration
	}
	g.log.Warn("returning unaligned reply after exhausting attempts",
		zap.Int("attempts", g.cfg.MaxAttempts),
		zap.String("expected", string(analysis.PrimaryEmotion)))
	return Generation{Reply: last, Attempts: g.cfg.MaxAttempts, Aligned: false, Model: g.client.Model()}, nil
}

// decode falls back to the persona reply when the output has no response or a blank one.
func (g *Generator) decode(raw string, p persona.Persona, attempt int) chat.Reply {
	parsed := ParseReply(raw)
	if parsed.OK() && strings.TrimSpace(parsed.Reply.Response) != "" {
		if parsed.Stage == StageSalvage {
			g.log.Debug("reply recovered by substring salvage", zap.Int("attempt", attempt))
		}
		return parsed.Reply
	}

	g.log.Warn("invalid LLM response, using fallback",
		zap.Int("attempt", attempt),
		zap.String("stage", string(parsed.Stage)))
	return chat.Reply{
		Appraisal:  chat.Challenge,
		Regulation: []string{},
		Response:   p.FallbackReply(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
