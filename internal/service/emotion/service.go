package emotion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	analysis "github.com/zhouzirui/heartline/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/service/inference"
)

// ErrClassifierUnavailable 表示情绪模型完全不可用且没有可用的回退。
var ErrClassifierUnavailable = errors.New("emotion classifier unavailable")

const (
	sarcasmMinLength   = 10
	shortInputWords    = 5
	neutralBoostFloor  = 0.7
	contextRerunAbove  = 0.75
	maxContextMessages = 2
)

// emptyInputIntensity 为空消息报告的中等强度。
const emptyInputIntensity = 5.0

var contextKeywords = []string{"sad", "happy", "angry", "fear", "died", "love", "hate"}

var questionWords = []string{"how", "what", "why", "where", "when"}

// Options 描述情绪分析服务的依赖。
type Options struct {
	Emotion  inference.Classifier
	Sarcasm  inference.Classifier
	Fallback inference.Classifier
	Metrics  metrics.Recorder
	Logger   *zap.Logger
	// RetryDelay 为首次重试前的等待时间，之后每次乘以 1.5。
	RetryDelay time.Duration
	MaxTries   uint
}

// Service 调用情绪与反讽分类器，并将结果整理为 analysis.Result。
type Service struct {
	emotion    inference.Classifier
	sarcasm    inference.Classifier
	fallback   inference.Classifier
	metrics    metrics.Recorder
	log        *zap.Logger
	retryDelay time.Duration
	maxTries   uint
}

// NewService 创建情绪分析服务。
func NewService(opts Options) *Service {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = 3
	}
	return &Service{
		emotion:    opts.Emotion,
		sarcasm:    opts.Sarcasm,
		fallback:   opts.Fallback,
		metrics:    opts.Metrics,
		log:        opts.Logger.With(zap.String("component", "emotion")),
		retryDelay: opts.RetryDelay,
		maxTries:   opts.MaxTries,
	}
}

// Ready 表示是否至少有一个分类器可以提供服务。
func (s *Service) Ready() bool {
	return s != nil && (s.emotion != nil || s.fallback != nil)
}

// Analyze 分析用户消息。history 为按时间顺序排列的近期消息，仅用于短消息的上下文补充。
func (s *Service) Analyze(ctx context.Context, text string, history []string) (analysis.Result, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveEmotionAnalysis(time.Since(start)) }()

	if strings.TrimSpace(text) == "" {
		result := analysis.NewResult(analysis.Distribution{analysis.Neutral: 1}, 0, s.modelName()+" (empty input)")
		result.Intensity = emptyInputIntensity
		return result, nil
	}

	processed := preprocess(text, history)
	raw, model, err := s.classify(ctx, processed)
	if err != nil {
		return analysis.Result{}, err
	}

	sarcasm := s.detectSarcasm(ctx, text)
	if sarcasm > analysis.SarcasmThreshold {
		raw["sarcasm"] += sarcasm
	}

	dist := analysis.Distribution{analysis.Neutral: 0.7}
	if len(raw) > 0 {
		dist = analysis.MapDistribution(raw)
	}
	dist = boostNeutral(text, dist)
	result := analysis.NewResult(dist, sarcasm, model)

	if result.PrimaryScore > contextRerunAbove && processed != normalize(text) {
		s.log.Debug("high confidence with context, re-running on bare text",
			zap.Float64("primary_score", result.PrimaryScore))
		bare, bareModel, err := s.classify(ctx, normalize(text))
		if err == nil && len(bare) > 0 {
			result = analysis.NewResult(analysis.MapDistribution(bare), sarcasm, bareModel)
		}
	}

	s.metrics.IncPrimaryEmotion(string(result.PrimaryEmotion))
	s.log.Info("emotion analysis done",
		zap.String("primary", string(result.PrimaryEmotion)),
		zap.Float64("primary_score", result.PrimaryScore),
		zap.Float64("intensity", result.Intensity),
		zap.String("model", result.ModelUsed))
	return result, nil
}

// Classify 仅运行情绪模型，不补充上下文也不回退，用于回复校验。
func (s *Service) Classify(ctx context.Context, text string) (analysis.Result, error) {
	if s.emotion == nil {
		return analysis.Result{}, ErrClassifierUnavailable
	}
	scores, err := s.withRetry(ctx, s.emotion, normalize(text))
	if err != nil {
		return analysis.Result{}, fmt.Errorf("classify response: %w", err)
	}
	return analysis.NewResult(analysis.MapDistribution(inference.ToMap(scores)), 0, s.emotion.Model()), nil
}

// classify 返回原始标签分数。暂时性失败时回退到词典分类器或中性分布。
func (s *Service) classify(ctx context.Context, text string) (map[string]float64, string, error) {
	if s.emotion == nil {
		if s.fallback == nil {
			return nil, "", ErrClassifierUnavailable
		}
		scores, err := s.fallback.Classify(ctx, text)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
		}
		return inference.ToMap(scores), s.fallback.Model(), nil
	}

	scores, err := s.withRetry(ctx, s.emotion, text)
	if err == nil {
		return inference.ToMap(scores), s.emotion.Model(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, "", ctxErr
	}

	s.log.Warn("emotion classifier failed", zap.Error(err))
	if s.fallback != nil {
		if fbScores, fbErr := s.fallback.Classify(ctx, text); fbErr == nil {
			return inference.ToMap(fbScores), s.fallback.Model(), nil
		}
	}
	if errors.Is(err, inference.ErrUnavailable) {
		return nil, "", fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	return map[string]float64{}, s.emotion.Model(), nil
}

func (s *Service) detectSarcasm(ctx context.Context, text string) float64 {
	if s.sarcasm == nil || len(text) < sarcasmMinLength {
		return 0
	}
	scores, err := s.sarcasm.Classify(ctx, text)
	if err != nil {
		s.log.Warn("sarcasm detection failed", zap.Error(err))
		return 0
	}
	return inference.SarcasmConfidence(scores)
}

func (s *Service) withRetry(ctx context.Context, c inference.Classifier, text string) ([]inference.Score, error) {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     s.retryDelay,
		RandomizationFactor: 0,
		Multiplier:          1.5,
		MaxInterval:         30 * time.Second,
	}
	return backoff.Retry(ctx, func() ([]inference.Score, error) {
		scores, err := c.Classify(ctx, text)
		if errors.Is(err, inference.ErrUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return scores, err
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(s.maxTries))
}

func (s *Service) modelName() string {
	switch {
	case s.emotion != nil:
		return s.emotion.Model()
	case s.fallback != nil:
		return s.fallback.Model()
	default:
		return "unavailable"
	}
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// preprocess 在短消息带有情绪关键词时拼接最近两条相关上下文。
func preprocess(text string, history []string) string {
	normalized := normalize(text)
	if len(strings.Fields(normalized)) >= shortInputWords || len(history) == 0 {
		return normalized
	}
	if !containsAny(normalized, contextKeywords) {
		return normalized
	}

	relevant := make([]string, 0, len(history))
	for _, msg := range history {
		if containsAny(strings.ToLower(msg), contextKeywords) {
			relevant = append(relevant, msg)
		}
	}
	if len(relevant) == 0 {
		return normalized
	}
	if len(relevant) > maxContextMessages {
		relevant = relevant[len(relevant)-maxContextMessages:]
	}
	return fmt.Sprintf("Conversation context: %s Current message: %s", strings.Join(relevant, " "), normalized)
}

// boostNeutral 对短消息或提问类消息在低置信度时抬高中性分数。
func boostNeutral(text string, dist analysis.Distribution) analysis.Distribution {
	lowered := strings.ToLower(text)
	if len(strings.Fields(lowered)) >= shortInputWords && !containsAny(lowered, questionWords) {
		return dist
	}
	if dist.Max() >= neutralBoostFloor {
		return dist
	}

	boosted := make(analysis.Distribution, len(dist)+1)
	for label, score := range dist {
		boosted[label] = score
	}
	if boosted[analysis.Neutral] < neutralBoostFloor {
		boosted[analysis.Neutral] = neutralBoostFloor
	}
	return boosted.Normalize()
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
