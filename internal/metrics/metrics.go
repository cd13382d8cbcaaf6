package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request status labels.
const (
	StatusSuccess       = "success"
	StatusCacheHit      = "cache_hit"
	StatusPipelineError = "pipeline_error"
	StatusLLMError      = "llm_error"
	StatusBadRequest    = "bad_request"
)

// Recorder receives pipeline observations.
type Recorder interface {
	IncRequest(status string)
	ObserveRequestLatency(d time.Duration)
	ObserveEmotionAnalysis(d time.Duration)
	ObserveLLMCall(d time.Duration)
	IncPrimaryEmotion(label string)
	IncAlignment(aligned bool)
}

// Prometheus implements Recorder with client_golang collectors.
type Prometheus struct {
	requests         *prometheus.CounterVec
	requestLatency   prometheus.Histogram
	emotionLatency   prometheus.Histogram
	llmLatency       prometheus.Histogram
	primaryEmotions  *prometheus.CounterVec
	alignmentResults *prometheus.CounterVec
}

// NewPrometheus creates the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_requests_total",
			Help: "Total number of chat requests processed",
		}, []string{"status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_request_latency_seconds",
			Help:    "Histogram of chat request latency in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}),
		emotionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "emotion_analysis_latency_seconds",
			Help:    "Histogram of emotion analysis latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		llmLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "llm_call_latency_seconds",
			Help:    "Histogram of LLM API call latency in seconds",
			Buckets: []float64{0.5, 1.0, 2.0, 3.0, 5.0, 10.0},
		}),
		primaryEmotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "emotion_primary_detected_total",
			Help: "Count of primary emotions detected in user input",
		}, []string{"emotion_label"}),
		alignmentResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "response_emotional_alignment_total",
			Help: "Count of responses checked for alignment with the detected user emotion",
		}, []string{"aligned"}),
	}

	reg.MustRegister(
		p.requests,
		p.requestLatency,
		p.emotionLatency,
		p.llmLatency,
		p.primaryEmotions,
		p.alignmentResults,
	)
	return p
}

func (p *Prometheus) IncRequest(status string) {
	p.requests.WithLabelValues(status).Inc()
}

func (p *Prometheus) ObserveRequestLatency(d time.Duration) {
	p.requestLatency.Observe(d.Seconds())
}

func (p *Prometheus) ObserveEmotionAnalysis(d time.Duration) {
	p.emotionLatency.Observe(d.Seconds())
}

func (p *Prometheus) ObserveLLMCall(d time.Duration) {
	p.llmLatency.Observe(d.Seconds())
}

func (p *Prometheus) IncPrimaryEmotion(label string) {
	p.primaryEmotions.WithLabelValues(label).Inc()
}

func (p *Prometheus) IncAlignment(aligned bool) {
	p.alignmentResults.WithLabelValues(strconv.FormatBool(aligned)).Inc()
}

// Nop discards every observation.
type Nop struct{}

func (Nop) IncRequest(string)                    {}
func (Nop) ObserveRequestLatency(time.Duration)  {}
func (Nop) ObserveEmotionAnalysis(time.Duration) {}
func (Nop) ObserveLLMCall(time.Duration)         {}
func (Nop) IncPrimaryEmotion(string)             {}
func (Nop) IncAlignment(bool)                    {}
