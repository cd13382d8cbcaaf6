package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheus(reg)

	rec.IncRequest(StatusSuccess)
	rec.IncRequest(StatusSuccess)
	rec.IncRequest(StatusLLMError)
	rec.IncPrimaryEmotion("sad")
	rec.IncAlignment(true)
	rec.IncAlignment(false)
	rec.IncAlignment(false)
	rec.ObserveLLMCall(300 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.requests.WithLabelValues(StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.requests.WithLabelValues(StatusLLMError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.primaryEmotions.WithLabelValues("sad")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.alignmentResults.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.llmLatency))
}
