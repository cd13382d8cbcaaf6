package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHuggingFaceClassifyNestedOutput(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`[[{"label":"sadness","score":0.91},{"label":"joy","score":0.02}]]`))
	}))
	defer srv.Close()

	hf := NewHuggingFace(srv.URL, "secret", "org/emotion-model", time.Second)
	scores, err := hf.Classify(context.Background(), "I feel awful")

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "/models/org/emotion-model", gotPath)
	assert.Equal(t, "I feel awful", gotBody.Inputs)
	assert.Equal(t, []Score{{Label: "sadness", Score: 0.91}, {Label: "joy", Score: 0.02}}, scores)
}

func TestHuggingFaceClassifyFlatOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"LABEL_1","score":0.8},{"label":"LABEL_0","score":0.2}]`))
	}))
	defer srv.Close()

	scores, err := NewHuggingFace(srv.URL, "", "sarcasm", time.Second).Classify(context.Background(), "oh great")

	require.NoError(t, err)
	assert.InDelta(t, 0.8, SarcasmConfidence(scores), 1e-9)
}

func TestHuggingFaceUnauthorizedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	defer srv.Close()

	_, err := NewHuggingFace(srv.URL, "bad", "m", time.Second).Classify(context.Background(), "hi")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestHuggingFaceServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	_, err := NewHuggingFace(srv.URL, "", "m", time.Second).Classify(context.Background(), "hi")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestHuggingFaceMissingModel(t *testing.T) {
	_, err := NewHuggingFace("", "", "", 0).Classify(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestToMapKeepsMaxPerLabel(t *testing.T) {
	got := ToMap([]Score{{Label: "Joy", Score: 0.2}, {Label: "joy", Score: 0.5}, {Label: "anger", Score: 0.1}})
	assert.Equal(t, map[string]float64{"joy": 0.5, "anger": 0.1}, got)
}

func TestLexiconClassifiers(t *testing.T) {
	scores, err := Lexicon{}.Classify(context.Background(), "I am so angry and fed up")
	require.NoError(t, err)
	assert.Greater(t, ToMap(scores)["anger"], ToMap(scores)["neutral"])

	sarcasm, err := SarcasmLexicon{}.Classify(context.Background(), "yeah right, as if that will work")
	require.NoError(t, err)
	assert.Greater(t, SarcasmConfidence(sarcasm), 0.7)
}
