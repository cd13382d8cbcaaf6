package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultHFBaseURL = "https://router.huggingface.co/hf-inference"

// HuggingFace calls a text-classification model on the Hugging Face inference API
// or any server speaking the same protocol.
type HuggingFace struct {
	baseURL string
	token   string
	model   string
	client  *http.Client
}

// NewHuggingFace creates a client for one model.
func NewHuggingFace(baseURL, token, model string, timeout time.Duration) *HuggingFace {
	if baseURL == "" {
		baseURL = defaultHFBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HuggingFace{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type hfRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type hfError struct {
	Error string `json:"error"`
}

func (h *HuggingFace) Model() string { return h.model }

// Classify returns every label score for text. Auth and not-found responses wrap ErrUnavailable.
func (h *HuggingFace) Classify(ctx context.Context, text string) ([]Score, error) {
	if h.model == "" {
		return nil, fmt.Errorf("%w: model not configured", ErrUnavailable)
	}

	body, err := json.Marshal(hfRequest{
		Inputs:     text,
		Parameters: map[string]any{"top_k": nil},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read inference response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrUnavailable, h.model, resp.StatusCode, errorMessage(payload))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("inference error (status %d): %s", resp.StatusCode, errorMessage(payload))
	}

	return decodeScores(payload)
}

// decodeScores accepts both [[{label,score}]] and [{label,score}].
func decodeScores(payload []byte) ([]Score, error) {
	var nested [][]Score
	if err := json.Unmarshal(payload, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, fmt.Errorf("empty inference output")
		}
		return nested[0], nil
	}

	var flat []Score
	if err := json.Unmarshal(payload, &flat); err != nil {
		return nil, fmt.Errorf("unexpected inference output: %w", err)
	}
	if len(flat) == 0 {
		return nil, fmt.Errorf("empty inference output")
	}
	return flat, nil
}

func errorMessage(payload []byte) string {
	var e hfError
	if err := json.Unmarshal(payload, &e); err == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
