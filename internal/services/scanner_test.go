package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NapatKulnarong/SkinMatch-sub001/internal/config"
	"github.com/NapatKulnarong/SkinMatch-sub001/internal/quiz"
)

func newTestAIClient(t *testing.T, handler http.Handler) *AIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewAIClient(config.ScannerConfig{
		BaseURL:    srv.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestAnalyzeLabelParsesVerdict(t *testing.T) {
	var gotAuth string
	ai := newTestAIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/generate", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		verdict := `{"overall":"mostly fine","ingredients":[{"name":"niacinamide","rating":"good","note":"brightening"}],"warnings":["patch test"]}`
		json.NewEncoder(w).Encode(map[string]string{"text": verdict})
	}))
	scanner := NewScannerService(ai, zap.NewNop())

	profile := &quiz.SkinProfile{SkinType: "oily", PrimaryConcern: "acne", Sensitivity: "sensitive"}
	verdict, err := scanner.AnalyzeLabel(context.Background(), "Niacinamide, Water", profile)

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "mostly fine", verdict.Overall)
	require.Len(t, verdict.Ingredients, 1)
	assert.Equal(t, "niacinamide", verdict.Ingredients[0].Name)
	assert.Equal(t, []string{"patch test"}, verdict.Warnings)
}

func TestAnalyzeLabelStripsMarkdownFence(t *testing.T) {
	ai := newTestAIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := "```json\n{\"overall\":\"ok\",\"ingredients\":[],\"warnings\":[]}\n```"
		json.NewEncoder(w).Encode(map[string]string{"text": text})
	}))
	scanner := NewScannerService(ai, zap.NewNop())

	verdict, err := scanner.AnalyzeLabel(context.Background(), "Water", nil)

	require.NoError(t, err)
	assert.Equal(t, "ok", verdict.Overall)
}

func TestAIClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	ai := newTestAIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "routine advice"})
	}))

	text, err := ai.GenerateText(context.Background(), "system", "user")

	require.NoError(t, err)
	assert.Equal(t, "routine advice", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAIClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	ai := newTestAIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))

	_, err := ai.GenerateText(context.Background(), "system", "user")

	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnalyzeLabelWithoutClient(t *testing.T) {
	scanner := NewScannerService(nil, zap.NewNop())

	_, err := scanner.AnalyzeLabel(context.Background(), "Water", nil)

	assert.ErrorIs(t, err, ErrScannerDisabled)
	assert.False(t, scanner.Enabled())
}

func TestAnalyzeLabelRejectsEmptyInput(t *testing.T) {
	ai := newTestAIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty input")
	}))
	scanner := NewScannerService(ai, zap.NewNop())

	_, err := scanner.AnalyzeLabel(context.Background(), "   ", nil)

	require.Error(t, err)
}
