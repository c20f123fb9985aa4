package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llmariner/generation-gateway/common/pkg/test"
	"github.com/llmariner/generation-gateway/gateway/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	g, err := New(context.Background(), config.GeneratorConfig{Kind: config.GeneratorKindEcho}, test.NewTestLogger(t))
	require.NoError(t, err)

	got, err := g.Generate(context.Background(), "hello", map[string]any{})
	assert.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(context.Background(), config.GeneratorConfig{Kind: "tgi"}, test.NewTestLogger(t))
	assert.Error(t, err)
}

func TestNew_WaitForBackend(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if probes.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := config.GeneratorConfig{
		Kind:            config.GeneratorKindVLLM,
		Pretrained:      "wizardcoder",
		BaseURL:         srv.URL,
		LoadTimeout:     5 * time.Second,
		LoadRetryPeriod: time.Millisecond,
	}
	g, err := New(context.Background(), c, test.NewTestLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &VLLM{}, g)
	assert.Equal(t, int32(3), probes.Load())
}

func TestNew_BackendNeverReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := config.GeneratorConfig{
		Kind:            config.GeneratorKindTriton,
		BaseURL:         srv.URL,
		LoadTimeout:     50 * time.Millisecond,
		LoadRetryPeriod: 10 * time.Millisecond,
	}
	_, err := New(context.Background(), c, test.NewTestLogger(t))
	assert.Error(t, err)
}

func TestTriton(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/models/ensemble/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model_name":  "ensemble",
			"text_output": "def add(a, b): return a + b",
		})
	}))
	defer srv.Close()

	g := NewTriton(srv.URL, "", srv.Client(), test.NewTestLogger(t))
	text, err := g.Generate(context.Background(), "write add", map[string]any{"max_tokens": 16, "temperature": 0.2})
	require.NoError(t, err)
	assert.Equal(t, "def add(a, b): return a + b", text)

	want := map[string]any{
		"text_input":  "write add",
		"max_tokens":  float64(16),
		"temperature": 0.2,
		"bad_words":   "",
		"stop_words":  "",
	}
	assert.Equal(t, want, got)
}

func TestBuildEnsembleGenerateRequest(t *testing.T) {
	got := buildEnsembleGenerateRequest("hello", map[string]any{"text_input": "ignored"})
	want := map[string]any{
		"text_input": "hello",
		"max_tokens": defaultTritonMaxTokens,
		"bad_words":  "",
		"stop_words": "",
	}
	assert.Equal(t, want, got)
}

func TestOllama(t *testing.T) {
	var got ollamaGenerateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(&ollamaGenerateResponse{Response: "world", Done: true})
	}))
	defer srv.Close()

	g := NewOllama(srv.URL, "wizardcoder:15b", srv.Client(), test.NewTestLogger(t))
	text, err := g.Generate(context.Background(), "hello", map[string]any{"num_predict": 8})
	require.NoError(t, err)
	assert.Equal(t, "world", text)

	assert.Equal(t, "wizardcoder:15b", got.Model)
	assert.Equal(t, "hello", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, map[string]any{"num_predict": float64(8)}, got.Options)
}

func TestVLLM(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"object":"text_completion","choices":[{"index":0,"text":" world"}]}`))
	}))
	defer srv.Close()

	g := NewVLLM(srv.URL, "wizardcoder", srv.Client(), test.NewTestLogger(t))
	text, err := g.Generate(context.Background(), "hello", map[string]any{"max_tokens": 4, "model": "ignored"})
	require.NoError(t, err)
	assert.Equal(t, " world", text)

	assert.Equal(t, "wizardcoder", got["model"])
	assert.Equal(t, "hello", got["prompt"])
	assert.Equal(t, float64(4), got["max_tokens"])
}

func TestVLLM_NoChoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	g := NewVLLM(srv.URL, "wizardcoder", srv.Client(), test.NewTestLogger(t))
	_, err := g.Generate(context.Background(), "hello", nil)
	assert.Error(t, err)
}

func TestBackend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	g := NewOllama(srv.URL, "wizardcoder:15b", srv.Client(), test.NewTestLogger(t))
	_, err := g.Generate(context.Background(), "hello", nil)
	assert.ErrorContains(t, err, "model not loaded")
}

func TestBackend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewTriton(url, "", &http.Client{}, test.NewTestLogger(t))
	_, err := g.Generate(context.Background(), "hello", nil)
	assert.Error(t, err)
}
