package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	testutil "github.com/llmariner/generation-gateway/common/pkg/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveManifest(t *testing.T) {
	const modelID = "TheBloke/WizardCoder-15B-1.0-GPTQ"

	var gotUserAgent, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{
  "id": "TheBloke/WizardCoder-15B-1.0-GPTQ",
  "modelId": "TheBloke/WizardCoder-15B-1.0-GPTQ",
  "sha": "abc123",
  "siblings": [
    {"rfilename": "config.json"},
    {"rfilename": "tokenizer.json"},
    {"rfilename": "gptq_model-4bit-128g.safetensors"},
    {"rfilename": "onnx/model.onnx"},
    {"rfilename": "config.json"}
  ]
}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "Hugging Face Python", "main", srv.Client(), testutil.NewTestLogger(t))
	got, err := c.ResolveManifest(context.Background(), modelID)
	require.NoError(t, err)

	assert.Equal(t, "Hugging Face Python", gotUserAgent)
	assert.Equal(t, "/api/models/TheBloke/WizardCoder-15B-1.0-GPTQ", gotPath)

	want := &ModelManifest{
		ModelID:  modelID,
		Revision: "main",
		SHA:      "abc123",
		Files: []RemoteFileEntry{
			{Path: "config.json"},
			{Path: "tokenizer.json"},
			{Path: "gptq_model-4bit-128g.safetensors"},
			{Path: "onnx/model.onnx"},
			// Duplicates are kept.
			{Path: "config.json"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveManifest_Revision(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"siblings": []}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ua", "v2.0", srv.Client(), testutil.NewTestLogger(t))
	got, err := c.ResolveManifest(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Equal(t, "/api/models/org/model/revision/v2.0", gotPath)
	assert.Empty(t, got.Files)
}

func TestResolveManifest_Errors(t *testing.T) {
	tcs := []struct {
		name       string
		modelID    string
		status     int
		body       string
		wantStatus int
	}{
		{
			name:       "not found",
			modelID:    "org/unknown",
			status:     http.StatusNotFound,
			body:       `{"error": "Repository not found"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "server error",
			modelID:    "org/model",
			status:     http.StatusInternalServerError,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "undecodable body",
			modelID:    "org/model",
			status:     http.StatusOK,
			body:       `not json`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "escaping file path",
			modelID:    "org/model",
			status:     http.StatusOK,
			body:       `{"siblings": [{"rfilename": "config.json"}, {"rfilename": "../../etc/passwd"}]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "absolute file path",
			modelID:    "org/model",
			status:     http.StatusOK,
			body:       `{"siblings": [{"rfilename": "/etc/passwd"}]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "disabled model",
			modelID:    "org/model",
			status:     http.StatusOK,
			body:       `{"disabled": true, "siblings": []}`,
			wantStatus: http.StatusOK,
		},
		{
			name:    "invalid model ID",
			modelID: "org/../model",
		},
		{
			name:    "empty model ID",
			modelID: "",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			var called bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "ua", "main", srv.Client(), testutil.NewTestLogger(t))
			got, err := c.ResolveManifest(context.Background(), tc.modelID)
			assert.Nil(t, got)

			var rerr *RegistryError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, tc.modelID, rerr.ModelID)
			assert.Equal(t, tc.wantStatus, rerr.StatusCode)
			assert.True(t, IsRegistryError(err))
			assert.Equal(t, tc.wantStatus != 0, called)
		})
	}
}

func TestResolveManifest_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, "ua", "main", nil, testutil.NewTestLogger(t))
	_, err := c.ResolveManifest(context.Background(), "org/model")
	assert.True(t, IsRegistryError(err))
}

func TestFileURL(t *testing.T) {
	c := NewClient("https://huggingface.co/", "ua", "main", nil, testutil.NewTestLogger(t))
	assert.Equal(t,
		"https://huggingface.co/TheBloke/WizardCoder-15B-1.0-GPTQ/resolve/main/onnx/model%20v1.onnx",
		c.FileURL("TheBloke/WizardCoder-15B-1.0-GPTQ", "onnx/model v1.onnx"),
	)
}

func TestValidateModelID(t *testing.T) {
	tcs := []struct {
		id      string
		wantErr bool
	}{
		{id: "TheBloke/WizardCoder-15B-1.0-GPTQ"},
		{id: "gpt2"},
		{id: "", wantErr: true},
		{id: "a/b/c", wantErr: true},
		{id: "../b", wantErr: true},
		{id: "a/", wantErr: true},
		{id: `a\b`, wantErr: true},
	}
	for _, tc := range tcs {
		t.Run(tc.id, func(t *testing.T) {
			err := ValidateModelID(tc.id)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
