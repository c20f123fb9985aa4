package generator

import (
	"context"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/common/pkg/models"
)

// NewOllama returns a generator backed by an Ollama server. model is either an Ollama
// model name or a Hugging Face repository ID.
func NewOllama(baseURL, model string, hc *http.Client, logger logr.Logger) *Ollama {
	return &Ollama{
		backend: backend{baseURL: baseURL, hc: hc, logger: logger.WithName("ollama")},
		model:   models.OllamaModelName(model),
	}
}

// Ollama calls the generate API of Ollama without streaming.
type Ollama struct {
	backend
	model string
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate implements Generator. The parameters are passed as model options.
func (o *Ollama) Generate(ctx context.Context, inputs string, parameters map[string]any) (string, error) {
	req := &ollamaGenerateRequest{
		Model:   o.model,
		Prompt:  inputs,
		Stream:  false,
		Options: parameters,
	}
	var resp ollamaGenerateResponse
	if err := o.post(ctx, "/api/generate", req, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (o *Ollama) readyPath() string {
	return "/api/version"
}
