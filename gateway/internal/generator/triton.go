package generator

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-logr/logr"
)

const (
	defaultTritonModel     = "ensemble"
	defaultTritonMaxTokens = 1024
)

// NewTriton returns a generator backed by a Triton Inference Server ensemble model.
func NewTriton(baseURL, model string, hc *http.Client, logger logr.Logger) *Triton {
	if model == "" {
		model = defaultTritonModel
	}
	return &Triton{
		backend: backend{baseURL: baseURL, hc: hc, logger: logger.WithName("triton")},
		model:   model,
	}
}

// Triton calls the generate extension of Triton Inference Server.
type Triton struct {
	backend
	model string
}

type ensembleGenerateResponse struct {
	TextOutput string `json:"text_output"`
}

// buildEnsembleGenerateRequest builds the request body. max_tokens, bad_words and stop_words
// get defaults unless the parameters set them.
func buildEnsembleGenerateRequest(inputs string, parameters map[string]any) map[string]any {
	req := mergeParameters(map[string]any{
		"max_tokens": defaultTritonMaxTokens,
		"bad_words":  "",
		"stop_words": "",
	}, parameters)
	req["text_input"] = inputs
	return req
}

// Generate implements Generator.
func (t *Triton) Generate(ctx context.Context, inputs string, parameters map[string]any) (string, error) {
	t.logger.V(1).Info("Forwarding the request to Triton Inference Server", "model", t.model)
	var resp ensembleGenerateResponse
	if err := t.post(ctx, "/v2/models/"+url.PathEscape(t.model)+"/generate", buildEnsembleGenerateRequest(inputs, parameters), &resp); err != nil {
		return "", err
	}
	return resp.TextOutput, nil
}

func (t *Triton) readyPath() string {
	return "/v2/health/ready"
}
