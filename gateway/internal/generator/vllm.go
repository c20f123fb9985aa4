package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
)

// NewVLLM returns a generator backed by the OpenAI-compatible server of vLLM.
func NewVLLM(baseURL, model string, hc *http.Client, logger logr.Logger) *VLLM {
	return &VLLM{
		backend: backend{baseURL: baseURL, hc: hc, logger: logger.WithName("vllm")},
		model:   model,
	}
}

// VLLM calls the legacy completion API.
type VLLM struct {
	backend
	model string
}

type completion struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate implements Generator. The parameters are sent as top-level fields of the completion request.
func (v *VLLM) Generate(ctx context.Context, inputs string, parameters map[string]any) (string, error) {
	req := mergeParameters(parameters, map[string]any{
		"model":  v.model,
		"prompt": inputs,
		"stream": false,
	})
	var resp completion
	if err := v.post(ctx, "/v1/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choice in the completion")
	}
	return resp.Choices[0].Text, nil
}

func (v *VLLM) readyPath() string {
	return "/health"
}
