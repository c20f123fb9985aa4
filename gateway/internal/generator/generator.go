package generator

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/gateway/internal/config"
)

// Generator produces text for the given inputs.
//
// Implementations are not required to be safe for concurrent use. The server
// serializes calls unless it is configured otherwise.
type Generator interface {
	Generate(ctx context.Context, inputs string, parameters map[string]any) (string, error)
}

// New creates the generator selected by the configuration. HTTP-backed generators
// block until their backend reports ready or the load timeout passes.
func New(ctx context.Context, c config.GeneratorConfig, logger logr.Logger) (Generator, error) {
	log := logger.WithName("generator")
	hc := &http.Client{}

	switch c.Kind {
	case config.GeneratorKindEcho:
		log.Info("Using the echo generator")
		return &Echo{}, nil
	case config.GeneratorKindTriton:
		g := NewTriton(c.BaseURL, c.Pretrained, hc, log)
		if err := waitForBackend(ctx, hc, c, g.readyPath(), log); err != nil {
			return nil, err
		}
		return g, nil
	case config.GeneratorKindOllama:
		g := NewOllama(c.BaseURL, c.Pretrained, hc, log)
		if err := waitForBackend(ctx, hc, c, g.readyPath(), log); err != nil {
			return nil, err
		}
		return g, nil
	case config.GeneratorKindVLLM:
		g := NewVLLM(c.BaseURL, c.Pretrained, hc, log)
		if err := waitForBackend(ctx, hc, c, g.readyPath(), log); err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown generator kind %q", c.Kind)
	}
}

// Echo returns the inputs unchanged.
type Echo struct{}

// Generate implements Generator.
func (e *Echo) Generate(ctx context.Context, inputs string, parameters map[string]any) (string, error) {
	return inputs, nil
}
