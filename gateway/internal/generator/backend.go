package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/gateway/internal/config"
	"github.com/llmariner/generation-gateway/gateway/internal/httputil"
)

const (
	readyRequestTimeout = 5 * time.Second

	// maxErrorBodyLen caps the backend response body copied into an error.
	maxErrorBodyLen = 1024
)

// backend is a JSON-over-HTTP inference server.
type backend struct {
	baseURL string
	hc      *http.Client
	logger  logr.Logger
}

func (b *backend) post(ctx context.Context, path string, reqBody, respBody any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %s", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := b.hc.Do(req)
	if err != nil {
		return fmt.Errorf("send request to %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		eb, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		if err != nil {
			// Gracefully handle the error.
			b.logger.Error(err, "Failed to read the body")
		}
		b.logger.Info("Received an error response", "code", resp.StatusCode, "status", resp.Status, "body", string(eb))
		return fmt.Errorf("backend returned %s: %s", resp.Status, eb)
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("decode response: %s", err)
	}
	return nil
}

// waitForBackend polls the readiness endpoint of the backend until it responds with 200.
func waitForBackend(ctx context.Context, hc *http.Client, c config.GeneratorConfig, readyPath string, logger logr.Logger) error {
	u, err := url.Parse(c.BaseURL + readyPath)
	if err != nil {
		return fmt.Errorf("parse backend url: %s", err)
	}

	logger.Info("Waiting for the backend to be ready", "kind", c.Kind, "url", u.String(), "timeout", c.LoadTimeout)
	ctx, cancel := context.WithTimeout(ctx, c.LoadTimeout)
	defer cancel()

	retry := func(status int, err error) (bool, error) {
		if err == nil && status == http.StatusOK {
			return false, nil
		}
		logger.V(1).Info("Backend is not ready", "status", status, "error", err)
		return true, nil
	}
	if err := httputil.SendHTTPRequestWithRetry(ctx, hc, *u, http.MethodGet, nil, retry, readyRequestTimeout, c.LoadRetryPeriod, -1); err != nil {
		return fmt.Errorf("wait for the %s backend: %s", c.Kind, err)
	}
	logger.Info("Backend is ready", "kind", c.Kind)
	return nil
}

// mergeParameters returns a request body holding the generation parameters and the given fields.
// The given fields take precedence.
func mergeParameters(parameters map[string]any, fields map[string]any) map[string]any {
	m := make(map[string]any, len(parameters)+len(fields))
	for k, v := range parameters {
		m[k] = v
	}
	for k, v := range fields {
		m[k] = v
	}
	return m
}
