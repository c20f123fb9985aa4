package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
)

// maxErrorBodySize bounds how much of an error response body is kept in an error message.
const maxErrorBodySize = 512

// NewClient creates a new registry client.
func NewClient(
	baseURL string,
	userAgent string,
	revision string,
	hc *http.Client,
	logger logr.Logger,
) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userAgent: userAgent,
		revision:  revision,
		hc:        hc,
		logger:    logger.WithName("registry"),
	}
}

// Client looks up model manifests in a Hugging Face Hub compatible registry.
type Client struct {
	baseURL   string
	userAgent string
	revision  string

	hc     *http.Client
	logger logr.Logger
}

// ResolveManifest looks up the model and returns the files it consists of.
//
// The files keep the order of the registry response. Duplicates are not removed.
func (c *Client) ResolveManifest(ctx context.Context, modelID string) (*ModelManifest, error) {
	if err := ValidateModelID(modelID); err != nil {
		return nil, &RegistryError{ModelID: modelID, Err: err}
	}

	u := c.baseURL + "/api/models/" + escapePath(modelID)
	if c.revision != "" && c.revision != "main" {
		u += "/revision/" + url.PathEscape(c.revision)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &RegistryError{ModelID: modelID, Err: fmt.Errorf("create request: %s", err)}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.V(1).Info("Looking up model", "modelID", modelID, "url", u)
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &RegistryError{ModelID: modelID, Err: fmt.Errorf("send request: %w", err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			c.logger.Error(err, "Failed to read the error body")
		}
		return nil, &RegistryError{
			ModelID:    modelID,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(body))),
		}
	}

	var info modelInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &RegistryError{ModelID: modelID, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %s", err)}
	}
	if info.Disabled {
		return nil, &RegistryError{ModelID: modelID, StatusCode: resp.StatusCode, Err: fmt.Errorf("model is disabled")}
	}

	m := &ModelManifest{
		ModelID:  modelID,
		Revision: c.revision,
		SHA:      info.SHA,
	}
	for _, s := range info.Siblings {
		if err := validateFilePath(s.RFilename); err != nil {
			return nil, &RegistryError{ModelID: modelID, StatusCode: resp.StatusCode, Err: err}
		}
		m.Files = append(m.Files, RemoteFileEntry{Path: s.RFilename})
	}
	c.logger.Info("Resolved model manifest", "modelID", modelID, "sha", m.SHA, "files", len(m.Files))
	return m, nil
}

// FileURL returns the URL the file of the model is served at.
func (c *Client) FileURL(modelID, path string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", c.baseURL, escapePath(modelID), url.PathEscape(c.revision), escapePath(path))
}

// ValidateModelID checks that the model ID is "owner/name" (or a bare legacy
// "name") and cannot address anything outside of a model directory.
func ValidateModelID(modelID string) error {
	if modelID == "" {
		return fmt.Errorf("model ID must be set")
	}
	segs := strings.Split(modelID, "/")
	if len(segs) > 2 {
		return fmt.Errorf("model ID must be of the form owner/name")
	}
	for _, s := range segs {
		if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `\`) {
			return fmt.Errorf("invalid model ID %q", modelID)
		}
	}
	return nil
}

func validateFilePath(p string) error {
	if p == "" {
		return fmt.Errorf("empty file path in manifest")
	}
	// We need to reject ".." and absolute paths. Otherwise a manifest can
	// write outside of the model directory.
	if strings.Contains(p, `\`) || !filepath.IsLocal(filepath.FromSlash(p)) {
		return fmt.Errorf("invalid file path %q in manifest", p)
	}
	return nil
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
