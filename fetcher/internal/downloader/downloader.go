package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/fetcher/internal/progress"
	"github.com/llmariner/generation-gateway/fetcher/internal/registry"
)

// chunkSize is the size of the blocks a response body is read and written in.
const chunkSize = 1024

type manifestResolver interface {
	ResolveManifest(ctx context.Context, modelID string) (*registry.ModelManifest, error)
	FileURL(modelID, path string) string
}

// Task is a single file transfer.
type Task struct {
	URL  string
	Path string
}

// New returns a new downloader.
func New(
	resolver manifestResolver,
	hc *http.Client,
	reporter progress.Reporter,
	logger logr.Logger,
) *D {
	if hc == nil {
		hc = &http.Client{}
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &D{
		resolver: resolver,
		hc:       hc,
		reporter: reporter,
		logger:   logger.WithName("downloader"),
	}
}

// D is a downloader.
type D struct {
	resolver manifestResolver
	hc       *http.Client
	reporter progress.Reporter
	logger   logr.Logger
}

// ModelDir returns the directory the files of the model are downloaded into.
func ModelDir(destDir, modelID string) string {
	return filepath.Join(destDir, filepath.FromSlash(modelID))
}

// Tasks returns the transfers of the manifest files, in manifest order.
func Tasks(m *registry.ModelManifest, destDir string, fileURL func(modelID, path string) string) []Task {
	modelDir := ModelDir(destDir, m.ModelID)
	tasks := make([]Task, 0, len(m.Files))
	for _, f := range m.Files {
		tasks = append(tasks, Task{
			URL:  fileURL(m.ModelID, f.Path),
			Path: filepath.Join(modelDir, filepath.FromSlash(f.Path)),
		})
	}
	return tasks
}

// FetchModel downloads all files of the model into "destDir/modelID/".
//
// Files are downloaded one by one in manifest order. The first failure aborts the
// run; files written before the failure are left in place.
func (d *D) FetchModel(ctx context.Context, modelID, destDir string) (*registry.ModelManifest, error) {
	m, err := d.resolver.ResolveManifest(ctx, modelID)
	if err != nil {
		return nil, err
	}

	modelDir := ModelDir(destDir, modelID)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %q: %s", modelDir, err)
	}

	tasks := Tasks(m, destDir, d.resolver.FileURL)
	for i, t := range tasks {
		// Cancellation is only honored between files.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d.logger.Info("Downloading file", "index", i+1, "total", len(tasks), "file", m.Files[i].Path)
		if err := d.DownloadFile(ctx, t.URL, t.Path); err != nil {
			return nil, err
		}
	}
	d.logger.Info("Downloaded the model", "modelID", modelID, "dir", modelDir, "files", len(tasks))
	return m, nil
}

// DownloadFile streams the URL into the file at the path, overwriting it if it exists.
func (d *D) DownloadFile(ctx context.Context, url, path string) error {
	terr := func(status int, err error) error {
		return &TransferError{URL: url, Path: path, StatusCode: status, Err: err}
	}

	// A transfer is not interrupted once started; FetchModel checks ctx between files.
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, url, nil)
	if err != nil {
		return terr(0, fmt.Errorf("create request: %s", err))
	}
	resp, err := d.hc.Do(req)
	if err != nil {
		return terr(0, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 512))
		if err != nil {
			d.logger.Error(err, "Failed to read the error body", "url", url)
		}
		return terr(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return terr(resp.StatusCode, fmt.Errorf("create directory: %s", err))
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return terr(resp.StatusCode, fmt.Errorf("create file: %s", err))
	}

	// ContentLength is -1 when the server does not advertise it.
	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	tracker := d.reporter.Start(filepath.Base(path), total)
	n, err := copyChunks(f, resp.Body, tracker)
	tracker.Done()
	if err != nil {
		_ = f.Close()
		return terr(resp.StatusCode, err)
	}
	if err := f.Close(); err != nil {
		return terr(resp.StatusCode, fmt.Errorf("close file: %s", err))
	}
	d.logger.V(2).Info("Wrote file", "path", path, "bytes", n)
	return nil
}

// copyChunks copies src to dst in blocks of at most chunkSize bytes, advancing the
// tracker before each write.
func copyChunks(dst io.Writer, src io.Reader, tracker progress.Tracker) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			tracker.Add(n)
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, fmt.Errorf("write: %s", err)
			}
			written += int64(n)
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return written, nil
			}
			return written, fmt.Errorf("read: %w", rerr)
		}
	}
}
