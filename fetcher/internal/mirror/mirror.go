package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/go-logr/logr"
	"github.com/llmariner/generation-gateway/fetcher/internal/downloader"
	"github.com/llmariner/generation-gateway/fetcher/internal/registry"
)

type s3Client interface {
	Upload(ctx context.Context, r io.Reader, key string) error
	ListObjectsPages(ctx context.Context, prefix string, f func(page *s3.ListObjectsV2Output, lastPage bool) bool) error
}

// New returns a new mirror.
func New(s3Client s3Client, pathPrefix string, logger logr.Logger) *M {
	return &M{
		s3Client:   s3Client,
		pathPrefix: pathPrefix,
		logger:     logger.WithName("mirror"),
	}
}

// M uploads fetched models to an object store.
type M struct {
	s3Client   s3Client
	pathPrefix string
	logger     logr.Logger
}

// ObjectKey returns the key the file of the model is stored at.
func (m *M) ObjectKey(modelID, filePath string) string {
	return path.Join(m.pathPrefix, modelID, filePath)
}

// Mirror uploads the files of the manifest from the local model directory.
// Files are uploaded one by one in manifest order and the first failure aborts the run.
func (m *M) Mirror(ctx context.Context, manifest *registry.ModelManifest, destDir string) error {
	modelDir := downloader.ModelDir(destDir, manifest.ModelID)
	for _, f := range manifest.Files {
		key := m.ObjectKey(manifest.ModelID, f.Path)
		m.logger.Info("Uploading file", "file", f.Path, "key", key)
		if err := m.upload(ctx, filepath.Join(modelDir, filepath.FromSlash(f.Path)), key); err != nil {
			if isAccessDenied(err) {
				return fmt.Errorf("upload %q: access denied to the bucket: %w", key, err)
			}
			return fmt.Errorf("upload %q: %w", key, err)
		}
	}

	prefix := m.ObjectKey(manifest.ModelID, "") + "/"
	var n int
	if err := m.s3Client.ListObjectsPages(ctx, prefix, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		n += len(page.Contents)
		return true
	}); err != nil {
		// Listing is informational. Uploads have already succeeded.
		m.logger.Error(err, "Failed to list mirrored objects", "prefix", prefix)
		return nil
	}
	m.logger.Info("Mirrored the model", "modelID", manifest.ModelID, "prefix", prefix, "objects", n)
	return nil
}

func (m *M) upload(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return m.s3Client.Upload(ctx, f, key)
}

func isAccessDenied(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied"
}
