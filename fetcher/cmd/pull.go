package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/llmariner/generation-gateway/fetcher/internal/config"
	"github.com/llmariner/generation-gateway/fetcher/internal/downloader"
	"github.com/llmariner/generation-gateway/fetcher/internal/mirror"
	"github.com/llmariner/generation-gateway/fetcher/internal/progress"
	"github.com/llmariner/generation-gateway/fetcher/internal/registry"
	"github.com/llmariner/generation-gateway/fetcher/internal/s3"
	"github.com/spf13/cobra"
)

const defaultModelID = "TheBloke/WizardCoder-15B-1.0-GPTQ"

// pullCmd creates a new pull command.
// pull command downloads all files of a model into "<destination>/<model ID>/".
// Existing files are overwritten.
func pullCmd() *cobra.Command {
	var (
		modelID     string
		destination string
		path        string
		mirrorToS3  bool
		logLevel    int
	)
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "pull",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := config.Default()
			if path != "" {
				var err error
				if c, err = config.Parse(path); err != nil {
					return err
				}
			}
			if destination != "" {
				c.DestinationFolder = destination
			}
			if err := c.Validate(); err != nil {
				return err
			}
			if mirrorToS3 && !c.ObjectStore.Enabled() {
				return fmt.Errorf("--mirror requires objectStore.s3 in the config file")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					// Let a second signal terminate the process while a file is still being written.
					stop()
					log.Printf("Stopping after the current file. Interrupt again to abort immediately.\n")
				case <-done:
				}
			}()

			return pull(ctx, &c, modelID, mirrorToS3, logLevel)
		},
	}
	cmd.Flags().StringVar(&modelID, "model-id", defaultModelID, "ID of the model to download (owner/name)")
	cmd.Flags().StringVar(&destination, "destination", "", "Folder to download the model into (default: destinationFolder of the config, or \"models\")")
	cmd.Flags().StringVar(&path, "config", "", "Path to the config file")
	cmd.Flags().BoolVar(&mirrorToS3, "mirror", false, "Upload the downloaded model to the configured object store")
	cmd.Flags().IntVar(&logLevel, "v", 0, "Log level")
	return cmd
}

func pull(ctx context.Context, c *config.Config, modelID string, mirrorToS3 bool, lv int) error {
	stdr.SetVerbosity(lv)
	logger := stdr.New(log.Default())

	hc := &http.Client{}
	rc := registry.NewClient(c.Registry.BaseURL, c.Registry.UserAgent, c.Registry.Revision, hc, logger)

	var reporter progress.Reporter = progress.Nop{}
	if !c.Progress.Disable {
		reporter = progress.NewLogReporter(logger, c.Progress.Interval)
	}

	d := downloader.New(rc, hc, reporter, logger)
	m, err := d.FetchModel(ctx, modelID, c.DestinationFolder)
	if err != nil {
		return reportFetchError(logger, modelID, c.DestinationFolder, err)
	}
	log.Printf("Successfully pulled the model %q into %q\n", modelID, downloader.ModelDir(c.DestinationFolder, modelID))

	if !mirrorToS3 {
		return nil
	}

	s3Client, err := s3.NewClient(ctx, c.ObjectStore.S3)
	if err != nil {
		return err
	}
	mr := mirror.New(s3Client, c.ObjectStore.S3.PathPrefix, logger)
	if err := mr.Mirror(ctx, m, c.DestinationFolder); err != nil {
		return fmt.Errorf("mirror to s3://%s: %w", s3Client.Bucket(), err)
	}
	return nil
}

func reportFetchError(logger logr.Logger, modelID, destDir string, err error) error {
	switch {
	case registry.IsRegistryError(err):
		logger.Error(err, "Failed to resolve the model. No file has been written", "modelID", modelID)
	case downloader.IsTransferError(err):
		// Files written before the failure are kept, so the partial state is visible on disk.
		logger.Error(err, "Failed to download a file. The model directory is incomplete", "modelID", modelID, "dir", downloader.ModelDir(destDir, modelID))
	}
	return fmt.Errorf("pull %q: %w", modelID, err)
}

