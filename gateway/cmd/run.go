package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-logr/stdr"
	"github.com/llmariner/generation-gateway/gateway/internal/config"
	"github.com/llmariner/generation-gateway/gateway/internal/generator"
	"github.com/llmariner/generation-gateway/gateway/internal/health"
	"github.com/llmariner/generation-gateway/gateway/internal/monitoring"
	"github.com/llmariner/generation-gateway/gateway/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCmd() *cobra.Command {
	var path string
	var logLevel int
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.Parse(path)
			if err != nil {
				return err
			}
			if err := c.Validate(); err != nil {
				return err
			}

			if err := run(cmd.Context(), &c, logLevel); err != nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "config", "", "Path to the config file")
	cmd.Flags().IntVar(&logLevel, "v", 0, "Log level")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, c *config.Config, lv int) error {
	stdr.SetVerbosity(lv)
	logger := stdr.New(log.Default())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := generator.New(ctx, c.Generator, logger)
	if err != nil {
		return fmt.Errorf("create generator: %s", err)
	}

	m := monitoring.NewMetricsMonitor()
	defer m.UnregisterAllCollectors()

	srv := server.New(gen, c.Generator.Concurrency(), m, logger)

	httpSrv := &http.Server{
		Addr:    net.JoinHostPort(c.Host, strconv.Itoa(c.HTTPPort)),
		Handler: server.NewHandler(srv.NewServeMux(), c.CORS.AllowedOrigins),
	}

	monitorMux := http.NewServeMux()
	monitorMux.Handle("/metrics", promhttp.Handler())
	monitorMux.Handle("/ready", health.NewReadinessHandler(logger, srv))
	monitorSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.MonitoringPort),
		Handler: monitorMux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log := logger.WithName("http")
		log.Info("Starting HTTP server...", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %s", err)
		}
		log.Info("Stopped HTTP server")
		return nil
	})
	g.Go(func() error {
		log := logger.WithName("monitoring")
		log.Info("Starting monitoring server...", "port", c.MonitoringPort)
		if err := monitorSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve monitoring: %s", err)
		}
		log.Info("Stopped monitoring server")
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down", "timeout", c.GracefulShutdownTimeout)
		srv.Drain()

		// In-flight generations run to completion unless the timeout passes.
		sctx, cancel := context.WithTimeout(context.Background(), c.GracefulShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			logger.Error(err, "Failed to shut down the HTTP server gracefully")
		}
		return monitorSrv.Shutdown(sctx)
	})
	return g.Wait()
}
