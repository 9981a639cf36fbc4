package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/doctech/internal/health"
	"github.com/nadzzz/doctech/internal/transport"
	grpctransport "github.com/nadzzz/doctech/internal/transport/grpc"
	httptransport "github.com/nadzzz/doctech/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and gRPC front ends",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("doctech starting", zap.String("version", version))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("release backends", zap.Error(err))
		}
	}()

	var transports []transport.Transport
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP, logger))
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, logger))
	}

	healthServer := health.New(cfg.Server.HealthPort, logger)
	for name, check := range a.checks {
		healthServer.AddCheck(name, check)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return healthServer.ListenAndServe(gctx) })
	for _, t := range transports {
		t := t
		g.Go(func() error {
			logger.Info("starting transport", zap.String("name", t.Name()))
			return t.Listen(gctx, a.dispatcher)
		})
	}

	healthServer.SetReady(true)
	logger.Info("doctech ready",
		zap.Int("transports", len(transports)),
		zap.Int("health_port", cfg.Server.HealthPort))

	err = g.Wait()
	healthServer.SetReady(false)
	if err != nil && ctx.Err() == nil {
		logger.Error("server failed", zap.Error(err))
		return err
	}
	logger.Info("doctech stopped")
	return nil
}
