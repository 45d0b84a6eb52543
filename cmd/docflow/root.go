package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/docflow/pkg/config"
	"github.com/your-org/docflow/pkg/logger"
	"github.com/your-org/docflow/pkg/storage/objectstore"
	"github.com/your-org/docflow/pkg/tracing"
)

var rootCmd = &cobra.Command{
	Use:   "docflow",
	Short: "Upload documents to an object store and parse them when they land",
	Long: `docflow accepts XML documents over HTTP, writes them to an object store and
parses every stored object when the store reports its creation.

All settings come from the environment (see pkg/config).`,
	SilenceUsage: true,
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime holds what every long-running subcommand needs.
type runtime struct {
	cfg           *config.Config
	logger        *zap.Logger
	traceShutdown func(context.Context) error
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg.App.LogLevel, cfg.App.Environment)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	})
	if err != nil {
		logr.Sync() //nolint:errcheck
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	return &runtime{cfg: cfg, logger: logr, traceShutdown: traceShutdown}, nil
}

func (rt *runtime) openStore(ctx context.Context) (objectstore.Client, error) {
	store, err := objectstore.New(ctx, objectstore.Config{
		Provider:  rt.cfg.Storage.Provider,
		Endpoint:  rt.cfg.Storage.Endpoint,
		Region:    rt.cfg.Storage.Region,
		AccessKey: rt.cfg.Storage.AccessKey,
		SecretKey: rt.cfg.Storage.SecretKey,
		UseSSL:    rt.cfg.Storage.UseSSL,
		LocalPath: rt.cfg.Storage.LocalPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	return store, nil
}

func (rt *runtime) close() {
	if err := rt.traceShutdown(context.Background()); err != nil {
		rt.logger.Warn("tracing shutdown failed", zap.Error(err))
	}
	rt.logger.Sync() //nolint:errcheck
}
