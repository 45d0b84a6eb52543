package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/docflow/internal/upload"
	"github.com/your-org/docflow/pkg/storage/objectstore"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Serve the HTTP upload endpoints",
	Long: `Serve PUT /product/{container}/{key} (explicit placement) and PUT /product
(generated key in UPLOAD_DEFAULT_CONTAINER).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer rt.close()

		store, err := rt.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		return runUploadServer(ctx, rt, store)
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

func runUploadServer(ctx context.Context, rt *runtime, store objectstore.Client) error {
	cfg := rt.cfg

	service := upload.NewService(upload.Params{
		Router: upload.NewRouter(upload.RouterConfig{
			DefaultContainer:  cfg.Upload.DefaultContainer,
			AllowedContainers: cfg.Upload.AllowedContainers,
			KeyPrefix:         cfg.Upload.GeneratedKeyPrefix,
		}),
		Store:  store,
		Logger: rt.logger,
	})

	if len(cfg.Auth.APIKeys) == 0 {
		rt.logger.Warn("AUTH_API_KEYS is empty, upload endpoints accept unauthenticated requests")
	}

	handler := upload.NewHTTPHandler(service, rt.logger, upload.HTTPConfig{
		MaxSizeBytes:   cfg.Upload.MaxSizeBytes,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		APIKeys:        cfg.Auth.APIKeys,
		APIKeyHeader:   cfg.Auth.Header,
		RateLimit:      cfg.Upload.RateLimit,
		RateBurst:      cfg.Upload.RateBurst,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			rt.logger.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	rt.logger.Info("upload service starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("default_container", cfg.Upload.DefaultContainer),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
