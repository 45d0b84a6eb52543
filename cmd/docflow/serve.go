package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload server and the ingestion worker in one process",
	Long: `Run upload and ingest side by side over a single object store client.

This is the only way to use INGESTION_SOURCE=store with STORAGE_PROVIDER=local,
because the local store announces new objects to subscribers in the same process.`,
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

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return runUploadServer(gctx, rt, store) })
		g.Go(func() error { return runIngestWorker(gctx, rt, store) })
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
