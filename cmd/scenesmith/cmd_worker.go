package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scenesmith/internal/buildjob"
	"scenesmith/internal/config"
	"scenesmith/internal/objectstore"
	"scenesmith/internal/store"
)

// workerCmd runs the asynchronous build daemon: poll workers plus the
// stale-job reclaimer, until interrupted.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the asynchronous build worker daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.New(cfg.Store.DataDir)
		if err != nil {
			return err
		}
		defer st.Close()

		artifacts, err := openArtifactStore(ctx)
		if err != nil {
			return err
		}

		svc := buildjob.New(st, artifacts, workerConfig(), logger)
		return svc.Run(ctx)
	},
}

func workerConfig() buildjob.Config {
	def := buildjob.DefaultConfig()
	return buildjob.Config{
		Workers:         max(cfg.Worker.Workers, 1),
		PollInterval:    config.Duration(cfg.Worker.PollInterval, def.PollInterval),
		BuildTimeout:    config.Duration(cfg.Worker.BuildTimeout, def.BuildTimeout),
		ReclaimInterval: config.Duration(cfg.Worker.ReclaimInterval, def.ReclaimInterval),
		StaleAfter:      config.Duration(cfg.Worker.StaleAfter, def.StaleAfter),
		MaxRetries:      cfg.Worker.MaxRetries,
	}
}

func openArtifactStore(ctx context.Context) (objectstore.Store, error) {
	switch cfg.Storage.Backend {
	case "minio":
		return objectstore.NewMinioStore(ctx, objectstore.MinioConfig{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.AccessKey,
			SecretKey: cfg.Storage.Minio.SecretKey,
			Bucket:    cfg.Storage.Minio.Bucket,
			UseSSL:    cfg.Storage.Minio.UseSSL,
		})
	case "", "local":
		return objectstore.NewLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
