package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"blueprint/internal/blobstore"
	"blueprint/internal/config"
	"blueprint/internal/notify"
	"blueprint/internal/server"
	"blueprint/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the blueprint API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cfg.DBPath == "" {
				return fmt.Errorf("db path is required")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.APIURL)
			if err != nil {
				return err
			}

			logger.Info("opening database", "path", cfg.DBPath)
			st, err := store.Open(cfg.DBPath, store.WithAssetQuota(cfg.Assets.MaxBytes))
			if err != nil {
				return err
			}
			defer st.Close()

			var assets blobstore.Store = st
			if cfg.Assets.Backend == config.AssetBackendLocal {
				logger.Info("using local asset directory", "path", cfg.BlobDir())
				local, err := blobstore.NewLocalStore(cfg.BlobDir(), blobstore.WithMaxBytes(cfg.Assets.MaxBytes))
				if err != nil {
					return err
				}
				defer local.Close()
				assets = local
			}

			clock := clockwork.NewRealClock()
			bus := notify.NewLocalBus(logger)
			center := notify.NewCenter(notify.CenterOptions{
				Clock:         clock,
				BaseDuration:  cfg.Notifications.BaseDuration.Duration,
				ExitAnimation: cfg.Notifications.ExitAnimation.Duration,
				MaxVisible:    cfg.Notifications.MaxVisible,
				Logger:        logger,
			})

			srv, err := server.New(addr, server.Options{
				Projects:      st,
				Assets:        assets,
				AssetBackend:  cfg.Assets.Backend,
				Center:        center,
				Bus:           bus,
				Clock:         clock,
				DeletionGrace: cfg.Deletion.GracePeriod.Duration,
				MaxRetries:    cfg.Assets.MaxRetries,
				Logger:        logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx)
		},
	}
}
