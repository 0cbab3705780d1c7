package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blueprint/internal/api"
	"blueprint/internal/config"
)

func newInfoCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database, asset and notification counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetInfo(cmd.Context())
				if err != nil {
					return err
				}

				if output.Structured() {
					return writeStructured(resp)
				}

				_ = writePlain("db_path: %s\n", cfg.DBPath)
				_ = writePlain("schema_version: %d\n", resp.SchemaVersion)
				_ = writePlain("asset_backend: %s\n", resp.AssetBackend)
				_ = writePlain("total_projects: %d\n", resp.TotalProjects)
				_ = writePlain("total_assets: %d (%s)\n", resp.TotalAssets, humanize.IBytes(uint64(resp.AssetBytes)))
				_ = writePlain("live_object_urls: %d\n", resp.LiveObjectURLs)
				_ = writePlain("resolution_sessions: %d\n", resp.ResolutionSessions)
				_ = writePlain("pending_deletions: %d\n", resp.PendingDeletions)
				_ = writePlain("active_notifications: %d\n", resp.ActiveNotifications)
				return nil
			})
		},
	}
	return cmd
}
