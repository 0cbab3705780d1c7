package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blueprint/internal/api"
	"blueprint/internal/config"
)

func newNotifyCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Inspect and act on server notifications",
	}

	cmd.AddCommand(newNotifyLsCmd(cfg, output))
	for _, action := range []struct{ name, short string }{
		{"dismiss", "Dismiss notifications"},
		{"pause", "Pause notification countdowns"},
		{"resume", "Resume notification countdowns"},
		{"undo", "Run the undo action of notifications"},
	} {
		cmd.AddCommand(newNotifyActionCmd(cfg, output, action.name, action.short))
	}
	return cmd
}

func newNotifyLsCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List visible notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				items, err := client.ListNotifications(cmd.Context())
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(items)
				}
				for _, n := range items {
					_ = writePlain("%s\n", formatNotificationLine(n))
				}
				announcement, err := client.Announcement(cmd.Context())
				if err != nil {
					return err
				}
				if announcement.Text != "" {
					_ = writePlain("announce: %s\n", announcement.Text)
				}
				return nil
			})
		},
	}
}

func newNotifyActionCmd(cfg *config.Config, output *outputMode, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id> [<id>...]",
		Short: short,
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				results := make([]api.NotificationActionResponse, 0, len(args))
				for _, id := range args {
					resp, err := client.NotificationAction(cmd.Context(), id, action)
					if err != nil {
						return fmt.Errorf("%s %s: %w", action, id, err)
					}
					results = append(results, resp)
				}
				if output.Structured() {
					return writeStructured(results)
				}
				for _, resp := range results {
					state := "applied"
					if !resp.Applied {
						state = "no change"
					}
					_ = writePlain("%s %s: %s\n", resp.Action, resp.ID, state)
				}
				return nil
			})
		},
	}
}
