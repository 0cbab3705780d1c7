package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blueprint/internal/api"
	"blueprint/internal/config"
)

const pendingPollInterval = 250 * time.Millisecond

var errDeletionCancelled = errors.New("deletion cancelled; projects restored")

func newProjectCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects with undoable deletion",
	}

	cmd.AddCommand(
		newProjectCreateCmd(cfg, output),
		newProjectLsCmd(cfg, output),
		newProjectShowCmd(cfg, output),
		newProjectRmCmd(cfg, output),
		newProjectRestoreCmd(cfg, output),
		newProjectPendingCmd(cfg, output),
	)
	return cmd
}

func newProjectCreateCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	var logo string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  requireExactlyArgs(1, "project name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.CreateProject(cmd.Context(), api.ProjectCreateRequest{Name: args[0], LogoRef: logo})
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", formatProjectLine(resp))
			})
		},
	}

	cmd.Flags().StringVar(&logo, "logo", "", "logo reference (internal:<asset-id>, data:, blob: or https URL)")
	return cmd
}

func newProjectLsCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				projects, err := client.ListProjects(cmd.Context(), limit, all)
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(projects)
				}
				for _, p := range projects {
					_ = writePlain("%s\n", formatProjectLine(p))
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of projects")
	cmd.Flags().BoolVar(&all, "all", false, "include projects pending deletion")
	return cmd
}

func newProjectShowCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a project",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.GetProject(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", formatProjectLine(resp))
			})
		},
	}
}

func newProjectRmCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "rm <id> [<id>...]",
		Short: "Schedule project deletion behind an undo window",
		Long: "Schedule project deletion behind an undo window.\n\n" +
			"When the server was started for this command alone, or with --wait, rm blocks\n" +
			"until the deletions commit. Interrupting the wait restores the projects.",
		Args: requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cfg, func(s session) error {
				accepted := make([]api.DeleteAcceptedResponse, 0, len(args))
				for _, id := range args {
					resp, err := s.client.DeleteProject(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
					accepted = append(accepted, resp)
				}

				if output.Structured() {
					if err := writeStructured(accepted); err != nil {
						return err
					}
				} else {
					for _, resp := range accepted {
						_ = writePlain("%s deletes %s (undo: blueprint project restore %s)\n",
							resp.ID, formatRelative(resp.ExecutesAt), resp.ID)
					}
				}

				if !wait && !s.ephemeral {
					return nil
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return waitForDeletions(ctx, s.client, args)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "block until the deletions commit")
	return cmd
}

func newProjectRestoreCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id> [<id>...]",
		Short: "Cancel pending project deletions",
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				results := make([]api.RestoreResponse, 0, len(args))
				for _, id := range args {
					resp, err := client.RestoreProject(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("restore %s: %w", id, err)
					}
					results = append(results, resp)
				}
				if output.Structured() {
					return writeStructured(results)
				}
				for _, resp := range results {
					_ = writePlain("restored %s\n", resp.ID)
				}
				return nil
			})
		},
	}
}

func newProjectPendingCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List deletions still inside their undo window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				pending, err := client.PendingDeletions(cmd.Context())
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(pending)
				}
				for _, p := range pending {
					_ = writePlain("%s  %s  executes %s\n", p.ID, p.Project.Name, formatRelative(p.ExecutesAt))
				}
				return nil
			})
		},
	}
}

// waitForDeletions polls until none of ids is pending. If ctx ends first the
// remaining ids are restored.
func waitForDeletions(ctx context.Context, client *api.Client, ids []string) error {
	remaining := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remaining[id] = struct{}{}
	}

	ticker := time.NewTicker(pendingPollInterval)
	defer ticker.Stop()

	for {
		pending, err := client.PendingDeletions(ctx)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if err == nil {
			still := make(map[string]struct{}, len(remaining))
			for _, p := range pending {
				if _, ok := remaining[p.ID]; ok {
					still[p.ID] = struct{}{}
				}
			}
			remaining = still
			if len(remaining) == 0 {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return restorePending(client, remaining)
		case <-ticker.C:
		}
	}
}

func restorePending(client *api.Client, ids map[string]struct{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for id := range ids {
		_, err := client.RestoreProject(ctx, id)
		var apiErr *api.APIError
		switch {
		case err == nil:
			_ = writePlain("restored %s\n", id)
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
			_ = writePlain("%s was already deleted\n", id)
		default:
			errs = append(errs, fmt.Errorf("restore %s: %w", id, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return errDeletionCancelled
}
