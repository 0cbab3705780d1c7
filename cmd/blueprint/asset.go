package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"blueprint/internal/api"
	"blueprint/internal/config"
)

func newAssetCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Store, fetch and resolve generated assets",
	}

	cmd.AddCommand(
		newAssetPutCmd(cfg, output),
		newAssetGetCmd(cfg),
		newAssetRmCmd(cfg),
		newAssetLsCmd(cfg, output),
		newAssetResolveCmd(cfg, output),
	)
	return cmd
}

func newAssetPutCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "put <id> <file|->",
		Short: "Save an asset, replacing any existing payload",
		Args:  requireExactlyArgs(2, "asset id and source file are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, closeSrc, err := openSource(args[1])
			if err != nil {
				return err
			}
			defer closeSrc()

			return withClient(cfg, func(client *api.Client) error {
				resp, err := client.PutAsset(cmd.Context(), args[0], src)
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(resp)
				}
				return writePlain("saved %s (%s)\n", resp.ID, humanize.IBytes(uint64(resp.SizeBytes)))
			})
		},
	}
}

func newAssetGetCmd(cfg *config.Config) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Write an asset's bytes to stdout or a file",
		Args:  requireOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, closeDst, err := openDestination(outPath)
			if err != nil {
				return err
			}

			err = withClient(cfg, func(client *api.Client) error {
				_, err := client.GetAsset(cmd.Context(), args[0], dst)
				return err
			})
			if cerr := closeDst(); err == nil {
				err = cerr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newAssetRmCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id> [<id>...]",
		Short: "Delete assets",
		Args:  requireAtLeastOneID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				for _, id := range args {
					if err := client.DeleteAsset(cmd.Context(), id); err != nil {
						return fmt.Errorf("delete %s: %w", id, err)
					}
				}
				return nil
			})
		},
	}
}

func newAssetLsCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List stored assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cfg, func(client *api.Client) error {
				assets, err := client.ListAssets(cmd.Context())
				if err != nil {
					return err
				}
				if output.Structured() {
					return writeStructured(assets)
				}
				for _, a := range assets {
					_ = writePlain("%s\n", formatAssetLine(a))
				}
				return nil
			})
		},
	}
}

func newAssetResolveCmd(cfg *config.Config, output *outputMode) *cobra.Command {
	var (
		outPath string
		retries int
	)

	cmd := &cobra.Command{
		Use:   "resolve <ref>",
		Short: "Resolve an image reference to a displayable URL",
		Args:  requireExactlyArgs(1, "reference is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retries < 0 {
				return fmt.Errorf("--retries must be >= 0")
			}
			return withClient(cfg, func(client *api.Client) error {
				ctx := cmd.Context()
				resp, err := client.CreateResolution(ctx, args[0])
				if err != nil {
					return err
				}
				defer func() { _ = client.CloseResolution(ctx, resp.ID) }()

				resp, err = client.GetResolution(ctx, resp.ID, true)
				if err != nil {
					return err
				}
				for attempt := 0; attempt < retries && resp.Error != "" && resp.CanRetry; attempt++ {
					if _, err := client.RetryResolution(ctx, resp.ID); err != nil {
						return err
					}
					if resp, err = client.GetResolution(ctx, resp.ID, true); err != nil {
						return err
					}
				}

				if outPath != "" && resp.ObjectURL != "" {
					if err := fetchResolved(cmd, client, resp.ObjectURL, outPath); err != nil {
						return err
					}
				}

				if output.Structured() {
					return writeStructured(resp)
				}
				return writePlain("%s\n", formatResolution(resp))
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write resolved bytes to file")
	cmd.Flags().IntVar(&retries, "retries", 0, "retry a failed load up to this many times")
	return cmd
}

// fetchResolved downloads the bytes behind a blueprint object URL.
func fetchResolved(cmd *cobra.Command, client *api.Client, objectURL, outPath string) error {
	if !strings.HasPrefix(objectURL, "blob:") {
		return fmt.Errorf("reference %q is not served by blueprint", objectURL)
	}
	key := objectURL[strings.LastIndex(objectURL, "/")+1:]

	dst, closeDst, err := openDestination(outPath)
	if err != nil {
		return err
	}
	_, err = client.GetObject(cmd.Context(), key, dst)
	if cerr := closeDst(); err == nil {
		err = cerr
	}
	return err
}

func openSource(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func openDestination(path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
