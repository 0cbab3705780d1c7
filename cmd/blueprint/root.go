package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"blueprint/internal/config"
	"blueprint/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		output   outputMode
		logLevel string
	)

	cmd := &cobra.Command{
		Use:           "blueprint",
		Short:         "Blueprint stores generated assets and defers destructive actions behind an undo window",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if output.JSON && output.YAML {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			if output.YAML {
				outputFormatter = format.YAMLFormatter{}
			}
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&output.JSON, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&output.YAML, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newInfoCmd(cfg, &output),
		newConfigCmd(cfg),
		newAssetCmd(cfg, &output),
		newProjectCmd(cfg, &output),
		newNotifyCmd(cfg, &output),
	)

	return cmd
}
