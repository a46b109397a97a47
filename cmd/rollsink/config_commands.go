package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"rollsink/internal/config"
	"rollsink/internal/datepat"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init [path]",
		Short:       "Write a sample configuration file",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.DefaultConfigPath()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if target, err = config.ExpandPath(args[0]); err != nil {
					return err
				}
			}

			if !force {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("%s already exists; pass --force to replace it", target)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing file")
	return cmd
}

// newConfigShowCommand loads and validates the configuration, then prints
// the effective settings with defaults filled in. A broken config surfaces
// as the load error, which doubles as a validate command.
func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			pattern := cfg.Sink.DatePattern
			if pattern == "" {
				pattern = datepat.Default + " (default)"
			}
			rows := [][]string{
				{"sink.filename", cfg.Sink.Filename},
				{"sink.dirname", cfg.Sink.Dirname},
				{"sink.date_pattern", pattern},
				{"sink.prepend", strconv.FormatBool(cfg.Sink.Prepend)},
				{"sink.max_size", strconv.FormatInt(cfg.Sink.MaxSize, 10)},
				{"sink.max_retries", strconv.Itoa(cfg.Sink.MaxRetries)},
				{"sink.silent", strconv.FormatBool(cfg.Sink.Silent)},
				{"retention.max_files", strconv.Itoa(cfg.Retention.MaxFiles)},
				{"retention.older_than_days", strconv.Itoa(cfg.Retention.OlderThanDays)},
				{"retention.archive", strconv.FormatBool(cfg.Retention.Archive)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
				{"history.enabled", strconv.FormatBool(cfg.History.Enabled)},
				{"history.path", cfg.History.Path},
				{"history.retention_days", strconv.Itoa(cfg.History.RetentionDays)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows))
			return nil
		},
	}
}
