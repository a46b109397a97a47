package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rollsink/internal/retention"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		maxFilesFlag  int
		olderThanFlag int
		archiveFlag   bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Apply the retention policy to the file set now",
		Long: `Sweep deletes rotated files beyond the retention policy. Flags override the
configured policy for this run; with no flags the configured policy applies.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			pol := retention.Policy{Archive: cfg.Retention.Archive}
			if cfg.Retention.MaxFiles > 0 {
				pol.MaxFiles = cfg.Retention.MaxFiles
			} else {
				pol.MaxAge = cfg.OlderThan()
			}
			if cmd.Flags().Changed("max-files") {
				pol.MaxFiles = maxFilesFlag
				pol.MaxAge = 0
			}
			if cmd.Flags().Changed("older-than-days") {
				pol.MaxFiles = 0
				pol.MaxAge = time.Duration(olderThanFlag) * 24 * time.Hour
			}
			if cmd.Flags().Changed("archive") {
				pol.Archive = archiveFlag
			}

			if !pol.Enabled() {
				return errors.New("no retention policy configured; set retention.max_files or retention.older_than_days, or pass --max-files / --older-than-days")
			}

			if err := retention.Sweep(logger, cfg.Sink.Dirname, cfg.Sink.Filename, pol); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sweep complete")
			return nil
		},
	}

	cmd.Flags().IntVar(&maxFilesFlag, "max-files", 0, "Keep at most this many rotated files")
	cmd.Flags().IntVar(&olderThanFlag, "older-than-days", 0, "Delete rotated files older than this many days")
	cmd.Flags().BoolVar(&archiveFlag, "archive", false, "Reserve an extra slot for in-flight archival")

	return cmd
}
