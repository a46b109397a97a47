package main

import (
	"os"

	"github.com/spf13/cobra"

	"rollsink/internal/collector"
)

func newCollectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Read log lines from stdin and write them to the rotating file set",
		Long: `Collect reads newline-delimited records from stdin and appends each to the
configured rotating file set. Lines that parse as JSON objects keep their
level, message, and metadata; anything else becomes an info record with the
raw line as its message. The run ends on EOF or SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			col, err := collector.New(cfg, logger)
			if err != nil {
				return err
			}
			return col.Run(cmd.Context(), os.Stdin)
		},
	}
}
