package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rollsink/internal/tailf"
)

func newTailCommand(ctx *commandContext) *cobra.Command {
	var (
		fileFlag  string
		startFlag int64
	)

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Follow the file set for newly appended records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := resolveTargetFile(cfg, fileFlag)
			if err != nil {
				return err
			}

			tailer, err := tailf.Follow(cmd.Context(), target, startFlag)
			if err != nil {
				return err
			}
			defer tailer.Stop()

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()
			for evt := range tailer.Events() {
				if evt.Err != nil {
					fmt.Fprintf(errOut, "parse: %v\n", evt.Err)
				}
				if evt.Line != "" {
					fmt.Fprintln(out, evt.Line)
				}
			}
			return cmd.Context().Err()
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "File to follow (defaults to the newest in the set)")
	cmd.Flags().Int64Var(&startFlag, "start", -1, "Byte offset to start from (-1 = end of file)")

	return cmd
}
