package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rollsink/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the sink lifecycle journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List recent lifecycle events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.At.Local().Format(time.RFC3339),
					shortSession(entry.Session),
					entry.Kind,
					entry.Path,
					entry.Detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Time", "Session", "Event", "Path", "Detail"},
				rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 50, "Maximum entries to show")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var daysFlag int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal entries older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			if daysFlag <= 0 {
				return errors.New("--days must be positive")
			}
			store, err := openJournal(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			cutoff := time.Now().Add(-time.Duration(daysFlag) * 24 * time.Hour)
			removed, err := store.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d journal entries\n", removed)
			return nil
		},
	}

	cmd.Flags().IntVar(&daysFlag, "days", 30, "Delete entries older than this many days")
	return cmd
}

func openJournal(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return history.Open(cfg.History.Path)
}

func shortSession(session string) string {
	if len(session) > 8 {
		return session[:8]
	}
	return session
}
