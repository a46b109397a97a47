package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"rollsink/internal/query"
)

func newQueryCommand(ctx *commandContext) *cobra.Command {
	var (
		fileFlag   string
		fromFlag   string
		untilFlag  string
		rowsFlag   int
		startFlag  int
		descFlag   bool
		fieldsFlag []string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Read back records from the file set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := resolveTargetFile(cfg, fileFlag)
			if err != nil {
				return err
			}

			opts := query.Options{
				Rows:   rowsFlag,
				Start:  startFlag,
				Order:  query.Asc,
				Fields: fieldsFlag,
			}
			if descFlag {
				opts.Order = query.Desc
			}
			if opts.From, err = parseTimeFlag(fromFlag); err != nil {
				return err
			}
			if opts.Until, err = parseTimeFlag(untilFlag); err != nil {
				return err
			}

			records, err := query.Run(target, opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !isTerminal(out) {
				for _, rec := range records {
					line, err := json.Marshal(rec)
					if err != nil {
						return fmt.Errorf("encode record: %w", err)
					}
					fmt.Fprintln(out, string(line))
				}
				return nil
			}

			fmt.Fprintln(out, renderRecords(records, fieldsFlag))
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "File to query (defaults to the newest in the set)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "Include records at or after this time")
	cmd.Flags().StringVar(&untilFlag, "until", "", "Exclude records at or after this time")
	cmd.Flags().IntVar(&rowsFlag, "rows", 0, "Maximum records to return (0 = unlimited)")
	cmd.Flags().IntVar(&startFlag, "start", 0, "Matches to skip before collecting")
	cmd.Flags().BoolVar(&descFlag, "desc", false, "Newest first")
	cmd.Flags().StringSliceVar(&fieldsFlag, "fields", nil, "Project each record down to these keys")

	return cmd
}

func renderRecords(records []query.Record, fields []string) string {
	headers := fields
	if len(headers) == 0 {
		headers = []string{"ts", "level", "msg"}
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, 0, len(headers)+1)
		for _, key := range headers {
			row = append(row, stringifyValue(rec[key]))
		}
		if len(fields) == 0 {
			row = append(row, extraColumns(rec))
		}
		rows = append(rows, row)
	}

	if len(fields) == 0 {
		headers = append(append([]string{}, headers...), "meta")
	}
	return renderTable(headers, rows)
}

func stringifyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func extraColumns(rec query.Record) string {
	keys := make([]string, 0, len(rec))
	for key := range rec {
		switch key {
		case "ts", "level", "msg":
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+stringifyValue(rec[key]))
	}
	return strings.Join(parts, " ")
}
