package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-query-cache/dataaccess"
	"github.com/goliatone/go-query-cache/table"
)

func queryCmd(opts *globalOptions) *cobra.Command {
	var (
		params []string
		bypass bool
		format string
		repeat int
	)

	cmd := &cobra.Command{
		Use:   "query <data-access-id>",
		Short: "Run a data access and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseParams(params)
			if err != nil {
				return err
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("invalid format: %s (valid: table, json)", format)
			}
			if repeat < 1 {
				return fmt.Errorf("repeat must be at least 1")
			}

			s, err := openSession(cmd.Context(), opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			req := dataaccess.RequestOptions{
				DataAccessID: args[0],
				Parameters:   overrides,
				CacheBypass:  bypass,
			}

			var result *table.Table
			for i := 0; i < repeat; i++ {
				start := time.Now()
				result, err = s.engine.Query(cmd.Context(), req)
				if err != nil {
					return err
				}
				if repeat > 1 {
					fmt.Fprintf(cmd.ErrOrStderr(), "run %d: %s\n", i+1, time.Since(start).Round(time.Microsecond))
				}
			}

			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return writeTable(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Parameter override as name=value (repeatable)")
	cmd.Flags().BoolVar(&bypass, "bypass", false, "Skip the cache lookup and refresh the entry")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "Run the query n times and report timings on stderr")

	return cmd
}

func parseParams(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(raw))
	for _, p := range raw {
		name, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid parameter %q (expected name=value)", p)
		}
		out[strings.TrimSpace(name)] = value
	}
	return out, nil
}

func writeTable(w io.Writer, t *table.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = strings.ToUpper(c.Name)
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(cell)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "(%d rows)\n", t.RowCount())
	return nil
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return c.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(c))
	default:
		return fmt.Sprint(c)
	}
}

func writeJSON(w io.Writer, t *table.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
