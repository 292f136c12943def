package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/slokhande/dataos/internal/engine"
)

func queryCmd() *cobra.Command {
	var explain bool

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run SQL through the query router",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			if explain {
				plan, err := k.router.Explain(ctx, query)
				if err != nil {
					return err
				}
				fmt.Println(plan)
				return nil
			}

			decision, err := k.router.Optimize(ctx, query)
			if err != nil {
				return err
			}
			rows, err := k.router.Execute(ctx, query)
			if err != nil {
				return err
			}

			printRows(rows)
			fmt.Printf("%d row(s), source=%s, estimated cost=%d\n", len(rows), decision.Source, decision.EstimatedCost)
			return nil
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "print the engine query plan instead of executing")
	return cmd
}

func printRows(rows []engine.Row) {
	if len(rows) == 0 {
		return
	}

	cols := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	header := make(table.Row, len(cols))
	for i, col := range cols {
		header[i] = col
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	for _, row := range rows {
		out := make(table.Row, len(cols))
		for i, col := range cols {
			out[i] = row[col]
		}
		tw.AppendRow(out)
	}
	tw.Render()
}
