package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func metricCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metric",
		Short: "Work with the semantic metric layer",
	}
	cmd.AddCommand(metricListCmd())
	cmd.AddCommand(metricCalcCmd())
	cmd.AddCommand(metricTrendCmd())
	return cmd
}

func metricListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List metric definitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Format", "Description"})
			for _, m := range k.metrics.List() {
				tw.AppendRow(table.Row{m.ID, m.Name, m.Format, m.Description})
			}
			tw.Render()
			return nil
		},
	}
}

func metricCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc <id>",
		Short: "Calculate a metric value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			value, err := k.metrics.Calculate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s = %v\n", args[0], value)
			return nil
		},
	}
}

func metricTrendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trend <id>",
		Short: "Analyze a metric trend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			trend, err := k.metrics.Trend(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Println(trend.Summary)

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Period", "Value"})
			for _, p := range trend.Data {
				tw.AppendRow(table.Row{p.Name, p.Value})
			}
			tw.Render()
			return nil
		},
	}
}
