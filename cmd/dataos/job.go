package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func jobCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Manage background jobs",
	}
	cmd.AddCommand(jobSubmitCmd())
	cmd.AddCommand(jobGetCmd())
	cmd.AddCommand(jobListCmd())
	return cmd
}

func jobSubmitCmd() *cobra.Command {
	var (
		priority int
		payload  string
	)

	cmd := &cobra.Command{
		Use:   "submit <type>",
		Short: "Submit a job (ingest, clean, ai_profile, ai_chat) and drain the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var params map[string]any
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &params); err != nil {
					return fmt.Errorf("parse payload: %w", err)
				}
			}

			job, err := k.queue.Submit(ctx, 0, args[0], priority, params)
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}

	cmd.Flags().IntVar(&priority, "priority", 0, "drain priority, higher first")
	cmd.Flags().StringVar(&payload, "payload", "", "job payload as JSON")
	return cmd
}

func jobGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid job id %q", args[0])
			}
			job, err := k.jobs.Get(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(job)
		},
	}
}

func jobListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			list, err := k.jobs.List(ctx, 0)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Type", "Status", "Priority", "Progress", "Error"})
			for _, j := range list {
				tw.AppendRow(table.Row{j.ID, j.Type, j.Status, j.Priority, fmt.Sprintf("%d%%", j.Progress), j.Error})
			}
			tw.Render()
			return nil
		},
	}
}
