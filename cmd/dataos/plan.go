package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/slokhande/dataos/internal/model"
)

func planCmd() *cobra.Command {
	var exec bool

	cmd := &cobra.Command{
		Use:   "plan <goal>",
		Short: "Plan a natural-language goal, optionally executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			goal := strings.Join(args, " ")
			plan, err := k.planner.PlanRequest(ctx, goal)
			if err != nil {
				return err
			}

			printPlan(plan)
			if !exec || plan.Status == model.PlanFailed {
				return nil
			}

			results := k.runtime.ExecutePlan(ctx, &plan)
			fmt.Printf("\nPlan %s: %s\n", plan.ID, plan.Status)
			for i, step := range results {
				fmt.Printf("step %d [%s/%s]: %s\n", i+1, step.Intent.AgentID, step.Intent.Intent, step.Result.Message)
				if step.Result.Data != nil {
					if err := printJSON(step.Result.Data); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&exec, "exec", false, "execute the plan after printing it")
	return cmd
}

func printPlan(plan model.Plan) {
	fmt.Printf("%s (%s)\n", plan.Goal, plan.Status)
	if len(plan.Steps) == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"#", "Agent", "Intent", "Reasoning"})
	for i, step := range plan.Steps {
		tw.AppendRow(table.Row{i + 1, step.AgentID, step.Intent, step.Reasoning})
	}
	tw.Render()
}
