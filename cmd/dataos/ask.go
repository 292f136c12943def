package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slokhande/dataos/internal/planner"
)

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Classify a message into one intent and execute it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			intent := planner.ParseIntent(strings.Join(args, " "))
			fmt.Printf("-> %s/%s (%.2f): %s\n", intent.AgentID, intent.Intent, intent.Confidence, intent.Reasoning)

			result := k.runtime.ExecuteIntent(ctx, intent)
			fmt.Println(result.Message)
			if result.Data != nil {
				return printJSON(result.Data)
			}
			return nil
		},
	}
}
