package main

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect registered agents",
	}
	cmd.AddCommand(agentListCmd())
	return cmd
}

func agentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Name", "Role", "Intents"})
			for _, profile := range k.registry.List() {
				intents := make([]string, 0, len(profile.Capabilities))
				for _, c := range profile.Capabilities {
					intents = append(intents, c.Intent)
				}
				tw.AppendRow(table.Row{profile.ID, profile.Name, profile.Role, strings.Join(intents, ", ")})
			}
			tw.Render()
			return nil
		},
	}
}
