package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func fsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fs",
		Short: "Work with the virtual file system",
	}
	cmd.AddCommand(fsWriteCmd())
	cmd.AddCommand(fsReadCmd())
	cmd.AddCommand(fsListCmd())
	cmd.AddCommand(fsRemoveCmd())
	return cmd
}

func fsWriteCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "write <path> [content]",
		Short: "Write a file into the VFS",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var content string
			switch {
			case from != "":
				raw, err := os.ReadFile(from)
				if err != nil {
					return fmt.Errorf("read source file: %w", err)
				}
				content = string(raw)
			case len(args) == 2:
				content = args[1]
			default:
				return fmt.Errorf("provide inline content or --from")
			}

			if err := k.files.WriteFile(ctx, args[0], content, 0); err != nil {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", args[0], len(content))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "read content from a local file")
	return cmd
}

func fsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "Print a VFS file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			content, err := k.files.ReadFile(ctx, args[0], 0)
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	}
}

func fsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [path]",
		Short: "List a VFS directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			path := "/"
			if len(args) == 1 {
				path = args[0]
			}
			nodes, err := k.files.List(ctx, path, 0)
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Name", "Type", "Size", "Updated"})
			for _, n := range nodes {
				tw.AppendRow(table.Row{n.Name, n.Type, n.Size, n.UpdatedAt})
			}
			tw.Render()
			return nil
		},
	}
}

func fsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a VFS node, recursively for directories",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			return k.files.Delete(ctx, args[0], 0)
		},
	}
}
