package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slokhande/dataos/internal/cache"
	"github.com/slokhande/dataos/internal/router"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query result cache",
	}
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(cacheInspectCmd())
	return cmd
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached query result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := cache.NewStore(k.db).Clear(ctx); err != nil {
				return err
			}
			fmt.Println("cache cleared")
			return nil
		},
	}
}

func cacheInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <sql>",
		Short: "Show the cache entry for a query, if any",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			k, cleanup, err := openKernel(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			hash := router.Hash(args[0])
			entry, err := cache.NewStore(k.db).Entry(ctx, hash)
			if err != nil {
				return fmt.Errorf("no cache entry for %s", hash)
			}
			return printJSON(entry)
		},
	}
}
