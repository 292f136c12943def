package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/slokhande/dataos/internal/logging"
)

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:   "dataos",
		Short: "dataos is an agent-orchestrated data workspace",
	}
)

// Execute runs the root command.
func Execute() error {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default .dataos/config.json when present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		logging.Init(debug)
	}
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(queryCmd())
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(agentCmd())
	rootCmd.AddCommand(fsCmd())
	rootCmd.AddCommand(metricCmd())
	rootCmd.AddCommand(cacheCmd())
	return rootCmd.Execute()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
