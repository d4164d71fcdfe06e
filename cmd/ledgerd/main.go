package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName = "atm_ledger"
	version = "1.0.0"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "ledgerd",
		Short:         "ledgerd serves an in-memory ATM ledger over HTTP",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "set the config file path")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
}
