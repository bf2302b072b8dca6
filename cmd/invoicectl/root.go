package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pablop76/hikashop-fakturownia/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicectl",
	Short: "Operate the HikaShop to Fakturownia invoicing bridge",
	Long: `invoicectl runs the invoicing pipeline by hand, applies the shop schema
migrations and checks how a Fakturownia subdomain is normalized.

Configuration is read from the environment and an optional .env file, the
same way the webhook receiver and the consumers read it.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	defer func() { _ = logger.Sync() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(processCmd, migrateCmd, subdomainCmd)
}
