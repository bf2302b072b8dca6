package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pablop76/hikashop-fakturownia/internal/config"
	"github.com/pablop76/hikashop-fakturownia/internal/migrate"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the shop schema migrations",
	Long: `Apply the embedded goose migrations to DATABASE_URL. They create the
HikaShop tables the bridge reads, for development and integration tests, and
add the invoice_request columns.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config.LoadDotEnv()
		dsn := config.Load().Database.URL
		if dsn == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}

		if !migrateStatus {
			if err := migrate.Up(dsn); err != nil {
				return err
			}
		}
		v, err := migrate.Version(dsn)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "only print the current schema version")
}
