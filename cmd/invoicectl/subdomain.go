package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pablop76/hikashop-fakturownia/internal/client/fakturownia"
	"github.com/pablop76/hikashop-fakturownia/internal/config"
)

var subdomainCmd = &cobra.Command{
	Use:   "subdomain [raw]",
	Short: "Show how a configured subdomain is normalized",
	Example: `  invoicectl subdomain https://mycompany.fakturownia.pl/invoices
  # mycompany https://mycompany.fakturownia.pl`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub := config.SanitizeSubdomain(args[0])
		if sub == "" {
			return fmt.Errorf("%q does not contain a subdomain", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", sub, fakturownia.BaseURL(sub))
		return nil
	},
}
