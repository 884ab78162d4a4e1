package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maltedev/supplier-scraper/internal/supplier"
)

var suppliersCmd = &cobra.Command{
	Use:   "suppliers",
	Short: "List the supported suppliers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		s := newPalette()
		fmt.Fprintln(out, s.title.Render("Supported suppliers"))
		for _, c := range supplier.DefaultRegistry().Entries() {
			fmt.Fprintln(out, s.supplierLine(c))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(suppliersCmd)
}
