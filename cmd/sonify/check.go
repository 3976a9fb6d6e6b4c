package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sonifyreads/internal/admission"
)

var checkEmailCmd = &cobra.Command{
	Use:   "check-email <address...>",
	Short: "Check whether addresses would be accepted for delivery",
	Long: `Check-email runs the same address filter convert applies before uploading:
a syntax check, then a domain check against common providers, educational
suffixes (.edu, .ac.XX, .edu.XX), and work domains under .com, .org, .net,
.io, or .co.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		rejected := 0
		for _, addr := range args {
			if err := admission.CheckEmail(addr); err != nil {
				fmt.Fprintf(w, "rejected: %s (%v)\n", addr, err)
				rejected++
				continue
			}
			fmt.Fprintf(w, "ok:       %s\n", addr)
		}
		if rejected > 0 {
			return fmt.Errorf("%d address(es) rejected", rejected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkEmailCmd)
}
