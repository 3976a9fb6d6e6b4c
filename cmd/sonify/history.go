// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/sonifyreads/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded upload attempts",
	Long: `History lists upload attempts recorded in the local journal, newest first.
Attempts are only recorded when history.enabled is set in the config (or
SONIFY_HISTORY_ENABLED=true) or convert runs with --record.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of attempts to show")
	historyCmd.Flags().Bool("json", false, "output attempts as JSON")
	historyCmd.Flags().Bool("yaml", false, "output attempts as YAML")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	if asJSON && asYAML {
		return fmt.Errorf("--json and --yaml are mutually exclusive")
	}

	cfg := loadClientConfig()
	store, err := history.Open(cfg.History.Dir)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if asYAML {
		return store.Export(ctx, w, limit)
	}

	subs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(subs)
	}

	if len(subs) == 0 {
		fmt.Fprintln(w, "No recorded attempts.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tFILE\tEMAIL\tRESULT\tTOOK")
	for _, s := range subs {
		result := "ok"
		if !s.Succeeded {
			result = fmt.Sprintf("%s: %s", s.Kind, s.Message)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.StartedAt.Local().Format(time.DateTime), s.FileName, s.Email, result,
			s.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}
