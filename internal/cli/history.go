package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently asked questions",
	Long:  `List recently asked questions, newest first. Requires history.path in the config.`,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	return withService(cmd, nil, func(e env) error {
		entries, err := e.svc.Recent(e.ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No questions yet.")
			return nil
		}

		// Print table
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tASKED\tSOURCE\tFILTERS\tQUESTION")
		for _, entry := range entries {
			source := entry.Source
			if entry.Degraded {
				source += " (!)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				entry.ID,
				entry.AskedAt.Format("2006-01-02 15:04"),
				source,
				entry.Filters,
				truncate(strings.ReplaceAll(entry.Question, "\n", " "), 60),
			)
		}
		return w.Flush()
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
