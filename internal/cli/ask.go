package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question and exit",
	Example: `  abchat ask "¿Cómo se comportaron las tiendas Mall vs Street?"
  abchat ask --json "¿Cuál fue el lift en la región Norte?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	return withService(cmd, nil, func(e env) error {
		ans, err := e.svc.Ask(e.ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if askJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(ans)
		}
		fmt.Fprintln(out, ans.Text)
		if ans.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), "(language model unavailable, raw statistics shown)")
		}
		return nil
	})
}
