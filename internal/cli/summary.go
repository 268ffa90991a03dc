package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var summaryJSON bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Describe the loaded dataset",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withService(cmd, nil, func(e env) error {
		s := e.svc.Summary()
		out := cmd.OutOrStdout()
		if summaryJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		p := message.NewPrinter(language.English)
		p.Fprintf(out, "Registros:       %d\n", s.Records)
		fmt.Fprintf(out, "Experimentos:    %s\n", strings.Join(s.Arms, ", "))
		fmt.Fprintf(out, "Regiones:        %s\n", strings.Join(s.Regions, ", "))
		fmt.Fprintf(out, "Tipos de tienda: %s\n", strings.Join(s.StoreTypes, ", "))
		p.Fprintf(out, "Usuarios:        %d\n", s.Users)
		p.Fprintf(out, "Conversiones:    %d\n", s.Conversions)
		p.Fprintf(out, "Revenue:         $%.2f\n", s.Revenue)
		fmt.Fprintf(out, "Conversión media: %.2f%%\n", s.AvgConversionRate*100)
		return nil
	})
}
