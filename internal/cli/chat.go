package cli

import (
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"abchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat",
	Long: `Start the interactive chat. The terminal belongs to the chat while it runs, so logs
are discarded unless --log-level is debug or trace, in which case they go to ./abchat.log.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	var logOut io.Writer = io.Discard
	if logLevel == "debug" || logLevel == "trace" {
		f, err := os.OpenFile(filepath.Clean("abchat.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	return withService(cmd, logOut, func(e env) error {
		m := tui.New(e.ctx, e.svc, e.svc.Summary().String())
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	})
}
