package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"abchat/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question API over HTTP",
	Long: `Serve the question API over HTTP until interrupted.

Endpoints:
  POST /api/v1/ask       {"question": "..."}
  GET  /api/v1/summary
  GET  /api/v1/history   ?limit=N
  GET  /healthz`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides server.addr")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withService(cmd, nil, func(e env) error {
		addr := e.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		api := server.NewWebAPI(e.logger, e.svc, server.Config{Addr: addr})
		return api.Start(ctx)
	})
}
