package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/server"
	"github.com/Adr1an04/boomai/internal/version"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the chat API over HTTP (cleartext HTTP/2 is accepted).

Routes:
  GET  /health              liveness
  GET  /version             build version
  POST /chat                run a chat request, returns the response
  GET  /chat/stream         websocket: run events, then the response
  GET  /runs                recent runs from the journal
  GET  /runs/{id}           one run with its steps
  POST /runs/{id}/cancel    cancel an active run

The port defaults to 3030 and can be set with BOOMAI_PORT.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if serveHost != "" {
		e.cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		e.cfg.Server.Port = servePort
	}

	opts := []server.Option{server.WithVersion(version.Get())}
	if e.journal != nil {
		opts = append(opts, server.WithHistory(e.journal))
	}
	srv := server.New(e.cfg.Server.Addr(), e.orch, opts...)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	printStatus("✓", fmt.Sprintf("Listening on http://%s", srv.Addr()), color.FgGreen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	printStatus("→", "Shutting down...", color.FgYellow)
	if n := e.orch.CancelAll(); n > 0 {
		printStatus("→", fmt.Sprintf("Cancelled %d active run(s)", n), color.FgYellow)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
