package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the terminal chat",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	e, err := newEngine(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	// Log lines would corrupt the alternate screen.
	logFile := redirectLog(filepath.Join(filepath.Dir(e.cfg.Signals.Dir), "boomai.log"))
	if logFile != nil {
		defer logFile.Close()
	}
	defer log.SetOutput(os.Stderr)

	p, _ := tui.NewChatProgram(e.orch)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// redirectLog sends the standard logger to path, or discards it when the
// file cannot be opened.
func redirectLog(path string) *os.File {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			log.SetOutput(f)
			return f
		}
	}
	log.SetOutput(io.Discard)
	return nil
}
