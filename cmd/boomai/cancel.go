package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/signals"
)

var cancelAll bool

var cancelCmd = &cobra.Command{
	Use:   "cancel [run-id]",
	Short: "Cancel a run in another boomai process",
	Long: `Ask a running 'boomai serve', 'chat' or 'ask' to cancel a run.

The request is a file dropped into the signals directory; the process
that owns the run picks it up and cancels it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var runID string
		switch {
		case cancelAll && len(args) == 0:
		case !cancelAll && len(args) == 1:
			runID = args[0]
		default:
			return errors.New("give a run id or --all")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := signals.WriteCancel(cfg.Signals.Dir, runID); err != nil {
			return err
		}

		if runID == "" {
			printStatus("✓", "Requested cancellation of all runs", color.FgGreen)
		} else {
			printStatus("✓", fmt.Sprintf("Requested cancellation of %s", runID), color.FgGreen)
		}
		return nil
	},
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelAll, "all", false, "Cancel every active run")
}
