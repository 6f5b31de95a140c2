package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/state"
)

var (
	historyLimit int
	historyPurge string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show journaled runs",
	Long: `List recent runs, or show one run with its steps.

Use --purge to delete finished runs older than a duration (for example
"720h" or "30d").`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	historyCmd.Flags().StringVar(&historyPurge, "purge", "", "Delete finished runs older than this duration")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := state.OpenMigrated(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyPurge != "" {
		d, err := durationFlag(historyPurge)
		if err != nil {
			return err
		}
		n, err := db.PurgeOldRuns(ctx, d)
		if err != nil {
			return err
		}
		printStatus("✓", fmt.Sprintf("Purged %d run(s)", n), color.FgGreen)
		return nil
	}

	if len(args) == 1 {
		run, err := db.GetRun(ctx, args[0])
		if errors.Is(err, state.ErrRunNotFound) {
			return fmt.Errorf("no run %s in %s", args[0], db.Path())
		}
		if err != nil {
			return err
		}
		steps, err := db.Steps(ctx, run.ID)
		if err != nil {
			return err
		}
		printRunDetail(out, run)
		for _, s := range steps {
			fmt.Fprintf(out, "  %s\n", formatStep(s))
		}
		return nil
	}

	runs, err := db.ListRuns(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		printStatus("→", "No runs yet", color.FgCyan)
		return nil
	}
	printRunTable(out, runs)
	return nil
}

// printRunTable lists runs newest first.
func printRunTable(w io.Writer, runs []state.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tPOLICY\tTOOK\tINPUT")
	for _, r := range runs {
		took := "-"
		if r.FinishedAt != nil {
			took = formatDuration(r.Duration())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			color.New(statusColor(r.Status)).Sprint(r.Status),
			truncate(r.Policy, 32),
			took,
			truncate(oneLine(r.Input), 48))
	}
	tw.Flush()
}

// printRunDetail prints one run's header.
func printRunDetail(w io.Writer, r *state.Run) {
	fmt.Fprintf(w, "run:     %s\n", r.ID)
	fmt.Fprintf(w, "input:   %s\n", r.Input)
	fmt.Fprintf(w, "policy:  %s\n", r.Policy)
	fmt.Fprintf(w, "status:  %s\n", color.New(statusColor(r.Status)).Sprint(r.Status))
	fmt.Fprintf(w, "started: %s\n", r.StartedAt.Local().Format(time.RFC3339))
	if r.FinishedAt != nil {
		fmt.Fprintf(w, "took:    %s\n", formatDuration(r.Duration()))
	}
	if r.Message != "" {
		fmt.Fprintf(w, "answer:  %s\n", r.Message)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// durationFlag parses a retention flag such as "720h" or "30d".
func durationFlag(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}
