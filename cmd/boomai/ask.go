package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

var (
	askJSON    bool
	askVerbose bool
	askRunID   string
)

// errRunFailed is returned after the failure was already shown.
var errRunFailed = errors.New("run failed")

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and exit",
	Long: `Run a single request and print the answer.

The run id is printed first so the run can be cancelled from another
terminal with 'boomai cancel <run-id>'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full response as JSON")
	askCmd.Flags().BoolVarP(&askVerbose, "verbose", "v", false, "Show run events and how the answer was produced")
	askCmd.Flags().StringVar(&askRunID, "run-id", "", "Use this run id instead of a generated one")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := newEngine(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	runID := askRunID
	if runID == "" {
		runID = uuid.NewString()
	}
	if !askJSON {
		printStatus("→", "run "+runID, color.FgCyan)
	}

	opts := []orchestrator.RunOption{orchestrator.WithRunID(runID)}
	if askVerbose {
		opts = append(opts, orchestrator.WithObserver(func(ev orchestrator.Event) {
			printStatus("·", formatEvent(ev), color.FgHiBlack)
		}))
	}

	req := models.ChatRequest{Messages: []models.Message{models.UserMessage(strings.Join(args, " "))}}
	resp, runErr := e.orch.Run(ctx, req, opts...)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
		if runErr != nil {
			return errRunFailed
		}
		return nil
	}

	if runErr != nil {
		printStatus("✗", resp.Message.Content, color.FgRed)
		return errRunFailed
	}

	fmt.Println(resp.Message.Content)
	if askVerbose && resp.Context != nil {
		printRunContext(resp.Context)
	}
	return nil
}

// printRunContext shows how an answer was produced.
func printRunContext(rc *models.RunContext) {
	printStatus("✓", "policy "+rc.Policy, color.FgGreen)
	if v := rc.Votes; v != nil {
		printStatus("✓", fmt.Sprintf("votes: %d attempts, %d admitted, %d failed, %d discarded",
			v.Attempts, v.Admitted, v.Failed, v.Discarded), color.FgGreen)
	}
	for _, s := range rc.Steps {
		printStatus("✓", formatStep(s), color.FgGreen)
	}
}

// formatStep renders one executed step.
func formatStep(s models.StepRecord) string {
	line := fmt.Sprintf("step %d [%s/%s] %s", s.ID, s.Kind, s.Strategy, s.Text)
	if s.Rendered != "" && s.Rendered != s.Text {
		line += fmt.Sprintf(" (%s)", s.Rendered)
	}
	line += " => " + truncate(s.Result, 80)
	if s.Failed {
		line += " [failed]"
	}
	if s.Verdict != "" {
		line += " [" + s.Verdict + "]"
	}
	return line
}
