package tui

import (
	"fmt"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

// describe turns a run event into the line shown next to the spinner.
func describe(ev orchestrator.Event) string {
	switch ev.Status.Kind {
	case models.StatusClassifying:
		return "Classifying request..."
	case models.StatusDecomposing:
		return "Breaking the task into steps..."
	case models.StatusVoting:
		if ev.Message != "" {
			return fmt.Sprintf("Voting, round %d: %s", ev.Status.Round, ev.Message)
		}
		return fmt.Sprintf("Voting, round %d...", ev.Status.Round)
	case models.StatusToolCall:
		return fmt.Sprintf("Running %s...", ev.Status.Tool)
	case models.StatusSolved:
		return fmt.Sprintf("Step %d solved: %s", ev.StepID, truncate(ev.Message, 60))
	case models.StatusProcessing:
		if ev.StepID > 0 {
			return fmt.Sprintf("Working on step %d...", ev.StepID)
		}
		return "Thinking..."
	default:
		return ev.Status.String()
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
