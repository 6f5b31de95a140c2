package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

// printStatus prints a status line with color to stderr, keeping stdout
// for answers.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(os.Stderr, "%s %s\n", c.Sprint(symbol), message)
}

// formatEvent renders a run event as one line.
func formatEvent(ev orchestrator.Event) string {
	s := ev.Status.String()
	if ev.StepID > 0 {
		s = fmt.Sprintf("step %d: %s", ev.StepID, s)
	}
	if ev.Message != "" {
		s += " " + truncate(ev.Message, 80)
	}
	return s
}

// statusColor picks the color for a journaled run status.
func statusColor(status string) color.Attribute {
	switch models.StatusKind(status) {
	case models.StatusDone:
		return color.FgGreen
	case models.StatusFailed, models.StatusError:
		return color.FgRed
	default:
		return color.FgYellow
	}
}

// formatDuration formats a duration compactly.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
