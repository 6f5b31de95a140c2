package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/internal/provider"
	"github.com/Adr1an04/boomai/pkg/models"
)

func newTestApp(fake *provider.Fake) *ChatApp {
	registry := provider.NewRegistry(nil)
	if fake != nil {
		registry.Register("fake", fake, provider.DefaultRunnerConfig(), "fake", provider.EntryMock)
	}
	return NewChatApp(orchestrator.New(registry, orchestrator.DefaultConfig()))
}

// drain runs cmd and everything it leads to, feeding each message back
// into the app. Spinner ticks are dropped so the loop terminates.
func drain(app *ChatApp, cmd tea.Cmd) []tea.Msg {
	var seen []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		switch m := msg.(type) {
		case nil, spinner.TickMsg:
			continue
		case tea.BatchMsg:
			queue = append(queue, m...)
			continue
		}
		seen = append(seen, msg)
		_, next := app.Update(msg)
		queue = append(queue, next)
	}
	return seen
}

func TestChatApp_Init(t *testing.T) {
	if newTestApp(nil).Init() == nil {
		t.Error("Init should return a command to focus the input")
	}
}

func TestChatApp_Run(t *testing.T) {
	app := newTestApp(provider.NewFake("should not be asked"))

	seen := drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "what is 2 + 2"} })

	if app.Running() {
		t.Error("run should be finished")
	}
	var events []models.StatusKind
	for _, m := range seen {
		if ev, ok := m.(RunEventMsg); ok {
			events = append(events, ev.Event.Status.Kind)
		}
	}
	if len(events) == 0 || events[len(events)-1] != models.StatusDone {
		t.Errorf("events = %v, want a trailing done", events)
	}

	hist := app.History()
	if len(hist) != 2 || hist[1].Role != models.RoleAssistant || hist[1].Content != "4" {
		t.Errorf("history = %+v", hist)
	}
	if len(app.entries) != 2 || app.entries[1].failed {
		t.Errorf("entries = %+v", app.entries)
	}
	if !strings.Contains(app.entries[1].detail, "internal_stub") {
		t.Errorf("detail = %q, want the policy", app.entries[1].detail)
	}
}

func TestChatApp_ConversationIsResent(t *testing.T) {
	fake := provider.NewFake()
	var lastLen int
	fake.Respond = func(_ int, req provider.ModelRequest) (string, error) {
		lastLen = len(req.Messages)
		return "Frank Herbert.", nil
	}
	app := newTestApp(fake)

	drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "Who wrote Dune?"} })
	drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "When was he born?"} })

	if got := len(app.History()); got != 4 {
		t.Errorf("history length = %d, want 4", got)
	}
	if lastLen < 3 {
		t.Errorf("second request carried %d messages, want the whole conversation", lastLen)
	}
}

func TestChatApp_FailureStaysOutOfHistory(t *testing.T) {
	app := newTestApp(nil)

	drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "Who wrote Dune?"} })

	if len(app.History()) != 0 {
		t.Errorf("history = %+v, want empty after failure", app.History())
	}
	if len(app.entries) != 2 || !app.entries[1].failed {
		t.Fatalf("entries = %+v, want a failed answer", app.entries)
	}
	if app.entries[1].text == "" {
		t.Error("failed entry should carry a message")
	}
}

func TestChatApp_CtrlC(t *testing.T) {
	t.Run("cancels a run", func(t *testing.T) {
		fake := provider.NewFake("late")
		fake.Delay = 5 * time.Second
		app := newTestApp(fake)

		cmd := app.submit("Who wrote Dune?")
		if !app.Running() {
			t.Fatal("expected a run in progress")
		}

		_, quit := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if quit != nil || app.quitting {
			t.Error("Ctrl+C during a run should cancel, not quit")
		}

		done := make(chan struct{})
		go func() {
			drain(app, cmd)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Fatal("run did not stop after cancel")
		}
		if app.Running() {
			t.Error("run should be finished")
		}
	})

	t.Run("quits when idle", func(t *testing.T) {
		app := newTestApp(nil)
		model, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		if !model.(*ChatApp).quitting || cmd == nil {
			t.Error("expected quit")
		}
		if app.View() != "Goodbye!\n" {
			t.Errorf("View() = %q", app.View())
		}
	})
}

func TestChatApp_Clear(t *testing.T) {
	app := newTestApp(provider.NewFake())
	drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "what is 2 + 2"} })

	drain(app, func() tea.Msg { return PromptSubmittedMsg{Text: "/clear"} })

	if len(app.History()) != 0 || len(app.entries) != 0 {
		t.Errorf("expected an empty conversation, got %d messages", len(app.History()))
	}
}

func TestChatApp_WindowSize(t *testing.T) {
	app := newTestApp(nil)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	if app.transcript.Width != 100 || app.transcript.Height != 35 {
		t.Errorf("transcript = %dx%d, want 100x35", app.transcript.Width, app.transcript.Height)
	}
	if app.input.width != 100 {
		t.Errorf("input width = %d, want 100", app.input.width)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		ev   orchestrator.Event
		want string
	}{
		{orchestrator.Event{Status: models.Status(models.StatusClassifying)}, "Classifying request..."},
		{orchestrator.Event{Status: models.Voting(2), Message: "1/5 candidates admitted"}, "Voting, round 2: 1/5 candidates admitted"},
		{orchestrator.Event{Status: models.ToolCall("calculator")}, "Running calculator..."},
		{orchestrator.Event{Status: models.Status(models.StatusSolved), StepID: 3, Message: "14"}, "Step 3 solved: 14"},
		{orchestrator.Event{Status: models.Status(models.StatusProcessing), StepID: 2}, "Working on step 2..."},
		{orchestrator.Event{Status: models.Status(models.StatusProcessing)}, "Thinking..."},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := describe(tt.ev); got != tt.want {
				t.Errorf("describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	rc := &models.RunContext{
		Policy: "maker_race(5,2)",
		Votes:  &models.VoteStats{Attempts: 5, Admitted: 2, Decided: true},
	}
	if got := summarize(rc); got != "maker_race(5,2) · 2/5 admitted" {
		t.Errorf("summarize() = %q", got)
	}
}
