package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Adr1an04/boomai/internal/orchestrator"
	"github.com/Adr1an04/boomai/pkg/models"
)

// Runner executes one chat request.
type Runner interface {
	Run(ctx context.Context, req models.ChatRequest, opts ...orchestrator.RunOption) (models.ChatResponse, error)
}

// RunEventMsg carries one progress event of the active run.
type RunEventMsg struct {
	Event  orchestrator.Event
	source <-chan orchestrator.Event
}

// RunDoneMsg is sent when the active run returns.
type RunDoneMsg struct {
	Response models.ChatResponse
	Err      error
}

// eventsClosedMsg signals the run's event stream has ended.
type eventsClosedMsg struct{}

type entry struct {
	role   models.Role
	text   string
	failed bool
	detail string
}

// ChatApp is the bubbletea model for the chat.
type ChatApp struct {
	runner Runner

	input      *InputField
	spinner    spinner.Model
	transcript viewport.Model

	history []models.Message
	entries []entry

	running bool
	cancel  context.CancelFunc
	status  string

	width    int
	height   int
	quitting bool
}

// NewChatApp creates a chat bound to runner.
func NewChatApp(runner Runner) *ChatApp {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = promptStyle

	return &ChatApp{
		runner:     runner,
		input:      NewInputField(),
		spinner:    sp,
		transcript: viewport.New(80, 20),
		width:      80,
		height:     24,
	}
}

// NewChatProgram creates a Bubbletea program for the chat.
func NewChatProgram(runner Runner) (*tea.Program, *ChatApp) {
	app := NewChatApp(runner)
	return tea.NewProgram(app, tea.WithAltScreen()), app
}

// Init implements tea.Model.
func (a *ChatApp) Init() tea.Cmd {
	return a.input.Focus()
}

// Update implements tea.Model.
func (a *ChatApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if a.running {
				a.cancelRun()
				return a, nil
			}
			a.quitting = true
			return a, tea.Quit

		case "esc":
			if a.running {
				a.cancelRun()
			}
			return a, nil

		case "pgup", "pgdown":
			var cmd tea.Cmd
			a.transcript, cmd = a.transcript.Update(msg)
			return a, cmd
		}

		if a.running {
			return a, nil
		}
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case PromptSubmittedMsg:
		return a, a.submit(msg.Text)

	case RunEventMsg:
		if a.running {
			a.status = describe(msg.Event)
		}
		if msg.source == nil {
			return a, nil
		}
		return a, waitForEvent(msg.source)

	case eventsClosedMsg:
		return a, nil

	case RunDoneMsg:
		a.finish(msg)
		return a, nil

	case spinner.TickMsg:
		if !a.running {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

// submit starts a run for text, or handles a slash command.
func (a *ChatApp) submit(text string) tea.Cmd {
	if a.running {
		return nil
	}
	if text == "/clear" {
		a.history = nil
		a.entries = nil
		a.refresh()
		return nil
	}

	a.history = append(a.history, models.UserMessage(text))
	a.entries = append(a.entries, entry{role: models.RoleUser, text: text})
	a.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	a.running = true
	a.cancel = cancel
	a.status = "Starting..."

	req := models.ChatRequest{Messages: append([]models.Message(nil), a.history...)}
	emitter := orchestrator.NewEventEmitter(32)
	return tea.Batch(
		a.spinner.Tick,
		runCmd(ctx, a.runner, req, emitter),
		waitForEvent(emitter.Events()),
	)
}

// runCmd runs the request off the UI goroutine.
func runCmd(ctx context.Context, runner Runner, req models.ChatRequest, emitter *orchestrator.EventEmitter) tea.Cmd {
	return func() tea.Msg {
		resp, err := runner.Run(ctx, req, orchestrator.WithObserver(emitter.Emit))
		emitter.Close()
		return RunDoneMsg{Response: resp, Err: err}
	}
}

// waitForEvent delivers the next event from events. Update re-arms it
// for each RunEventMsg until the channel is closed.
func waitForEvent(events <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return RunEventMsg{Event: ev, source: events}
	}
}

func (a *ChatApp) cancelRun() {
	if a.cancel != nil {
		a.cancel()
	}
	a.status = "Cancelling..."
}

func (a *ChatApp) finish(msg RunDoneMsg) {
	if a.cancel != nil {
		a.cancel()
	}
	a.running = false
	a.cancel = nil
	a.status = ""

	resp := msg.Response
	e := entry{role: models.RoleAssistant, text: resp.Message.Content}
	if resp.Context != nil {
		e.detail = summarize(resp.Context)
	}
	if msg.Err != nil || resp.Status.Kind == models.StatusFailed {
		e.failed = true
		if e.text == "" {
			e.text = "The run failed."
		}
		// Failed answers stay out of the conversation sent to the model.
		a.history = a.history[:len(a.history)-1]
	} else {
		a.history = append(a.history, resp.Message)
	}
	a.entries = append(a.entries, e)
	a.refresh()
}

// summarize renders how an answer was produced.
func summarize(rc *models.RunContext) string {
	parts := []string{rc.Policy}
	if v := rc.Votes; v != nil {
		parts = append(parts, fmt.Sprintf("%d/%d admitted", v.Admitted, v.Attempts))
	}
	if n := len(rc.Steps); n > 0 {
		parts = append(parts, fmt.Sprintf("%d steps", n))
	}
	return strings.Join(parts, " · ")
}

func (a *ChatApp) updateSizes() {
	inputHeight := 3
	headerHeight := 1
	statusHeight := 1
	h := a.height - inputHeight - headerHeight - statusHeight
	if h < 1 {
		h = 1
	}
	a.transcript.Width = a.width
	a.transcript.Height = h
	a.input.SetWidth(a.width)
	a.refresh()
}

// refresh re-renders the transcript and keeps the newest entry visible.
func (a *ChatApp) refresh() {
	a.transcript.SetContent(a.renderTranscript())
	a.transcript.GotoBottom()
}

func (a *ChatApp) renderTranscript() string {
	if len(a.entries) == 0 {
		return mutedStyle.Render("No messages yet.")
	}

	body := lipgloss.NewStyle().Width(a.width - 2)
	var b strings.Builder
	for i, e := range a.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		switch {
		case e.role == models.RoleUser:
			b.WriteString(userStyle.Render("you") + "\n")
			b.WriteString(body.Render(e.text) + "\n")
		case e.failed:
			b.WriteString(errorStyle.Render("✗ boomai") + "\n")
			b.WriteString(body.Render(errorStyle.Render(e.text)) + "\n")
		default:
			b.WriteString(assistantStyle.Render("boomai") + "\n")
			b.WriteString(body.Render(e.text) + "\n")
		}
		if e.detail != "" {
			b.WriteString(mutedStyle.Render(e.detail) + "\n")
		}
	}
	return b.String()
}

// View implements tea.Model.
func (a *ChatApp) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	header := headerStyle.Render("boomai")
	status := mutedStyle.Render("Enter to send · Ctrl+C to quit")
	if a.running {
		status = a.spinner.View() + " " + a.status + mutedStyle.Render("  (Esc to cancel)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		a.transcript.View(),
		status,
		a.input.View(),
	)
}

// Running reports whether a run is in progress.
func (a *ChatApp) Running() bool {
	return a.running
}

// History returns the conversation sent with the next prompt.
func (a *ChatApp) History() []models.Message {
	return append([]models.Message(nil), a.history...)
}
