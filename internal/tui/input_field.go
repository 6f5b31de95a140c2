package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptSubmittedMsg is sent when the user submits a prompt.
type PromptSubmittedMsg struct {
	Text string
}

// InputField is a text input for prompts with recall of earlier entries.
type InputField struct {
	input textinput.Model
	width int

	history []string
	// recall indexes history while browsing; len(history) means not browsing.
	recall int
}

// NewInputField creates a new InputField.
func NewInputField() *InputField {
	ti := textinput.New()
	ti.Placeholder = "Ask anything and press Enter..."
	ti.Focus()
	ti.CharLimit = 4000
	ti.Width = 60

	return &InputField{
		input: ti,
		width: 80,
	}
}

// SetWidth sets the width of the input field.
func (f *InputField) SetWidth(width int) {
	f.width = width
	f.input.Width = width - 4 // prompt and padding
}

// Value returns the current text.
func (f *InputField) Value() string {
	return f.input.Value()
}

// Update handles messages for the input field.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			text := strings.TrimSpace(f.input.Value())
			if text == "" {
				return f, nil
			}
			f.history = append(f.history, text)
			f.recall = len(f.history)
			f.input.Reset()
			return f, func() tea.Msg {
				return PromptSubmittedMsg{Text: text}
			}

		case "up":
			if f.recall > 0 {
				f.recall--
				f.input.SetValue(f.history[f.recall])
				f.input.CursorEnd()
			}
			return f, nil

		case "down":
			if f.recall < len(f.history)-1 {
				f.recall++
				f.input.SetValue(f.history[f.recall])
				f.input.CursorEnd()
			} else {
				f.recall = len(f.history)
				f.input.Reset()
			}
			return f, nil
		}
	}

	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

// View renders the input field.
func (f *InputField) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(f.width - 2)

	prompt := promptStyle.Render("> ")
	return boxStyle.Render(prompt + f.input.View())
}

// Focus sets focus on the input field.
func (f *InputField) Focus() tea.Cmd {
	return f.input.Focus()
}

// Blur removes focus from the input field.
func (f *InputField) Blur() {
	f.input.Blur()
}
