package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestNewInputField(t *testing.T) {
	field := NewInputField()

	if field.width != 80 {
		t.Errorf("Default width = %d, want 80", field.width)
	}
}

func TestInputField_SetWidth(t *testing.T) {
	field := NewInputField()

	field.SetWidth(120)

	if field.width != 120 {
		t.Errorf("Width after SetWidth(120) = %d, want 120", field.width)
	}
	if field.input.Width != 116 {
		t.Errorf("Input width = %d, want 116", field.input.Width)
	}
}

func TestInputField_Enter(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty input", "", ""},
		{"whitespace only", "   ", ""},
		{"trimmed prompt", "  who wrote dune?  ", "who wrote dune?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field := NewInputField()
			field.input.SetValue(tt.value)

			_, cmd := field.Update(tea.KeyMsg{Type: tea.KeyEnter})
			if tt.want == "" {
				if cmd != nil {
					t.Errorf("expected no command for %q", tt.value)
				}
				return
			}
			if cmd == nil {
				t.Fatal("expected command from enter with text")
			}
			submitted, ok := cmd().(PromptSubmittedMsg)
			if !ok {
				t.Fatalf("expected PromptSubmittedMsg")
			}
			if submitted.Text != tt.want {
				t.Errorf("Text = %q, want %q", submitted.Text, tt.want)
			}
			if field.Value() != "" {
				t.Errorf("input should be cleared, got %q", field.Value())
			}
		})
	}
}

func TestInputField_Recall(t *testing.T) {
	field := NewInputField()
	for _, p := range []string{"first", "second"} {
		field.input.SetValue(p)
		field.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}

	up := tea.KeyMsg{Type: tea.KeyUp}
	down := tea.KeyMsg{Type: tea.KeyDown}

	steps := []struct {
		key  tea.KeyMsg
		want string
	}{
		{up, "second"},
		{up, "first"},
		{up, "first"},
		{down, "second"},
		{down, ""},
	}
	for i, s := range steps {
		field.Update(s.key)
		if got := field.Value(); got != s.want {
			t.Errorf("step %d: Value() = %q, want %q", i, got, s.want)
		}
	}
}

func TestInputField_View(t *testing.T) {
	field := NewInputField()
	if field.View() == "" {
		t.Error("View should render the input box")
	}
}
