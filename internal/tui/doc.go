// Package tui provides the terminal chat for boomai.
//
// The chat keeps the conversation history, submits it to the orchestrator
// on Enter and shows live run progress (classification, voting rounds,
// tool calls, solved steps) under a spinner until the answer arrives.
//
// Keys:
//   - Enter submits the prompt
//   - Up/Down recall earlier prompts
//   - Esc cancels the run in progress
//   - Ctrl+C cancels the run, or quits when idle
//   - PgUp/PgDn scroll the transcript
//
// Usage:
//
//	app := tui.NewChatApp(orch)
//	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
//	    return err
//	}
//
// Typing /clear starts a new conversation.
package tui
