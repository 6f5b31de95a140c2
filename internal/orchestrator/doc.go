// Package orchestrator turns one chat request into model calls, tool calls
// and consensus races, and reports progress as status events.
//
// A run proceeds as follows:
//   - Classification: the intent selector picks one execution policy for the
//     latest user message
//   - Dispatch: internal tool stub, single probe, consensus race, or
//     decomposition into steps
//   - Step loop: for decomposed goals, each step is rendered with earlier
//     results, resolved to a strategy and executed strictly in order
//
// Provider failures surface as a Failed status carrying only the sanitized
// message; the typed error is returned alongside for the caller.
//
// Example usage:
//
//	registry := provider.NewRegistry(nil)
//	registry.Register("local", provider.NewFake("4"), provider.DefaultRunnerConfig(), "fake", provider.EntryMock)
//	o := orchestrator.New(registry, orchestrator.DefaultConfig())
//	resp, err := o.Run(ctx, models.ChatRequest{Messages: []models.Message{models.UserMessage("what is 2 + 2")}})
package orchestrator
