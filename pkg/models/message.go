package models

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	default:
		return false
	}
}

// Message is one entry of a conversation. Messages are treated as immutable
// once appended to a history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user-authored message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatRequest is the input to a run: an ordered conversation history.
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// LatestUserText returns the content of the last user message, trimmed.
// Returns "" when the history has no user message.
func (r ChatRequest) LatestUserText() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return strings.TrimSpace(r.Messages[i].Content)
		}
	}
	return ""
}

// ChatResponse is the output of a run.
type ChatResponse struct {
	Message Message         `json:"message"`
	Status  ExecutionStatus `json:"status"`
	Context *RunContext     `json:"context,omitempty"`
}

// RunContext carries optional detail about how a response was produced.
type RunContext struct {
	RunID  string       `json:"run_id"`
	Policy string       `json:"policy"`
	Steps  []StepRecord `json:"steps,omitempty"`
	// Votes is set when the top-level policy was a race.
	Votes  *VoteStats   `json:"votes,omitempty"`
}

// VoteStats summarizes one consensus race.
type VoteStats struct {
	Attempts  int  `json:"attempts"`
	Admitted  int  `json:"admitted"`
	Failed    int  `json:"failed"`
	Discarded int  `json:"discarded"`
	Decided   bool `json:"decided"`
}

// StepRecord describes one executed step of a decomposed run.
type StepRecord struct {
	ID       int        `json:"id"`
	Text     string     `json:"text"`
	Rendered string     `json:"rendered"`
	Kind     StepKind   `json:"kind"`
	Tool     ToolKind   `json:"tool,omitempty"`
	Strategy string     `json:"strategy"`
	Result   string     `json:"result"`
	Verdict  string     `json:"verdict,omitempty"`
	Votes    *VoteStats `json:"votes,omitempty"`
	// Failed marks a step that produced no answer; Result then holds a
	// fixed marker.
	Failed   bool       `json:"failed,omitempty"`
}
