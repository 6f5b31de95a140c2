package models

import (
	"encoding/json"
	"testing"
)

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{"user is valid", RoleUser, true},
		{"assistant is valid", RoleAssistant, true},
		{"system is valid", RoleSystem, true},
		{"empty is invalid", Role(""), false},
		{"uppercase is invalid", Role("User"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.want {
				t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestChatRequest_LatestUserText(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
		want string
	}{
		{"empty history", ChatRequest{}, ""},
		{
			"single user message is trimmed",
			ChatRequest{Messages: []Message{UserMessage("  hello  ")}},
			"hello",
		},
		{
			"assistant tail is skipped",
			ChatRequest{Messages: []Message{
				UserMessage("first"),
				AssistantMessage("reply"),
				UserMessage("second"),
				AssistantMessage("reply again"),
			}},
			"second",
		},
		{
			"system only",
			ChatRequest{Messages: []Message{SystemMessage("be brief")}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.LatestUserText(); got != tt.want {
				t.Errorf("LatestUserText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecutionPolicy_String(t *testing.T) {
	tests := []struct {
		policy ExecutionPolicy
		want   string
	}{
		{DecomposeAndExecute(), "decompose_and_execute"},
		{InternalStub("calculator", "2+2"), "internal_stub(calculator)"},
		{SingleProbe("hi"), "single_probe"},
		{MakerRace("list pros", 5, 2), "maker_race(n=5,k=2)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.policy.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if !tt.policy.Kind.Valid() {
				t.Errorf("Kind %q should be valid", tt.policy.Kind)
			}
		})
	}
}

func TestExecStrategy_String(t *testing.T) {
	tests := []struct {
		strategy ExecStrategy
		want     string
	}{
		{ExecStrategy{Kind: StrategyToolCall, Tool: ToolCalculator}, "tool_call(calculator)"},
		{ExecStrategy{Kind: StrategySingleProbe}, "single_probe"},
		{ExecStrategy{Kind: StrategyMakerRace, N: 5, K: 2}, "maker_race(n=5,k=2)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.strategy.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStep_HasTool(t *testing.T) {
	if (Step{Kind: StepReasoning}).HasTool() {
		t.Error("step without tool should report HasTool() = false")
	}
	if !(Step{Kind: StepMath, Tool: ToolCalculator}).HasTool() {
		t.Error("step with calculator should report HasTool() = true")
	}
	if ToolNone.Valid() {
		t.Error("ToolNone should not be valid")
	}
}

func TestExecutionStatus_WireFormat(t *testing.T) {
	tests := []struct {
		name   string
		status ExecutionStatus
		want   string
	}{
		{"done has no data", Status(StatusDone), `{"type":"done"}`},
		{"voting carries round", Voting(2), `{"type":"voting","data":{"round":2}}`},
		{"toolcall carries tool", ToolCall("calculator"), `{"type":"toolcall","data":{"tool":"calculator"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := json.Marshal(tt.status)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Marshal() = %s, want %s", b, tt.want)
			}
		})
	}
}

func TestExecutionStatus_UnmarshalRejectsUnknown(t *testing.T) {
	var s ExecutionStatus
	if err := json.Unmarshal([]byte(`{"type":"exploded"}`), &s); err == nil {
		t.Error("expected error for unknown status type")
	}

	if err := json.Unmarshal([]byte(`{}`), &s); err != nil {
		t.Fatalf("Unmarshal({}) failed: %v", err)
	}
	if s.Kind != StatusDone {
		t.Errorf("empty status decoded as %q, want %q", s.Kind, StatusDone)
	}
}

func TestExecutionStatus_Terminal(t *testing.T) {
	tests := []struct {
		status ExecutionStatus
		want   bool
	}{
		{Status(StatusClassifying), false},
		{Voting(1), false},
		{ToolCall("system_time"), false},
		{Status(StatusDone), true},
		{Status(StatusFailed), true},
		{Status(StatusError), true},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}
