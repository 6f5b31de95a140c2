package models

import "fmt"

// PolicyKind names the top-level execution branch chosen for a request.
type PolicyKind string

const (
	// PolicyDecompose splits the request into steps executed in order.
	PolicyDecompose PolicyKind = "decompose_and_execute"
	// PolicyInternalStub runs a deterministic local tool.
	PolicyInternalStub PolicyKind = "internal_stub"
	// PolicySingleProbe sends the prompt to the default provider once.
	PolicySingleProbe PolicyKind = "single_probe"
	// PolicyMakerRace runs a consensus race over redundant generations.
	PolicyMakerRace PolicyKind = "maker_race"
)

// Valid returns true if the policy kind is a known value.
func (k PolicyKind) Valid() bool {
	switch k {
	case PolicyDecompose, PolicyInternalStub, PolicySingleProbe, PolicyMakerRace:
		return true
	default:
		return false
	}
}

// ExecutionPolicy is selected once per top-level request and never mutated.
// Only the fields relevant to Kind are populated.
type ExecutionPolicy struct {
	Kind     PolicyKind `json:"kind"`
	ToolName string     `json:"tool_name,omitempty"`
	Args     string     `json:"args,omitempty"`
	Prompt   string     `json:"prompt,omitempty"`
	N        int        `json:"n,omitempty"`
	K        int        `json:"k,omitempty"`
}

// DecomposeAndExecute returns the decomposition policy.
func DecomposeAndExecute() ExecutionPolicy {
	return ExecutionPolicy{Kind: PolicyDecompose}
}

// InternalStub returns a policy that runs the named local tool with args.
func InternalStub(toolName, args string) ExecutionPolicy {
	return ExecutionPolicy{Kind: PolicyInternalStub, ToolName: toolName, Args: args}
}

// SingleProbe returns a single pass-through policy.
func SingleProbe(prompt string) ExecutionPolicy {
	return ExecutionPolicy{Kind: PolicySingleProbe, Prompt: prompt}
}

// MakerRace returns a consensus race policy over n attempts with margin k.
func MakerRace(prompt string, n, k int) ExecutionPolicy {
	return ExecutionPolicy{Kind: PolicyMakerRace, Prompt: prompt, N: n, K: k}
}

func (p ExecutionPolicy) String() string {
	switch p.Kind {
	case PolicyInternalStub:
		return fmt.Sprintf("internal_stub(%s)", p.ToolName)
	case PolicyMakerRace:
		return fmt.Sprintf("maker_race(n=%d,k=%d)", p.N, p.K)
	default:
		return string(p.Kind)
	}
}
