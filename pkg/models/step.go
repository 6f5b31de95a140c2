package models

import "fmt"

// StepKind classifies a decomposed step.
type StepKind string

const (
	StepTool      StepKind = "tool"
	StepMath      StepKind = "math"
	StepReasoning StepKind = "reasoning"
)

// Valid returns true if the step kind is a known value.
func (k StepKind) Valid() bool {
	switch k {
	case StepTool, StepMath, StepReasoning:
		return true
	default:
		return false
	}
}

// ToolKind names a deterministic local capability. The zero value means
// no tool.
type ToolKind string

const (
	ToolNone       ToolKind = ""
	ToolSystemTime ToolKind = "system_time"
	ToolCalculator ToolKind = "calculator"
)

// Valid returns true if the tool kind names a known tool.
func (t ToolKind) Valid() bool {
	switch t {
	case ToolSystemTime, ToolCalculator:
		return true
	default:
		return false
	}
}

// Step is one atomic instruction produced by decomposition. ID is the
// lookup key into an execution context and nothing more.
type Step struct {
	ID   int      `json:"id"`
	Text string   `json:"text"`
	Kind StepKind `json:"kind"`
	Tool ToolKind `json:"tool,omitempty"`
}

// HasTool reports whether the step carries a tool.
func (s Step) HasTool() bool {
	return s.Tool != ToolNone
}

// StrategyKind names the mechanism used to fulfil one step.
type StrategyKind string

const (
	StrategyToolCall    StrategyKind = "tool_call"
	StrategySingleProbe StrategyKind = "single_probe"
	StrategyMakerRace   StrategyKind = "maker_race"
)

// ExecStrategy is derived from a Step. It is recomputed when needed and
// never stored.
type ExecStrategy struct {
	Kind StrategyKind
	Tool ToolKind
	N    int
	K    int
}

func (s ExecStrategy) String() string {
	switch s.Kind {
	case StrategyToolCall:
		return fmt.Sprintf("tool_call(%s)", s.Tool)
	case StrategyMakerRace:
		return fmt.Sprintf("maker_race(n=%d,k=%d)", s.N, s.K)
	default:
		return string(s.Kind)
	}
}
