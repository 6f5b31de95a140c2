package models

import (
	"encoding/json"
	"fmt"
)

// StatusKind is the tag of an ExecutionStatus.
type StatusKind string

const (
	StatusClassifying StatusKind = "classifying"
	StatusDecomposing StatusKind = "decomposing"
	StatusVoting      StatusKind = "voting"
	StatusToolCall    StatusKind = "toolcall"
	StatusSolved      StatusKind = "solved"
	StatusProcessing  StatusKind = "processing"
	StatusDone        StatusKind = "done"
	StatusFailed      StatusKind = "failed"
	StatusError       StatusKind = "error"
)

// Valid returns true if the status kind is a known value.
func (k StatusKind) Valid() bool {
	switch k {
	case StatusClassifying, StatusDecomposing, StatusVoting, StatusToolCall,
		StatusSolved, StatusProcessing, StatusDone, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

// ExecutionStatus is a progress or outcome tag. Round is set for Voting,
// Tool for ToolCall.
//
// On the wire it is {"type": "<kind>"} with an optional "data" object,
// e.g. {"type":"voting","data":{"round":2}}.
type ExecutionStatus struct {
	Kind  StatusKind
	Round int
	Tool  string
}

// Status builds a payload-free status.
func Status(kind StatusKind) ExecutionStatus {
	return ExecutionStatus{Kind: kind}
}

// Voting builds a voting status for the given round.
func Voting(round int) ExecutionStatus {
	return ExecutionStatus{Kind: StatusVoting, Round: round}
}

// ToolCall builds a tool-call status.
func ToolCall(tool string) ExecutionStatus {
	return ExecutionStatus{Kind: StatusToolCall, Tool: tool}
}

// Terminal reports whether the status ends a run.
func (s ExecutionStatus) Terminal() bool {
	switch s.Kind {
	case StatusDone, StatusFailed, StatusError:
		return true
	default:
		return false
	}
}

func (s ExecutionStatus) String() string {
	switch s.Kind {
	case StatusVoting:
		return fmt.Sprintf("voting(round=%d)", s.Round)
	case StatusToolCall:
		return fmt.Sprintf("toolcall(%s)", s.Tool)
	default:
		return string(s.Kind)
	}
}

type statusWire struct {
	Type StatusKind      `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type votingData struct {
	Round int `json:"round"`
}

type toolCallData struct {
	Tool string `json:"tool"`
}

// MarshalJSON implements json.Marshaler.
func (s ExecutionStatus) MarshalJSON() ([]byte, error) {
	w := statusWire{Type: s.Kind}
	var err error
	switch s.Kind {
	case StatusVoting:
		w.Data, err = json.Marshal(votingData{Round: s.Round})
	case StatusToolCall:
		w.Data, err = json.Marshal(toolCallData{Tool: s.Tool})
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. A missing status decodes as Done.
func (s *ExecutionStatus) UnmarshalJSON(b []byte) error {
	var w statusWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	if w.Type == "" {
		*s = Status(StatusDone)
		return nil
	}
	if !w.Type.Valid() {
		return fmt.Errorf("unknown status type %q", w.Type)
	}

	out := ExecutionStatus{Kind: w.Type}
	switch w.Type {
	case StatusVoting:
		var d votingData
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &d); err != nil {
				return fmt.Errorf("decode voting data: %w", err)
			}
		}
		out.Round = d.Round
	case StatusToolCall:
		var d toolCallData
		if len(w.Data) > 0 {
			if err := json.Unmarshal(w.Data, &d); err != nil {
				return fmt.Errorf("decode toolcall data: %w", err)
			}
		}
		out.Tool = d.Tool
	}
	*s = out
	return nil
}
