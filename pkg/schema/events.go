package schema

import (
	"strings"
	"time"
)

// TraceKind classifies a trace event emitted during a program run.
type TraceKind string

const (
	TraceRunStarted        TraceKind = "run_started"
	TraceVariableBound     TraceKind = "variable_bound"
	TraceWorkflowEntered   TraceKind = "workflow_entered"
	TraceStepEntered       TraceKind = "step_entered"
	TraceCommandDispatched TraceKind = "command_dispatched"
	TraceCommandUnknown    TraceKind = "command_unknown"
	TraceBranchTaken       TraceKind = "branch_taken"
	TraceBranchSkipped     TraceKind = "branch_skipped"
	TraceRunCompleted      TraceKind = "run_completed"
	TraceRunFailed         TraceKind = "run_failed"
)

// TraceEvent is one human-readable line of an execution trace.
type TraceEvent struct {
	Seq      int       `json:"seq"`
	RunID    string    `json:"run_id"`
	Kind     TraceKind `json:"kind"`
	Workflow string    `json:"workflow,omitempty"`
	StepID   string    `json:"step_id,omitempty"`
	Depth    int       `json:"depth,omitempty"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// String renders the event as an indented trace line.
func (e TraceEvent) String() string {
	return strings.Repeat("  ", e.Depth) + e.Text
}

// TraceLines renders events as plain lines, in order.
func TraceLines(events []TraceEvent) []string {
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.String()
	}
	return lines
}
