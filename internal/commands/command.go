// Package commands holds the table of named step handlers the executor
// dispatches to. Handlers are pure functions of their evaluated arguments:
// the side-effecting ones (fetch, send_email, notify) are simulations.
package commands

import (
	"context"

	"github.com/rendis/stepflow/pkg/schema"
)

// Command is a named step handler.
type Command interface {
	Name() string
	Info() Info
	// Execute runs the handler over the evaluated argument strings. It never
	// fails: problems are reported through the returned StepResult.
	Execute(ctx context.Context, args []string) Outcome
}

// Info describes a registered command for listings and step outlines.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Usage shows the positional parameters and their defaults.
	Usage string `json:"usage,omitempty"`
	// Label is the short phrase used in human-readable step outlines.
	// Empty means "Execute <name>".
	Label string `json:"label,omitempty"`
}

// StepLabel returns Label, or "Execute <name>" when none is set.
func (i Info) StepLabel() string {
	if i.Label != "" {
		return i.Label
	}
	return "Execute " + i.Name
}

// Outcome is what a command produces: the result stored under the step id
// and an optional trace line.
type Outcome struct {
	Result schema.StepResult
	Trace  string
}

// Func adapts a plain function to the Command interface.
type Func struct {
	info Info
	fn   func(ctx context.Context, args []string) Outcome
}

// NewFunc builds a Command named info.Name backed by fn.
func NewFunc(info Info, fn func(ctx context.Context, args []string) Outcome) *Func {
	return &Func{info: info, fn: fn}
}

func (f *Func) Name() string { return f.info.Name }
func (f *Func) Info() Info   { return f.info }

func (f *Func) Execute(ctx context.Context, args []string) Outcome {
	return f.fn(ctx, args)
}

// arg returns args[i], or def when the argument was not supplied.
func arg(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
