// Package expressions hosts the embedded languages behind the extended
// commands: CEL for assertions, Expr for calculations and jq for querying
// JSON step data. Every engine sees a command's arguments the same way.
package expressions

import (
	"context"
	"strconv"
	"strings"

	"github.com/rendis/stepflow/pkg/schema"
)

// Engine evaluates one expression over the arguments that follow it in a
// command step.
type Engine interface {
	Name() string
	Eval(ctx context.Context, expression string, args Args) (any, error)
}

// Args are the evaluated string arguments of a command step that come after
// the expression, e.g. "200" in assert("int(args[0]) == 200", step 1.status).
type Args []string

// Vars returns the variables an engine exposes:
//   - args: the arguments as strings
//   - nums: each argument as a float, or null when it is not numeric
//   - argc: the argument count
func (a Args) Vars() map[string]any {
	raw := make([]any, len(a))
	nums := make([]any, len(a))
	for i, s := range a {
		raw[i] = s
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			nums[i] = f
		}
	}
	return map[string]any{"args": raw, "nums": nums, "argc": len(a)}
}

func emptyExpression(engine string) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "empty %s expression", engine)
}

func compileError(engine, stage, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation,
		"%s %s error in %q: %s", engine, stage, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}

func evalError(engine, expression string, err error) error {
	return schema.NewErrorf(schema.ErrCodeExecution,
		"%s evaluation failed for %q: %s", engine, expression, err.Error()).
		WithCause(err).
		WithDetails(map[string]any{"expression": expression})
}
