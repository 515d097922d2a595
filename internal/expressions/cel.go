package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/rendis/stepflow/pkg/schema"
)

// CELEngine evaluates Common Expression Language predicates for the assert
// command.
type CELEngine struct {
	env      *cel.Env
	programs *cache[cel.Program]
}

// NewCELEngine declares args as list(string), nums as list(dyn) and argc as
// int. Nothing else is visible to an expression.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("args", cel.ListType(cel.StringType)),
		cel.Variable("nums", cel.ListType(cel.DynType)),
		cel.Variable("argc", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	e := &CELEngine{env: env}
	e.programs = newCache(e.compile)
	return e, nil
}

func (e *CELEngine) Name() string { return "cel" }

func (e *CELEngine) Eval(ctx context.Context, expression string, args Args) (any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}

	prg, err := e.programs.get(expression)
	if err != nil {
		return nil, err
	}

	out, _, err := prg.ContextEval(ctx, args.Vars())
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out.Value(), nil
}

// Check evaluates a predicate and requires a boolean result.
func (e *CELEngine) Check(ctx context.Context, expression string, args Args) (bool, error) {
	out, err := e.Eval(ctx, expression, args)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, schema.NewErrorf(schema.ErrCodeValidation,
			"CEL expression %q must evaluate to bool, got %T", expression, out).
			WithDetails(map[string]any{"expression": expression})
	}
	return b, nil
}

func (e *CELEngine) compile(expression string) (cel.Program, error) {
	checked, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, compileError("CEL", "compile", expression, issues.Err())
	}
	prg, err := e.env.Program(checked)
	if err != nil {
		return nil, compileError("CEL", "program", expression, err)
	}
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
