package expressions

import (
	"context"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rendis/stepflow/pkg/schema"
)

// ExprEngine evaluates expr-lang/expr expressions for the calc command:
// arithmetic, string and array builtins, nil coalescing and pipes.
// Unknown identifiers evaluate to nil.
type ExprEngine struct {
	programs *cache[*vm.Program]
}

func NewExprEngine() *ExprEngine {
	return &ExprEngine{programs: newCache(compileExpr)}
}

func (e *ExprEngine) Name() string { return "expr" }

func (e *ExprEngine) Eval(ctx context.Context, expression string, args Args) (any, error) {
	if expression == "" {
		return nil, emptyExpression(e.Name())
	}
	if err := ctx.Err(); err != nil {
		return nil, schema.NewError(schema.ErrCodeExecution, "expr evaluation cancelled").WithCause(err)
	}

	prg, err := e.programs.get(expression)
	if err != nil {
		return nil, err
	}

	out, err := vm.Run(prg, args.Vars())
	if err != nil {
		return nil, evalError(e.Name(), expression, err)
	}
	return out, nil
}

// compileExpr types the environment from an empty argument list, so one
// program serves every call with the same expression.
func compileExpr(expression string) (*vm.Program, error) {
	prg, err := expr.Compile(expression,
		expr.Env(Args(nil).Vars()),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, compileError("expr", "compile", expression, err)
	}
	return prg, nil
}

var _ Engine = (*ExprEngine)(nil)
