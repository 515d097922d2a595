package validation

import (
	"fmt"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/pkg/schema"
)

// Lint inspects a parsed program for constructs that parse but are likely to
// misbehave at run time. Every finding is a warning; Lint never rejects a
// program and never changes how it executes.
//
// Checks, in execution order:
//   - a step id declared more than once (results share one table)
//   - a command the lookup does not know (runs as status 400)
//   - a step reference to an id no earlier command step produces
//   - an identifier that no declaration in the program binds
//   - a comparison nested inside another binary expression
//   - a comparison used where a string value is required
//
// lookup may be nil to skip the command check.
func Lint(prog *ast.Program, lookup CommandLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if prog == nil {
		return result
	}

	l := &linter{
		lookup:   lookup,
		result:   result,
		declared: declaredNames(prog),
		stepLine: make(map[uint32]int),
		produced: make(map[uint32]bool),
	}

	for _, v := range prog.Variables {
		l.declaration("let "+v.Name, v)
	}
	for _, wf := range prog.Workflows {
		prefix := fmt.Sprintf("workflow %q", wf.Name)
		for _, v := range wf.Variables {
			l.declaration(prefix+"/let "+v.Name, v)
		}
		l.steps(prefix, wf.Steps)
	}

	return result
}

type linter struct {
	lookup   CommandLookup
	result   *schema.ValidationResult
	declared map[string]bool
	stepLine map[uint32]int  // first declaration line per step id
	produced map[uint32]bool // ids a command step has written by this point
}

func (l *linter) declaration(path string, v *ast.VariableDeclaration) {
	l.valueExpr(path, v.Line, v.Value)
}

func (l *linter) steps(prefix string, steps []*ast.Step) {
	for _, s := range steps {
		path := fmt.Sprintf("%s/step %d", prefix, s.ID)

		if first, dup := l.stepLine[s.ID]; dup {
			l.result.AddWarning(path, s.Line, schema.LintDuplicateStepID,
				fmt.Sprintf("step %d already declared at line %d; results share one table and the later write wins", s.ID, first))
		} else {
			l.stepLine[s.ID] = s.Line
		}

		switch c := s.Content.(type) {
		case *ast.Command:
			if l.lookup != nil && !l.lookup.Has(c.Name) {
				l.result.AddWarning(path, s.Line, schema.LintUnknownCommand,
					fmt.Sprintf("command %q is not registered; the step will record status 400", c.Name))
			}
			for _, arg := range c.Arguments {
				l.valueExpr(path, s.Line, arg)
			}
			l.produced[s.ID] = true

		case *ast.Conditional:
			l.conditionExpr(path, s.Line, c.Condition)
			l.steps(prefix, c.Then)
			l.steps(prefix, c.Else)
		}
	}
}

// valueExpr checks an expression evaluated to a string: command arguments
// and declaration values.
func (l *linter) valueExpr(path string, line int, e ast.Expression) {
	if bin, ok := e.(*ast.BinaryExpression); ok && bin.Operator.IsComparison() {
		l.result.AddWarning(path, line, schema.LintComparisonValue,
			fmt.Sprintf("comparison %q is only meaningful as an if condition; as a value it fails at run time", bin.String()))
		l.operands(path, line, bin)
		return
	}
	l.walk(path, line, e)
}

// conditionExpr checks an if condition. A comparison is allowed at the top
// but not within either operand.
func (l *linter) conditionExpr(path string, line int, e ast.Expression) {
	if bin, ok := e.(*ast.BinaryExpression); ok && bin.Operator.IsComparison() {
		l.operands(path, line, bin)
		return
	}
	l.walk(path, line, e)
}

func (l *linter) operands(path string, line int, bin *ast.BinaryExpression) {
	l.walk(path, line, bin.Left)
	l.walk(path, line, bin.Right)
}

// walk checks references in e and flags any comparison inside it.
func (l *linter) walk(path string, line int, e ast.Expression) {
	ast.WalkExpr(e, func(x ast.Expression) {
		switch n := x.(type) {
		case *ast.Identifier:
			if !l.declared[n.Name] {
				l.result.AddWarning(path, line, schema.LintUndeclaredVariable,
					fmt.Sprintf("identifier %q is never declared", n.Name))
			}
		case *ast.StepReference:
			if !l.produced[n.StepID] {
				l.result.AddWarning(path, line, schema.LintForwardStepRef,
					fmt.Sprintf("step %d has no result from an earlier command step", n.StepID))
			}
		case *ast.BinaryExpression:
			if n.Operator.IsComparison() {
				l.result.AddWarning(path, line, schema.LintChainedComparison,
					fmt.Sprintf("comparison %q is nested in a larger expression and fails at run time", n.String()))
			}
		}
	})
}

func declaredNames(prog *ast.Program) map[string]bool {
	names := make(map[string]bool)
	for _, v := range prog.Variables {
		names[v.Name] = true
	}
	for _, wf := range prog.Workflows {
		for _, v := range wf.Variables {
			names[v.Name] = true
		}
	}
	return names
}
