package engine

import (
	"errors"
	"strconv"
	"strings"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/pkg/schema"
)

// Evaluate reduces an expression to its string value against the current
// Environment and step-result table. It never modifies either.
func (e *Executor) Evaluate(expr ast.Expression) (string, error) {
	return e.evaluate(expr)
}

// EvaluateCondition decides a conditional. A top-level comparison is decided
// structurally; any other expression is evaluated and tested for truthiness.
func (e *Executor) EvaluateCondition(expr ast.Expression) (bool, error) {
	return e.condition(expr)
}

func (e *Executor) evaluate(expr ast.Expression) (string, error) {
	switch x := expr.(type) {
	case *ast.StringLiteral:
		return x.Value, nil

	case *ast.NumberLiteral:
		return ast.FormatNumber(x.Value), nil

	case *ast.Identifier:
		v, ok := e.vars[x.Name]
		if !ok {
			return "", schema.NewErrorf(schema.ErrCodeUndefinedVariable,
				"undefined variable %q", x.Name).
				WithDetails(map[string]any{"name": x.Name})
		}
		return v, nil

	case *ast.BinaryExpression:
		// Operands first: a lookup failure wins over the operator check.
		left, err := e.evaluate(x.Left)
		if err != nil {
			return "", err
		}
		right, err := e.evaluate(x.Right)
		if err != nil {
			return "", err
		}
		if x.Operator != ast.OpConcat {
			return "", schema.NewErrorf(schema.ErrCodeUnknownOperator,
				"operator %q cannot produce a value", string(x.Operator)).
				WithDetails(map[string]any{"operator": string(x.Operator)})
		}
		return left + right, nil

	case *ast.PropertyAccess:
		obj, err := e.evaluate(x.Object)
		if err != nil {
			return "", err
		}
		return obj + "." + x.Property, nil

	case *ast.StepReference:
		r, ok := e.results[x.StepID]
		if !ok {
			return "", schema.NewErrorf(schema.ErrCodeStepNotFound,
				"step %d has no recorded result", x.StepID).
				WithDetails(map[string]any{"step": x.StepID})
		}
		return r.Property(x.Property), nil

	default:
		return "", schema.NewErrorf(schema.ErrCodeUnknownOperator,
			"unsupported expression %T", expr)
	}
}

func (e *Executor) condition(expr ast.Expression) (bool, error) {
	bin, ok := expr.(*ast.BinaryExpression)
	if !ok || !bin.Operator.IsComparison() {
		v, err := e.evaluate(expr)
		if err != nil {
			return false, err
		}
		return truthy(v), nil
	}

	left, err := e.evaluate(bin.Left)
	if err != nil {
		return false, err
	}
	right, err := e.evaluate(bin.Right)
	if err != nil {
		return false, err
	}

	switch bin.Operator {
	case ast.OpEqual:
		return left == right, nil
	case ast.OpNotEqual:
		return left != right, nil
	}

	l, r := number(left), number(right)
	switch bin.Operator {
	case ast.OpGreater:
		return l > r, nil
	case ast.OpLess:
		return l < r, nil
	case ast.OpGreaterEqual:
		return l >= r, nil
	default:
		return l <= r, nil
	}
}

// truthy is false only for "", "0" and "false".
func truthy(v string) bool {
	return v != "" && v != "0" && v != "false"
}

// number parses v as a decimal float; anything unparsable is 0. Hex floats
// and digit separators are unparsable. Out-of-range values saturate to
// ±Inf or 0.
func number(v string) float64 {
	if strings.ContainsAny(v, "xX_") {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return f
}
