// Package ast defines the syntax tree the parser builds and the engine walks.
//
// Step content and expressions are closed sets: the marker methods are
// unexported, so only the types in this package satisfy StepContent and
// Expression and type switches over them can be exhaustive.
package ast

import (
	"strconv"
	"strings"
)

// Program is the root of a parsed source: top-level declarations and
// workflows, both in declaration order.
type Program struct {
	Variables []*VariableDeclaration
	Workflows []*Workflow
}

// Workflow is a named, ordered sequence of steps.
type Workflow struct {
	Name string
	// Variables declared inside the workflow body. They are bound when the
	// workflow is entered, before its first step.
	Variables []*VariableDeclaration
	Steps     []*Step
	Line      int
}

// Step is an execution unit with a declared numeric id.
type Step struct {
	ID      uint32
	Content StepContent
	Line    int
}

// StepContent is either *Command or *Conditional.
type StepContent interface {
	stepContent()
}

// Command is a named operation with argument expressions.
type Command struct {
	Name      string
	Arguments []Expression
}

// Conditional runs Then when Condition holds, otherwise Else.
type Conditional struct {
	Condition Expression
	Then      []*Step
	// Else is nil when the conditional has no else clause.
	Else []*Step
}

func (*Command) stepContent()     {}
func (*Conditional) stepContent() {}

// Keyword records which word introduced a declaration. It is not enforced:
// every binding is mutable.
type Keyword string

const (
	KeywordLet   Keyword = "let"
	KeywordVar   Keyword = "var"
	KeywordConst Keyword = "const"
)

// VariableDeclaration binds Name to the string value of Value.
type VariableDeclaration struct {
	Keyword Keyword
	Name    string
	Value   Expression
	Line    int
}

// Operator is a binary operator. All operators share one precedence level.
type Operator string

const (
	OpConcat       Operator = "+"
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// IsComparison reports whether op yields a boolean rather than a string.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}

// Expression is one of StringLiteral, NumberLiteral, Identifier,
// BinaryExpression, PropertyAccess or StepReference.
type Expression interface {
	expression()
	String() string
}

// StringLiteral is a quoted string. Value holds the unquoted body.
type StringLiteral struct {
	Value string
}

// NumberLiteral is a decimal number.
type NumberLiteral struct {
	Value float64
}

// Identifier references a variable in the environment.
type Identifier struct {
	Name string
}

// BinaryExpression joins two operands with an operator.
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

// PropertyAccess is `object.property`.
type PropertyAccess struct {
	Object   Expression
	Property string
}

// StepReference is `step N` or `step N.property`. Property is empty when
// omitted.
type StepReference struct {
	StepID   uint32
	Property string
}

func (*StringLiteral) expression()    {}
func (*NumberLiteral) expression()    {}
func (*Identifier) expression()       {}
func (*BinaryExpression) expression() {}
func (*PropertyAccess) expression()   {}
func (*StepReference) expression()    {}

// FormatNumber renders a number in its shortest decimal form without an
// exponent: 200 -> "200", 1.5 -> "1.5".
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (s *StringLiteral) String() string {
	if strings.ContainsRune(s.Value, '"') {
		return "'" + s.Value + "'"
	}
	return `"` + s.Value + `"`
}

func (n *NumberLiteral) String() string { return FormatNumber(n.Value) }

func (i *Identifier) String() string { return i.Name }

func (b *BinaryExpression) String() string {
	return b.Left.String() + " " + string(b.Operator) + " " + b.Right.String()
}

func (p *PropertyAccess) String() string {
	return p.Object.String() + "." + p.Property
}

func (r *StepReference) String() string {
	s := "step " + strconv.FormatUint(uint64(r.StepID), 10)
	if r.Property != "" {
		s += "." + r.Property
	}
	return s
}
