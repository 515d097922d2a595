// Package parser builds an ast.Program from a token stream.
//
// Grammar (one token of lookahead, no backtracking):
//
//	Program      := (VariableDecl | Workflow)*
//	Workflow     := "workflow" STRING "{" (VariableDecl | Step)* "}"
//	Step         := "step" NUMBER ":" (Conditional | Command)
//	Command      := NAME [ "(" (Expr ("," Expr)*)? ")" ]
//	Conditional  := "if" "(" Expr ")" "{" Step* "}" [ "else" "{" Step* "}" ]
//	VariableDecl := ("let"|"var"|"const") IDENT "=" Expr
//	Expr         := Primary (BINOP Primary)*
//	Primary      := STRING | NUMBER | IDENT [ "." IDENT ] | "step" NUMBER [ "." IDENT ]
//
// NAME is an identifier or one of the command keywords (print, log, fetch,
// send_email, notify). Binary operators share one precedence level and
// associate left to right. The first error ends parsing.
package parser

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/internal/lexer"
	"github.com/rendis/stepflow/pkg/schema"
)

// Parse builds a Program from tokens. tokens must end with an EOF token, as
// lexer.Tokenize guarantees; a missing EOF is tolerated.
func Parse(tokens []lexer.Token) (*ast.Program, error) {
	p := &parser{tokens: tokens}
	return p.program()
}

// ParseSource tokenizes and parses source in one call.
func ParseSource(source string) (*ast.Program, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	return Parse(tokens)
}

type parser struct {
	tokens  []lexer.Token
	current int
}

func (p *parser) program() (*ast.Program, error) {
	prog := &ast.Program{}

	for !p.atEnd() {
		switch p.peek().Type {
		case lexer.Workflow:
			wf, err := p.workflow()
			if err != nil {
				return nil, err
			}
			prog.Workflows = append(prog.Workflows, wf)
		case lexer.Let, lexer.Var, lexer.Const:
			decl, err := p.variableDeclaration()
			if err != nil {
				return nil, err
			}
			prog.Variables = append(prog.Variables, decl)
		default:
			return nil, p.errorAtPeek("expected workflow or variable declaration")
		}
	}

	return prog, nil
}

func (p *parser) workflow() (*ast.Workflow, error) {
	kw, err := p.consume(lexer.Workflow, "expected 'workflow'")
	if err != nil {
		return nil, err
	}

	name, err := p.consume(lexer.String, "expected workflow name string")
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.LeftBrace, "expected '{' after workflow name"); err != nil {
		return nil, err
	}

	wf := &ast.Workflow{Name: name.Literal, Line: kw.Line}
	for !p.check(lexer.RightBrace) && !p.atEnd() {
		switch p.peek().Type {
		case lexer.Let, lexer.Var, lexer.Const:
			decl, err := p.variableDeclaration()
			if err != nil {
				return nil, err
			}
			wf.Variables = append(wf.Variables, decl)
		default:
			s, err := p.step()
			if err != nil {
				return nil, err
			}
			wf.Steps = append(wf.Steps, s)
		}
	}

	if _, err := p.consume(lexer.RightBrace, "expected '}' after workflow body"); err != nil {
		return nil, err
	}
	return wf, nil
}

func (p *parser) step() (*ast.Step, error) {
	kw, err := p.consume(lexer.Step, "expected 'step'")
	if err != nil {
		return nil, err
	}

	id, err := p.stepNumber("expected step number")
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(lexer.Colon, "expected ':' after step number"); err != nil {
		return nil, err
	}

	s := &ast.Step{ID: id, Line: kw.Line}
	if p.check(lexer.If) {
		c, err := p.conditional()
		if err != nil {
			return nil, err
		}
		s.Content = c
	} else {
		c, err := p.command()
		if err != nil {
			return nil, err
		}
		s.Content = c
	}
	return s, nil
}

func (p *parser) command() (*ast.Command, error) {
	tok := p.peek()
	if tok.Type != lexer.Identifier && !tok.Type.IsCommandKeyword() {
		return nil, p.errorAtPeek("expected command name")
	}
	p.advance()

	cmd := &ast.Command{Name: tok.Lexeme}
	if !p.match(lexer.LeftParen) {
		return cmd, nil
	}

	args, err := p.expressionList()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.RightParen, "expected ')' after command arguments"); err != nil {
		return nil, err
	}
	cmd.Arguments = args
	return cmd, nil
}

func (p *parser) conditional() (*ast.Conditional, error) {
	if _, err := p.consume(lexer.If, "expected 'if'"); err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.LeftParen, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.RightParen, "expected ')' after condition"); err != nil {
		return nil, err
	}

	then, err := p.block("condition", "if block")
	if err != nil {
		return nil, err
	}

	c := &ast.Conditional{Condition: cond, Then: then}
	if p.match(lexer.Else) {
		els, err := p.block("'else'", "else block")
		if err != nil {
			return nil, err
		}
		if els == nil {
			els = []*ast.Step{}
		}
		c.Else = els
	}
	return c, nil
}

// block parses "{" Step* "}". after and name only shape error messages.
func (p *parser) block(after, name string) ([]*ast.Step, error) {
	if _, err := p.consume(lexer.LeftBrace, "expected '{' after "+after); err != nil {
		return nil, err
	}

	var steps []*ast.Step
	for !p.check(lexer.RightBrace) && !p.atEnd() {
		s, err := p.step()
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}

	if _, err := p.consume(lexer.RightBrace, "expected '}' after "+name); err != nil {
		return nil, err
	}
	return steps, nil
}

func (p *parser) variableDeclaration() (*ast.VariableDeclaration, error) {
	kw := p.advance()

	var keyword ast.Keyword
	switch kw.Type {
	case lexer.Let:
		keyword = ast.KeywordLet
	case lexer.Var:
		keyword = ast.KeywordVar
	case lexer.Const:
		keyword = ast.KeywordConst
	default:
		return nil, p.errorAt(kw, "expected variable declaration keyword")
	}

	name, err := p.consume(lexer.Identifier, "expected variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(lexer.Equal, "expected '=' after variable name"); err != nil {
		return nil, err
	}

	value, err := p.expression()
	if err != nil {
		return nil, err
	}

	return &ast.VariableDeclaration{
		Keyword: keyword,
		Name:    name.Lexeme,
		Value:   value,
		Line:    kw.Line,
	}, nil
}

func (p *parser) expression() (ast.Expression, error) {
	left, err := p.primary()
	if err != nil {
		return nil, err
	}

	for p.peek().Type.IsBinaryOperator() {
		op := p.advance()
		right, err := p.primary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{
			Left:     left,
			Operator: ast.Operator(op.Lexeme),
			Right:    right,
		}
	}
	return left, nil
}

func (p *parser) primary() (ast.Expression, error) {
	tok := p.peek()

	switch tok.Type {
	case lexer.String:
		p.advance()
		return &ast.StringLiteral{Value: tok.Literal}, nil

	case lexer.Number:
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			return nil, p.errorAt(tok, "invalid number").WithCause(err)
		}
		return &ast.NumberLiteral{Value: v}, nil

	case lexer.Identifier:
		p.advance()
		ident := &ast.Identifier{Name: tok.Lexeme}
		if !p.match(lexer.Dot) {
			return ident, nil
		}
		prop, err := p.consume(lexer.Identifier, "expected property name after '.'")
		if err != nil {
			return nil, err
		}
		return &ast.PropertyAccess{Object: ident, Property: prop.Lexeme}, nil

	case lexer.Step:
		p.advance()
		id, err := p.stepNumber("expected step number after 'step'")
		if err != nil {
			return nil, err
		}
		ref := &ast.StepReference{StepID: id}
		if p.match(lexer.Dot) {
			prop, err := p.consume(lexer.Identifier, "expected property name after '.'")
			if err != nil {
				return nil, err
			}
			ref.Property = prop.Lexeme
		}
		return ref, nil
	}

	return nil, p.errorAtPeek("expected expression")
}

func (p *parser) expressionList() ([]ast.Expression, error) {
	var exprs []ast.Expression
	if p.check(lexer.RightParen) {
		return exprs, nil
	}

	for {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.match(lexer.Comma) {
			return exprs, nil
		}
	}
}

// stepNumber consumes a NUMBER and converts it to a step id. Fractions are
// truncated and values beyond uint32 saturate.
func (p *parser) stepNumber(message string) (uint32, error) {
	tok, err := p.consume(lexer.Number, message)
	if err != nil {
		return 0, err
	}
	v, perr := strconv.ParseFloat(tok.Lexeme, 64)
	if perr != nil {
		return 0, p.errorAt(tok, message).WithCause(perr)
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32, nil
	}
	return uint32(v), nil
}

// --- token helpers ---

func (p *parser) peek() lexer.Token {
	if p.current >= len(p.tokens) {
		line := 1
		if n := len(p.tokens); n > 0 {
			line = p.tokens[n-1].Line
		}
		return lexer.Token{Type: lexer.EOF, Line: line}
	}
	return p.tokens[p.current]
}

func (p *parser) advance() lexer.Token {
	tok := p.peek()
	if !p.atEnd() {
		p.current++
	}
	return tok
}

func (p *parser) atEnd() bool {
	return p.peek().Type == lexer.EOF
}

func (p *parser) check(t lexer.TokenType) bool {
	return !p.atEnd() && p.peek().Type == t
}

func (p *parser) match(t lexer.TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) consume(t lexer.TokenType, message string) (lexer.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return lexer.Token{}, p.errorAtPeek(message)
}

func (p *parser) errorAtPeek(message string) *schema.Error {
	return p.errorAt(p.peek(), message)
}

func (p *parser) errorAt(tok lexer.Token, message string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeUnexpectedToken, "%s, found %s", message, describe(tok)).
		WithLine(tok.Line).
		WithDetails(map[string]any{"found": tok.Type.String()})
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.String:
		return fmt.Sprintf("string %q", tok.Literal)
	case lexer.Number:
		return "number " + tok.Lexeme
	case lexer.Identifier:
		return fmt.Sprintf("identifier %q", tok.Lexeme)
	default:
		return fmt.Sprintf("'%s'", tok.Lexeme)
	}
}
