package lexer

import "fmt"

// TokenType tags a lexical token.
type TokenType int

const (
	EOF TokenType = iota

	// Keywords.
	Workflow
	Step
	Let
	Var
	Const
	If
	Else
	Print
	Log
	Fetch
	SendEmail
	Notify

	// Literals.
	String
	Number
	Identifier

	// Operators.
	Plus
	Equal
	EqualEqual
	NotEqual
	Greater
	Less
	GreaterEqual
	LessEqual
	Dot

	// Punctuation.
	LeftParen
	RightParen
	LeftBrace
	RightBrace
	Colon
	Semicolon
	Comma
)

var tokenNames = [...]string{
	EOF:          "EOF",
	Workflow:     "workflow",
	Step:         "step",
	Let:          "let",
	Var:          "var",
	Const:        "const",
	If:           "if",
	Else:         "else",
	Print:        "print",
	Log:          "log",
	Fetch:        "fetch",
	SendEmail:    "send_email",
	Notify:       "notify",
	String:       "STRING",
	Number:       "NUMBER",
	Identifier:   "IDENT",
	Plus:         "+",
	Equal:        "=",
	EqualEqual:   "==",
	NotEqual:     "!=",
	Greater:      ">",
	Less:         "<",
	GreaterEqual: ">=",
	LessEqual:    "<=",
	Dot:          ".",
	LeftParen:    "(",
	RightParen:   ")",
	LeftBrace:    "{",
	RightBrace:   "}",
	Colon:        ":",
	Semicolon:    ";",
	Comma:        ",",
}

func (t TokenType) String() string {
	if int(t) < len(tokenNames) && tokenNames[t] != "" {
		return tokenNames[t]
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// keywords is the reserved, case-sensitive keyword set.
var keywords = map[string]TokenType{
	"workflow":   Workflow,
	"step":       Step,
	"let":        Let,
	"var":        Var,
	"const":      Const,
	"if":         If,
	"else":       Else,
	"print":      Print,
	"log":        Log,
	"fetch":      Fetch,
	"send_email": SendEmail,
	"notify":     Notify,
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= Workflow && t <= Notify
}

// IsCommandKeyword reports whether t is a reserved word that also names a
// built-in command (print, log, fetch, send_email, notify).
func (t TokenType) IsCommandKeyword() bool {
	return t >= Print && t <= Notify
}

// IsBinaryOperator reports whether t may join two operands in an expression.
func (t TokenType) IsBinaryOperator() bool {
	switch t {
	case Plus, EqualEqual, NotEqual, Greater, Less, GreaterEqual, LessEqual:
		return true
	}
	return false
}

// Token is a single lexical unit.
type Token struct {
	Type   TokenType
	Lexeme string
	// Literal holds the unquoted body of a string token.
	Literal string
	Line    int
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return fmt.Sprintf("%d: EOF", t.Line)
	case String:
		return fmt.Sprintf("%d: %s %q", t.Line, t.Type, t.Literal)
	default:
		return fmt.Sprintf("%d: %s %s", t.Line, t.Type, t.Lexeme)
	}
}
