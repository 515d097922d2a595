package lexer

import (
	"unicode"

	"github.com/rendis/stepflow/pkg/schema"
)

// Lexer scans workflow source text into tokens in a single pass.
// A Lexer is single-use; call Tokenize for the common case.
type Lexer struct {
	source []rune
	tokens []Token

	start     int
	current   int
	line      int
	startLine int
}

// New creates a Lexer over source.
func New(source string) *Lexer {
	return &Lexer{
		source: []rune(source),
		line:   1,
	}
}

// Tokenize scans source and returns its tokens, always terminated by an EOF
// token. The first unterminated string or illegal character fails the whole
// scan; no partial token stream is returned.
func Tokenize(source string) ([]Token, error) {
	return New(source).Tokenize()
}

// Tokenize runs the scan. See the package-level Tokenize.
func (l *Lexer) Tokenize() ([]Token, error) {
	for !l.atEnd() {
		l.start = l.current
		l.startLine = l.line
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}

	l.tokens = append(l.tokens, Token{Type: EOF, Line: l.line})
	return l.tokens, nil
}

func (l *Lexer) scanToken() error {
	c := l.advance()

	switch c {
	case '(':
		l.add(LeftParen)
	case ')':
		l.add(RightParen)
	case '{':
		l.add(LeftBrace)
	case '}':
		l.add(RightBrace)
	case ':':
		l.add(Colon)
	case ';':
		l.add(Semicolon)
	case ',':
		l.add(Comma)
	case '.':
		l.add(Dot)
	case '+':
		l.add(Plus)
	case '=':
		if l.match('=') {
			l.add(EqualEqual)
		} else {
			l.add(Equal)
		}
	case '!':
		if !l.match('=') {
			return schema.NewError(schema.ErrCodeIllegalCharacter, "unexpected character '!' (did you mean '!=')").
				WithLine(l.startLine)
		}
		l.add(NotEqual)
	case '<':
		if l.match('=') {
			l.add(LessEqual)
		} else {
			l.add(Less)
		}
	case '>':
		if l.match('=') {
			l.add(GreaterEqual)
		} else {
			l.add(Greater)
		}
	case '"', '\'':
		return l.string(c)
	case '\n':
		l.line++
	default:
		switch {
		case isDigit(c):
			l.number()
		case isIdentStart(c):
			l.identifier()
		case unicode.IsSpace(c):
		default:
			return schema.NewErrorf(schema.ErrCodeIllegalCharacter, "unexpected character %q", c).
				WithLine(l.startLine)
		}
	}
	return nil
}

// string scans a literal opened by quote. The closing quote must match the
// opening one; the other quote character is ordinary text. No escapes.
func (l *Lexer) string(quote rune) error {
	for l.peek() != quote && !l.atEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}

	if l.atEnd() {
		return schema.NewError(schema.ErrCodeUnterminatedString, "unterminated string").
			WithLine(l.startLine)
	}

	l.advance()

	body := string(l.source[l.start+1 : l.current-1])
	l.tokens = append(l.tokens, Token{
		Type:    String,
		Lexeme:  string(l.source[l.start:l.current]),
		Literal: body,
		Line:    l.startLine,
	})
	return nil
}

// number scans digit+ ("." digit+)?. A dot not followed by a digit is left
// for the next token, so "step 1.status" lexes as NUMBER DOT IDENT.
func (l *Lexer) number() {
	for isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	l.add(Number)
}

func (l *Lexer) identifier() {
	for isIdentPart(l.peek()) {
		l.advance()
	}

	text := string(l.source[l.start:l.current])
	if kw, ok := keywords[text]; ok {
		l.add(kw)
		return
	}
	l.add(Identifier)
}

func (l *Lexer) add(t TokenType) {
	l.tokens = append(l.tokens, Token{
		Type:   t,
		Lexeme: string(l.source[l.start:l.current]),
		Line:   l.startLine,
	})
}

func (l *Lexer) advance() rune {
	c := l.source[l.current]
	l.current++
	return c
}

func (l *Lexer) match(expected rune) bool {
	if l.atEnd() || l.source[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) peek() rune {
	if l.atEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekNext() rune {
	if l.current+1 >= len(l.source) {
		return 0
	}
	return l.source[l.current+1]
}

func (l *Lexer) atEnd() bool {
	return l.current >= len(l.source)
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isIdentPart(c rune) bool {
	return isIdentStart(c) || isDigit(c)
}
