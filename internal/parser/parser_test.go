package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/internal/lexer"
	"github.com/rendis/stepflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, source string) *ast.Program {
	t.Helper()
	prog, err := ParseSource(source)
	require.NoError(t, err)
	require.NotNil(t, prog)
	return prog
}

func parseErr(t *testing.T, source string) *schema.Error {
	t.Helper()
	prog, err := ParseSource(source)
	require.Error(t, err)
	assert.Nil(t, prog, "no partial program")

	var se *schema.Error
	require.True(t, errors.As(err, &se))
	return se
}

// --- Happy paths ---

func TestParse_Empty(t *testing.T) {
	prog := mustParse(t, "")
	assert.Empty(t, prog.Variables)
	assert.Empty(t, prog.Workflows)
}

func TestParse_TopLevelDeclarations(t *testing.T) {
	prog := mustParse(t, `let a = "x"
var b = 42
const c = a`)

	require.Len(t, prog.Variables, 3)
	assert.Equal(t, ast.KeywordLet, prog.Variables[0].Keyword)
	assert.Equal(t, "a", prog.Variables[0].Name)
	assert.Equal(t, &ast.StringLiteral{Value: "x"}, prog.Variables[0].Value)
	assert.Equal(t, 1, prog.Variables[0].Line)

	assert.Equal(t, ast.KeywordVar, prog.Variables[1].Keyword)
	assert.Equal(t, &ast.NumberLiteral{Value: 42}, prog.Variables[1].Value)
	assert.Equal(t, 2, prog.Variables[1].Line)

	assert.Equal(t, ast.KeywordConst, prog.Variables[2].Keyword)
	assert.Equal(t, &ast.Identifier{Name: "a"}, prog.Variables[2].Value)
}

func TestParse_WorkflowWithCommands(t *testing.T) {
	prog := mustParse(t, `workflow "W" {
  step 1: print("hello", name)
  step 2: fetch
  step 3: send_email("a@b.c", "hi")
  step 4: custom_thing()
}`)

	require.Len(t, prog.Workflows, 1)
	wf := prog.Workflows[0]
	assert.Equal(t, "W", wf.Name)
	assert.Equal(t, 1, wf.Line)
	require.Len(t, wf.Steps, 4)

	s1 := wf.Steps[0]
	assert.Equal(t, uint32(1), s1.ID)
	assert.Equal(t, 2, s1.Line)
	cmd, ok := s1.Content.(*ast.Command)
	require.True(t, ok)
	assert.Equal(t, "print", cmd.Name)
	assert.Equal(t, []ast.Expression{
		&ast.StringLiteral{Value: "hello"},
		&ast.Identifier{Name: "name"},
	}, cmd.Arguments)

	cmd, ok = wf.Steps[1].Content.(*ast.Command)
	require.True(t, ok)
	assert.Equal(t, "fetch", cmd.Name)
	assert.Empty(t, cmd.Arguments, "parens are optional")

	cmd = wf.Steps[2].Content.(*ast.Command)
	assert.Equal(t, "send_email", cmd.Name)
	assert.Len(t, cmd.Arguments, 2)

	cmd = wf.Steps[3].Content.(*ast.Command)
	assert.Equal(t, "custom_thing", cmd.Name)
	assert.Empty(t, cmd.Arguments)
}

func TestParse_WorkflowLevelDeclarations(t *testing.T) {
	prog := mustParse(t, `workflow "W" {
  let greeting = "hi"
  step 1: print(greeting)
  var other = "x"
}`)

	wf := prog.Workflows[0]
	require.Len(t, wf.Variables, 2)
	assert.Equal(t, "greeting", wf.Variables[0].Name)
	assert.Equal(t, "other", wf.Variables[1].Name)
	require.Len(t, wf.Steps, 1)
	assert.Empty(t, prog.Variables)
}

func TestParse_Conditional(t *testing.T) {
	prog := mustParse(t, `workflow "W" {
  step 1: fetch("u")
  step 2: if (step 1.status == 200) {
    step 3: print("ok")
  } else {
    step 4: print("bad")
  }
}`)

	wf := prog.Workflows[0]
	require.Len(t, wf.Steps, 2)

	c, ok := wf.Steps[1].Content.(*ast.Conditional)
	require.True(t, ok)
	assert.Equal(t, &ast.BinaryExpression{
		Left:     &ast.StepReference{StepID: 1, Property: "status"},
		Operator: ast.OpEqual,
		Right:    &ast.NumberLiteral{Value: 200},
	}, c.Condition)
	require.Len(t, c.Then, 1)
	assert.Equal(t, uint32(3), c.Then[0].ID)
	require.Len(t, c.Else, 1)
	assert.Equal(t, uint32(4), c.Else[0].ID)
}

func TestParse_ConditionalWithoutElse(t *testing.T) {
	prog := mustParse(t, `workflow "W" { step 1: if (x) { step 2: print("y") } }`)
	c := prog.Workflows[0].Steps[0].Content.(*ast.Conditional)
	assert.Nil(t, c.Else)
}

func TestParse_EmptyBranches(t *testing.T) {
	prog := mustParse(t, `workflow "W" { step 1: if (x) { } else { } }`)
	c := prog.Workflows[0].Steps[0].Content.(*ast.Conditional)
	assert.Empty(t, c.Then)
	assert.NotNil(t, c.Else, "empty else clause is distinct from no else clause")
	assert.Empty(t, c.Else)
}

func TestParse_NestedConditionals(t *testing.T) {
	prog := mustParse(t, `workflow "W" {
  step 1: if (a) {
    step 2: if (b) { step 3: log("deep") }
  }
}`)
	outer := prog.Workflows[0].Steps[0].Content.(*ast.Conditional)
	require.Len(t, outer.Then, 1)
	inner, ok := outer.Then[0].Content.(*ast.Conditional)
	require.True(t, ok)
	require.Len(t, inner.Then, 1)
	assert.Equal(t, "log", inner.Then[0].Content.(*ast.Command).Name)
}

func TestParse_LeftAssociativeChain(t *testing.T) {
	prog := mustParse(t, `let x = a + "b" == c`)
	want := &ast.BinaryExpression{
		Left: &ast.BinaryExpression{
			Left:     &ast.Identifier{Name: "a"},
			Operator: ast.OpConcat,
			Right:    &ast.StringLiteral{Value: "b"},
		},
		Operator: ast.OpEqual,
		Right:    &ast.Identifier{Name: "c"},
	}
	assert.Equal(t, want, prog.Variables[0].Value)
}

func TestParse_AllOperators(t *testing.T) {
	for _, op := range []ast.Operator{
		ast.OpConcat, ast.OpEqual, ast.OpNotEqual, ast.OpGreater,
		ast.OpLess, ast.OpGreaterEqual, ast.OpLessEqual,
	} {
		t.Run(string(op), func(t *testing.T) {
			prog := mustParse(t, "let x = 1 "+string(op)+" 2")
			bin, ok := prog.Variables[0].Value.(*ast.BinaryExpression)
			require.True(t, ok)
			assert.Equal(t, op, bin.Operator)
		})
	}
}

func TestParse_Primaries(t *testing.T) {
	tests := []struct {
		source string
		want   ast.Expression
	}{
		{`let x = "s"`, &ast.StringLiteral{Value: "s"}},
		{`let x = 3.5`, &ast.NumberLiteral{Value: 3.5}},
		{`let x = y`, &ast.Identifier{Name: "y"}},
		{`let x = user.name`, &ast.PropertyAccess{Object: &ast.Identifier{Name: "user"}, Property: "name"}},
		{`let x = step 7`, &ast.StepReference{StepID: 7}},
		{`let x = step 7.message`, &ast.StepReference{StepID: 7, Property: "message"}},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			prog := mustParse(t, tt.source)
			assert.Equal(t, tt.want, prog.Variables[0].Value)
		})
	}
}

func TestParse_StepIDConversion(t *testing.T) {
	tests := []struct {
		source string
		want   uint32
	}{
		{`workflow "W" { step 0: print }`, 0},
		{`workflow "W" { step 2.9: print }`, 2},
		{`workflow "W" { step 99999999999: print }`, math.MaxUint32},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			prog := mustParse(t, tt.source)
			assert.Equal(t, tt.want, prog.Workflows[0].Steps[0].ID)
		})
	}
}

func TestParse_DuplicateStepIDsArePreserved(t *testing.T) {
	prog := mustParse(t, `workflow "A" { step 1: print("a") } workflow "B" { step 1: print("b") }`)
	require.Len(t, prog.Workflows, 2)
	assert.Equal(t, prog.Workflows[0].Steps[0].ID, prog.Workflows[1].Steps[0].ID)
}

func TestParse_MixedOrder(t *testing.T) {
	prog := mustParse(t, `workflow "A" { } let a = "1" workflow "B" { }`)
	require.Len(t, prog.Workflows, 2)
	require.Len(t, prog.Variables, 1)
	assert.Equal(t, "A", prog.Workflows[0].Name)
	assert.Equal(t, "B", prog.Workflows[1].Name)
}

func TestParse_TokensWithoutEOF(t *testing.T) {
	tokens, err := lexer.Tokenize(`let a = "x"`)
	require.NoError(t, err)

	prog, err := Parse(tokens[:len(tokens)-1])
	require.NoError(t, err)
	require.Len(t, prog.Variables, 1)
}

// --- Failures ---

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		line    int
		message string
	}{
		{"missing step colon", `workflow "W" { step 1 print("x") }`, 1, "expected ':' after step number"},
		{"missing workflow name", `workflow { }`, 1, "expected workflow name string"},
		{"identifier workflow name", `workflow W { }`, 1, "expected workflow name string"},
		{"missing open brace", `workflow "W" step 1: print`, 1, "expected '{' after workflow name"},
		{"unclosed workflow", "workflow \"W\" {\n step 1: print(\"x\")\n", 3, "expected '}' after workflow body"},
		{"step number not a number", `workflow "W" { step a: print }`, 1, "expected step number"},
		{"missing command", `workflow "W" { step 1: }`, 1, "expected command name"},
		{"keyword as command", `workflow "W" { step 1: let }`, 1, "expected command name"},
		{"unclosed args", `workflow "W" { step 1: print("x" }`, 1, "expected ')' after command arguments"},
		{"trailing comma", `workflow "W" { step 1: print("x",) }`, 1, "expected expression"},
		{"missing condition parens", `workflow "W" { step 1: if x { } }`, 1, "expected '(' after 'if'"},
		{"empty condition", `workflow "W" { step 1: if () { } }`, 1, "expected expression"},
		{"unclosed condition", `workflow "W" { step 1: if (x { } }`, 1, "expected ')' after condition"},
		{"missing if brace", `workflow "W" { step 1: if (x) step 2: print }`, 1, "expected '{' after condition"},
		{"missing else brace", `workflow "W" { step 1: if (x) { } else step 2: print }`, 1, "expected '{' after 'else'"},
		{"declaration missing equals", `let a "x"`, 1, "expected '=' after variable name"},
		{"declaration missing name", `let = "x"`, 1, "expected variable name"},
		{"declaration missing value", `let a =`, 1, "expected expression"},
		{"dangling operator", `let a = 1 +`, 1, "expected expression"},
		{"property missing name", `let a = b.`, 1, "expected property name after '.'"},
		{"step ref missing number", `let a = step x`, 1, "expected step number after 'step'"},
		{"semicolon is not grammar", `let a = "x";`, 1, "expected workflow or variable declaration"},
		{"stray step at top level", "\n\nstep 1: print", 3, "expected workflow or variable declaration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := parseErr(t, tt.source)
			assert.Equal(t, schema.ErrCodeUnexpectedToken, se.Code)
			assert.Equal(t, tt.line, se.Line)
			assert.Contains(t, se.Message, tt.message)
			assert.True(t, schema.IsParseError(se))
		})
	}
}

func TestParse_ErrorNamesFoundToken(t *testing.T) {
	se := parseErr(t, `workflow "W" { step 1 print }`)
	assert.Contains(t, se.Message, "found 'print'")
	assert.Equal(t, "print", se.Details["found"])

	se = parseErr(t, `let a`)
	assert.Contains(t, se.Message, "found end of input")
}

func TestParse_FirstErrorWins(t *testing.T) {
	se := parseErr(t, "let a\nlet = 2")
	assert.Equal(t, 2, se.Line, "the first failure is the one reported")
	assert.Contains(t, se.Message, "expected '=' after variable name")
}

func TestParseSource_PropagatesLexError(t *testing.T) {
	prog, err := ParseSource(`let a = "x`)
	require.Error(t, err)
	assert.Nil(t, prog)
	assert.True(t, schema.IsLexError(err))
}
