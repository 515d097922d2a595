// Package stepflow is the public entry point of the workflow language:
// tokenize, parse, run, check and describe programs from source text.
package stepflow

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/internal/commands"
	"github.com/rendis/stepflow/internal/diagram"
	"github.com/rendis/stepflow/internal/engine"
	"github.com/rendis/stepflow/internal/lexer"
	"github.com/rendis/stepflow/internal/parser"
	"github.com/rendis/stepflow/internal/validation"
	"github.com/rendis/stepflow/pkg/schema"
)

type (
	// Token is a single lexical unit.
	Token = lexer.Token
	// Program is a parsed source file.
	Program = ast.Program
	// Sink receives trace events while a program runs.
	Sink = engine.Sink
	// SinkFunc adapts a function to Sink.
	SinkFunc = engine.SinkFunc
	// CommandInfo describes a registered command.
	CommandInfo = commands.Info
)

// Diagram formats accepted by Describe.
const (
	FormatSteps   = "steps"
	FormatMermaid = "mermaid"
	FormatASCII   = "ascii"
)

var defaultRegistry = sync.OnceValues(commands.NewDefaultRegistry)

// Registry returns the shared registry holding every built-in command.
func Registry() (*commands.Registry, error) {
	return defaultRegistry()
}

// Commands lists the built-in commands sorted by name.
func Commands() ([]CommandInfo, error) {
	reg, err := defaultRegistry()
	if err != nil {
		return nil, err
	}
	return reg.List(), nil
}

// Tokenize scans source into tokens ending with EOF.
func Tokenize(source string) ([]Token, error) {
	return lexer.Tokenize(source)
}

// Parse builds a Program from tokens.
func Parse(tokens []Token) (*Program, error) {
	return parser.Parse(tokens)
}

// ParseSource tokenizes and parses source.
func ParseSource(source string) (*Program, error) {
	return parser.ParseSource(source)
}

// Report is the outcome of one run. It is returned for runtime failures too,
// holding the results and trace produced before the failing step.
type Report struct {
	RunID   string                       `json:"run_id"`
	Results map[uint32]schema.StepResult `json:"results"`
	Trace   []schema.TraceEvent          `json:"trace"`
	Error   *schema.Error                `json:"error,omitempty"`
}

// Lines renders the trace as indented text lines.
func (r *Report) Lines() []string {
	return schema.TraceLines(r.Trace)
}

// StepIDs returns the ids with a recorded result, ascending.
func (r *Report) StepIDs() []uint32 {
	return slices.Sorted(maps.Keys(r.Results))
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	sink   Sink
	runID  string
}

// WithLogger sets the logger for debug records of the run.
func WithLogger(l *slog.Logger) RunOption {
	return func(c *runConfig) { c.logger = l }
}

// WithSink streams trace events to s while the run progresses.
func WithSink(s Sink) RunOption {
	return func(c *runConfig) { c.sink = s }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) RunOption {
	return func(c *runConfig) { c.runID = id }
}

// Run tokenizes, parses and executes source with a fresh Executor. Lex and
// parse errors return a nil Report. A runtime error returns both the error
// and the partial Report.
func Run(ctx context.Context, source string, opts ...RunOption) (*Report, error) {
	prog, err := parser.ParseSource(source)
	if err != nil {
		return nil, err
	}
	return RunProgram(ctx, prog, opts...)
}

// RunProgram executes an already parsed program with a fresh Executor.
func RunProgram(ctx context.Context, prog *Program, opts ...RunOption) (*Report, error) {
	reg, err := defaultRegistry()
	if err != nil {
		return nil, err
	}

	var cfg runConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	exec := engine.New(reg,
		engine.WithLogger(cfg.logger),
		engine.WithSink(cfg.sink),
		engine.WithRunID(cfg.runID),
	)

	runErr := exec.Execute(ctx, prog)
	rep := &Report{
		RunID:   exec.RunID(),
		Results: exec.Results(),
		Trace:   exec.Trace(),
	}
	if runErr != nil {
		var se *schema.Error
		if errors.As(runErr, &se) {
			rep.Error = se
		} else {
			rep.Error = schema.NewError(schema.ErrCodeExecution, runErr.Error()).WithCause(runErr)
		}
		return rep, runErr
	}
	return rep, nil
}

// Check tokenizes, parses and lints source. Lex and parse failures are
// reported as the single error of the result; lint findings are warnings,
// or errors when strict is set.
func Check(source string, strict bool) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	prog, err := parser.ParseSource(source)
	if err != nil {
		var se *schema.Error
		if errors.As(err, &se) {
			result.AddError("source", se.Line, se.Code, se.Message)
		} else {
			result.AddError("source", 0, schema.ErrCodeValidation, err.Error())
		}
		return result
	}

	reg, err := defaultRegistry()
	if err != nil {
		result.AddError("registry", 0, schema.CodeOf(err), err.Error())
		return result
	}

	result.Merge(validation.Lint(prog, reg))
	if strict {
		result.Promote()
	}
	return result
}

// Describe renders source as a step outline (FormatSteps), a Mermaid
// flowchart (FormatMermaid) or an ASCII diagram (FormatASCII).
func Describe(source, format string) (string, error) {
	prog, err := parser.ParseSource(source)
	if err != nil {
		return "", err
	}
	reg, err := defaultRegistry()
	if err != nil {
		return "", err
	}

	switch format {
	case "", FormatSteps:
		return joinLines(diagram.HumanSteps(prog, reg)), nil
	case FormatMermaid:
		return diagram.RenderMermaid(diagram.Build(prog, reg)), nil
	case FormatASCII:
		return diagram.RenderASCII(diagram.Build(prog, reg)), nil
	default:
		return "", schema.NewErrorf(schema.ErrCodeValidation, "unknown describe format %q", format).
			WithDetails(map[string]any{"formats": []string{FormatSteps, FormatMermaid, FormatASCII}})
	}
}

// DescribeImage renders source as a PNG flowchart. When results is non-nil
// command nodes are colored by their recorded outcome.
func DescribeImage(source string, results map[uint32]schema.StepResult) ([]byte, error) {
	prog, err := parser.ParseSource(source)
	if err != nil {
		return nil, err
	}
	reg, err := defaultRegistry()
	if err != nil {
		return nil, err
	}
	model := diagram.Build(prog, reg)
	if results != nil {
		diagram.Overlay(model, results)
	}
	return diagram.RenderImage(model)
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
