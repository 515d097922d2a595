// Package engine walks a parsed program: it binds variables, dispatches
// command steps through a registry, branches on conditionals and records one
// StepResult per executed command, producing a human-readable trace.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/internal/commands"
	"github.com/rendis/stepflow/internal/logging"
	"github.com/rendis/stepflow/pkg/schema"
)

// CommandSource resolves command names to handlers.
// Satisfied by *commands.Registry and test mocks.
type CommandSource interface {
	Get(name string) (commands.Command, error)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for debug records. Records are emitted with
// the run, workflow and step on the context, so a logger built on
// logging.CorrelationHandler shows them automatically.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSink sets a Sink that receives every trace event as it is produced.
func WithSink(s Sink) Option {
	return func(e *Executor) { e.sink = s }
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(e *Executor) {
		if id != "" {
			e.runID = id
		}
	}
}

// WithClock overrides the time source used to stamp trace events.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) {
		if now != nil {
			e.now = now
		}
	}
}

// Executor runs one program at a time. It owns the Environment and the
// step-result table of its run and is not safe for concurrent use; run
// programs in parallel with independent Executors.
type Executor struct {
	commands CommandSource
	logger   *slog.Logger
	sink     Sink
	runID    string
	now      func() time.Time

	vars    map[string]string
	results map[uint32]schema.StepResult
	trace   []schema.TraceEvent
	seq     int
}

// New creates an Executor dispatching commands through cmds.
func New(cmds CommandSource, opts ...Option) *Executor {
	e := &Executor{
		commands: cmds,
		logger:   logging.Discard(),
		runID:    uuid.New().String(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reset()
	return e
}

func (e *Executor) reset() {
	e.vars = make(map[string]string)
	e.results = make(map[uint32]schema.StepResult)
	e.trace = nil
	e.seq = 0
}

// RunID returns the identifier stamped on every trace event of this Executor.
func (e *Executor) RunID() string { return e.runID }

// Execute runs prog from an empty Environment and result table: top-level
// declarations first, then each workflow in order. The first runtime error
// aborts the run; results and trace produced before it stay available.
func (e *Executor) Execute(ctx context.Context, prog *ast.Program) error {
	e.reset()
	ctx = logging.WithRunID(ctx, e.runID)

	e.lifecycle(ctx, schema.TraceRunStarted, "Run started")
	e.logger.DebugContext(ctx, "run started",
		slog.Int("variables", len(prog.Variables)),
		slog.Int("workflows", len(prog.Workflows)))

	if err := e.run(ctx, prog); err != nil {
		e.logger.DebugContext(ctx, "run failed",
			slog.String("code", schema.CodeOf(err)),
			slog.String("error", err.Error()))
		e.lifecycle(ctx, schema.TraceRunFailed, "Run failed: "+err.Error())
		return err
	}

	e.logger.DebugContext(ctx, "run completed", slog.Int("results", len(e.results)))
	e.lifecycle(ctx, schema.TraceRunCompleted, "Run completed")
	return nil
}

func (e *Executor) run(ctx context.Context, prog *ast.Program) error {
	for _, decl := range prog.Variables {
		if err := e.declare(ctx, decl, 0); err != nil {
			return err
		}
	}
	for _, wf := range prog.Workflows {
		if err := e.workflow(ctx, wf); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) workflow(ctx context.Context, wf *ast.Workflow) error {
	ctx = logging.WithWorkflow(ctx, wf.Name)
	e.emit(ctx, schema.TraceWorkflowEntered, 0, "Executing workflow: "+wf.Name)
	e.logger.DebugContext(ctx, "workflow entered", slog.Int("steps", len(wf.Steps)))

	for _, decl := range wf.Variables {
		if err := e.declare(ctx, decl, 1); err != nil {
			return err
		}
	}
	return e.steps(ctx, wf.Steps, 1)
}

func (e *Executor) declare(ctx context.Context, decl *ast.VariableDeclaration, depth int) error {
	value, err := e.evaluate(decl.Value)
	if err != nil {
		return withLine(err, decl.Line)
	}
	e.vars[decl.Name] = value
	e.emit(ctx, schema.TraceVariableBound, depth, "Variable '"+decl.Name+"' = '"+value+"'")
	return nil
}

func (e *Executor) steps(ctx context.Context, steps []*ast.Step, depth int) error {
	for _, s := range steps {
		if err := e.step(ctx, s, depth); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) step(ctx context.Context, s *ast.Step, depth int) error {
	id := stepKey(s.ID)
	ctx = logging.WithStepID(ctx, id)
	e.emit(ctx, schema.TraceStepEntered, depth, "Step "+id+":")

	var err error
	switch c := s.Content.(type) {
	case *ast.Command:
		err = e.command(ctx, s.ID, c, depth+1)
	case *ast.Conditional:
		err = e.conditional(ctx, c, depth+1)
	}
	if err != nil {
		return withStep(withLine(err, s.Line), id)
	}
	return nil
}

func (e *Executor) command(ctx context.Context, id uint32, c *ast.Command, depth int) error {
	args := make([]string, len(c.Arguments))
	for i, arg := range c.Arguments {
		v, err := e.evaluate(arg)
		if err != nil {
			return err
		}
		args[i] = v
	}

	cmd, err := e.commands.Get(c.Name)
	if err != nil {
		if schema.CodeOf(err) != schema.ErrCodeCommandUnavailable {
			return err
		}
		e.results[id] = schema.Failed(schema.StatusUnknownCommand, "", "Unknown command: "+c.Name)
		e.emit(ctx, schema.TraceCommandUnknown, depth, "Unknown command: "+c.Name)
		e.logger.DebugContext(ctx, "unknown command", slog.String("command", c.Name))
		return nil
	}

	out := cmd.Execute(ctx, args)
	e.results[id] = out.Result

	line := out.Trace
	if line == "" {
		line = "Run " + c.Name
	}
	e.emit(ctx, schema.TraceCommandDispatched, depth, line)
	e.logger.DebugContext(ctx, "command executed",
		slog.String("command", c.Name),
		slog.Int("args", len(args)),
		slog.Int("status", out.Result.Status),
		slog.Bool("success", out.Result.Success))
	return nil
}

func (e *Executor) conditional(ctx context.Context, c *ast.Conditional, depth int) error {
	ok, err := e.condition(c.Condition)
	if err != nil {
		return err
	}
	e.logger.DebugContext(ctx, "condition evaluated",
		slog.String("condition", c.Condition.String()),
		slog.Bool("result", ok))

	if ok {
		e.emit(ctx, schema.TraceBranchTaken, depth, "Condition is true, executing if block")
		return e.steps(ctx, c.Then, depth)
	}

	e.emit(ctx, schema.TraceBranchSkipped, depth, "Condition is false")
	if c.Else == nil {
		return nil
	}
	e.emit(ctx, schema.TraceBranchTaken, depth, "Executing else block")
	return e.steps(ctx, c.Else, depth)
}

// --- Inspection ---

// Results returns a copy of the step-result table.
func (e *Executor) Results() map[uint32]schema.StepResult {
	return maps.Clone(e.results)
}

// Result returns the recorded result for a step id.
func (e *Executor) Result(id uint32) (schema.StepResult, bool) {
	r, ok := e.results[id]
	return r, ok
}

// Variables returns a copy of the Environment.
func (e *Executor) Variables() map[string]string {
	return maps.Clone(e.vars)
}

// Trace returns the events of the current run, in order.
func (e *Executor) Trace() []schema.TraceEvent {
	return slices.Clone(e.trace)
}

// StepIDs returns the ids that have a recorded result, ascending.
func (e *Executor) StepIDs() []uint32 {
	return slices.Sorted(maps.Keys(e.results))
}

func withLine(err error, line int) error {
	var se *schema.Error
	if errors.As(err, &se) && se.Line == 0 && line > 0 {
		return se.WithLine(line)
	}
	return err
}

func withStep(err error, id string) error {
	var se *schema.Error
	if errors.As(err, &se) && se.StepID == "" {
		return se.WithStep(id)
	}
	return err
}
