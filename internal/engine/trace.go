package engine

import (
	"context"
	"strconv"

	"github.com/rendis/stepflow/internal/logging"
	"github.com/rendis/stepflow/pkg/schema"
)

// Sink receives trace events as they are produced. Emit must not block the
// run for long; *streaming.MemoryHub drops events for slow subscribers.
type Sink interface {
	Emit(ctx context.Context, event schema.TraceEvent)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, event schema.TraceEvent)

func (f SinkFunc) Emit(ctx context.Context, event schema.TraceEvent) { f(ctx, event) }

// emit records a trace line and forwards it to the sink.
func (e *Executor) emit(ctx context.Context, kind schema.TraceKind, depth int, text string) {
	ev := e.event(ctx, kind, depth, text)
	e.trace = append(e.trace, ev)
	if e.sink != nil {
		e.sink.Emit(ctx, ev)
	}
}

// lifecycle forwards a run-level event to the sink without recording it in
// the trace.
func (e *Executor) lifecycle(ctx context.Context, kind schema.TraceKind, text string) {
	ev := e.event(ctx, kind, 0, text)
	if e.sink != nil {
		e.sink.Emit(ctx, ev)
	}
}

func (e *Executor) event(ctx context.Context, kind schema.TraceKind, depth int, text string) schema.TraceEvent {
	e.seq++
	return schema.TraceEvent{
		Seq:      e.seq,
		RunID:    e.runID,
		Kind:     kind,
		Workflow: logging.Workflow(ctx),
		StepID:   logging.StepID(ctx),
		Depth:    depth,
		Text:     text,
		At:       e.now(),
	}
}

// stepKey renders a step id the way trace events and errors carry it.
func stepKey(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
