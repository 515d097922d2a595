// Package scheduler re-runs workflow sources on cron schedules. Every tick
// executes the source with a fresh Executor, so runs never share state.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/stepflow/internal/ast"
	"github.com/rendis/stepflow/internal/engine"
	"github.com/rendis/stepflow/internal/logging"
	"github.com/rendis/stepflow/internal/parser"
	"github.com/rendis/stepflow/pkg/schema"
)

// Run statuses recorded on a job.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// RunReport describes one scheduled execution.
type RunReport struct {
	Job       string
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Results   map[uint32]schema.StepResult
	Trace     []schema.TraceEvent
	Err       error
}

// Status returns StatusError when the run aborted, StatusSuccess otherwise.
func (r RunReport) Status() string {
	if r.Err != nil {
		return StatusError
	}
	return StatusSuccess
}

// JobInfo is a snapshot of a registered job.
type JobInfo struct {
	Name       string
	Spec       string
	NextRunAt  time.Time
	LastRunAt  time.Time
	LastStatus string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger. It is also handed to every Executor.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithReport sets the callback receiving a RunReport after every run.
func WithReport(fn func(RunReport)) Option {
	return func(s *Scheduler) { s.report = fn }
}

// WithSink forwards the trace events of every run to sink.
func WithSink(sink engine.Sink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

type job struct {
	name    string
	spec    string
	program *ast.Program
	entry   cron.EntryID

	lastRunAt  time.Time
	lastStatus string
}

// Scheduler runs registered sources on their cron schedules.
type Scheduler struct {
	commands engine.CommandSource
	parser   cron.Parser
	cron     *cron.Cron
	logger   *slog.Logger
	report   func(RunReport)
	sink     engine.Sink

	mu      sync.Mutex
	jobs    map[string]*job
	ctx     context.Context
	cancel  context.CancelFunc
	started bool

	inflightMu sync.Mutex
	inflight   map[string]struct{} // job names currently executing (dedup)
}

// New creates a Scheduler that dispatches commands through cmds.
// Specs use the standard 5-field format or descriptors such as "@every 1m".
func New(cmds engine.CommandSource, opts ...Option) *Scheduler {
	p := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Scheduler{
		commands: cmds,
		parser:   p,
		cron:     cron.New(cron.WithParser(p)),
		logger:   logging.Discard(),
		jobs:     make(map[string]*job),
		ctx:      context.Background(),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers source under name. The cron expression and the source are
// both checked up front: a bad expression is a VALIDATION_ERROR and a source
// that does not lex or parse returns that error unchanged.
func (s *Scheduler) Add(name, spec, source string) error {
	if strings.TrimSpace(name) == "" {
		return schema.NewError(schema.ErrCodeValidation, "job name must not be empty")
	}
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "parse cron expression %q: %v", spec, err).
			WithCause(err).
			WithDetails(map[string]any{"job": name, "spec": spec})
	}
	prog, err := parser.ParseSource(source)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "job %q already scheduled", name)
	}
	j := &job{name: name, spec: spec, program: prog}
	j.entry = s.cron.Schedule(schedule, cron.FuncJob(func() { s.tick(name) }))
	s.jobs[name] = j

	s.logger.Info("job scheduled", slog.String("job", name), slog.String("spec", spec))
	return nil
}

// Remove unregisters a job. It reports whether the job existed.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return false
	}
	s.cron.Remove(j.entry)
	delete(s.jobs, name)
	return true
}

// Jobs returns the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, JobInfo{
			Name:       j.name,
			Spec:       j.spec,
			NextRunAt:  s.cron.Entry(j.entry).Next,
			LastRunAt:  j.lastRunAt,
			LastStatus: j.lastStatus,
		})
	}
	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Start begins firing jobs on their schedules. Runs use a context derived
// from ctx, cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true
	s.cron.Start()

	s.logger.Info("scheduler started", slog.Int("jobs", len(s.jobs)))
	return nil
}

// Stop halts scheduling and waits for in-flight runs to finish or for ctx
// to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	defer cancel()

	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop scheduler: %w", ctx.Err())
	}
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) (RunReport, error) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return RunReport{}, schema.NewErrorf(schema.ErrCodeValidation, "job %q is not scheduled", name)
	}
	if !s.tryAcquire(name) {
		return RunReport{}, schema.NewErrorf(schema.ErrCodeConflict, "job %q is already running", name)
	}
	defer s.releaseJob(name)
	return s.run(ctx, j), nil
}

// tick is the cron callback for one job.
func (s *Scheduler) tick(name string) {
	s.mu.Lock()
	j, ok := s.jobs[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return
	}
	if !s.tryAcquire(name) {
		s.logger.Warn("previous run still in progress, skipping tick", slog.String("job", name))
		return
	}
	defer s.releaseJob(name)
	s.run(ctx, j)
}

// run executes the job's program with a fresh Executor and records the outcome.
func (s *Scheduler) run(ctx context.Context, j *job) RunReport {
	opts := []engine.Option{engine.WithLogger(s.logger)}
	if s.sink != nil {
		opts = append(opts, engine.WithSink(s.sink))
	}
	exec := engine.New(s.commands, opts...)

	started := time.Now().UTC()
	err := exec.Execute(ctx, j.program)
	rep := RunReport{
		Job:       j.name,
		RunID:     exec.RunID(),
		StartedAt: started,
		Duration:  time.Since(started),
		Results:   exec.Results(),
		Trace:     exec.Trace(),
		Err:       err,
	}

	s.mu.Lock()
	j.lastRunAt = started
	j.lastStatus = rep.Status()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled run failed",
			slog.String("job", j.name),
			slog.String("run_id", rep.RunID),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.Info("scheduled run completed",
			slog.String("job", j.name),
			slog.String("run_id", rep.RunID),
			slog.Int("results", len(rep.Results)),
		)
	}

	if s.report != nil {
		s.report(rep)
	}
	return rep
}

// tryAcquire returns true and marks the job as in-flight if it is not already running.
func (s *Scheduler) tryAcquire(name string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[name]; ok {
		return false
	}
	s.inflight[name] = struct{}{}
	return true
}

// releaseJob removes the job from the in-flight set.
func (s *Scheduler) releaseJob(name string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, name)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}
