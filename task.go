package cake

import (
	"context"
	"time"
)

// Action is a task's primary unit of work.
type Action func(ctx context.Context) error

// Criterion is a no-argument predicate gating task execution. All of a
// task's criteria must hold for the task to run.
type Criterion func() bool

// ErrorReporter observes a task failure. Its own failures are swallowed.
type ErrorReporter func(err error)

// ErrorHandler attempts to recover from a task failure. Returning nil
// converts the failure into a recovery; returning a non-nil error
// (the same one or a different one) re-surfaces as the propagating
// failure.
type ErrorHandler func(err error) error

// FinallyHandler always runs after the action and any error handler,
// before task teardown. A non-nil return propagates to teardown.
type FinallyHandler func() error

// SetupAction runs once before any task executes for a RunTarget call.
type SetupAction func(ctx context.Context) error

// TeardownAction runs once after every task has finished executing (or
// was skipped) for a RunTarget call.
type TeardownAction func(ctx context.Context) error

// TaskInfo identifies a task to a hook callback.
type TaskInfo struct {
	Name string
}

// TaskSetupContext is passed to a TaskSetupAction before a task's action
// runs.
type TaskSetupContext struct {
	TaskInfo TaskInfo
}

// TaskTeardownContext is passed to a TaskTeardownAction after a task has
// finished running or being skipped.
type TaskTeardownContext struct {
	TaskInfo TaskInfo
	Duration time.Duration
	Skipped  bool
}

// TaskSetupAction runs before each task's action, engine-wide.
type TaskSetupAction func(ctx context.Context, tsc TaskSetupContext) error

// TaskTeardownAction runs after each task, engine-wide.
type TaskTeardownAction func(ctx context.Context, ttc TaskTeardownContext) error

// Task is a named unit of work with optional dependencies, criteria, and
// error hooks. Tasks are created via Engine.RegisterTask and are
// immutable once RunTarget begins building the graph for a call.
type Task struct {
	Name          string
	canonicalName string

	action         Action
	dependencies   []string
	criteria       []Criterion
	errorReporter  ErrorReporter
	errorHandler   ErrorHandler
	finallyHandler FinallyHandler
}

// TaskBuilder fluently configures a Task returned by RegisterTask.
type TaskBuilder struct {
	task *Task
}

func newTaskBuilder(t *Task) *TaskBuilder {
	return &TaskBuilder{task: t}
}

// DependsOn declares that the task requires the named task to run
// first. The name need not yet be registered; it must exist by the time
// RunTarget is invoked.
func (b *TaskBuilder) DependsOn(name string) *TaskBuilder {
	b.task.dependencies = append(b.task.dependencies, name)
	return b
}

// WithCriteria appends a predicate that must hold for the task to run.
func (b *TaskBuilder) WithCriteria(c Criterion) *TaskBuilder {
	b.task.criteria = append(b.task.criteria, c)
	return b
}

// Does sets the task's action.
func (b *TaskBuilder) Does(a Action) *TaskBuilder {
	b.task.action = a
	return b
}

// OnError sets the task's error handler.
func (b *TaskBuilder) OnError(h ErrorHandler) *TaskBuilder {
	b.task.errorHandler = h
	return b
}

// ReportError sets the task's error reporter.
func (b *TaskBuilder) ReportError(r ErrorReporter) *TaskBuilder {
	b.task.errorReporter = r
	return b
}

// Finally sets the task's finally handler.
func (b *TaskBuilder) Finally(f FinallyHandler) *TaskBuilder {
	b.task.finallyHandler = f
	return b
}

// Task returns the Task being configured, for callers that need to
// inspect it (e.g. tests).
func (b *TaskBuilder) Task() *Task {
	return b.task
}
