package cake

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ExecutorMode selects how an Engine drives traversal of the task graph
// for a RunTarget call.
type ExecutorMode int

const (
	// Sequential drives the traversal order one task at a time.
	Sequential ExecutorMode = iota
	// GroupedParallel drives the grouped traversal order, running every
	// task in a group concurrently and waiting for the group to finish
	// before starting the next.
	GroupedParallel
)

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithLog supplies the Log an Engine and its TaskRunners use for
// diagnostics. The default is NewNopLog.
func WithLog(log Log) EngineOption {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithDispatcher bounds a GroupedParallel Engine's per-group concurrency
// to the given Dispatcher instead of running every independent task in a
// group on its own goroutine. It has no effect on a Sequential Engine.
func WithDispatcher(d Dispatcher) EngineOption {
	return func(e *Engine) {
		e.dispatcher = d
	}
}

// Engine registers tasks and drives a target's execution. A single Engine
// is parameterized by an ExecutorMode rather than specialized via
// inheritance; the serial and parallel behaviors share every other piece
// of RunTarget (argument validation, graph construction, build setup/
// teardown bracketing).
type Engine struct {
	mode ExecutorMode

	mu    sync.Mutex
	tasks map[string]*Task
	order []string

	buildSetup    SetupAction
	buildTeardown TeardownAction
	taskSetup     TaskSetupAction
	taskTeardown  TaskTeardownAction

	log        Log
	dispatcher Dispatcher
}

// NewEngine constructs an Engine that drives traversal using mode.
func NewEngine(mode ExecutorMode, opts ...EngineOption) *Engine {
	e := &Engine{
		mode:  mode,
		tasks: make(map[string]*Task),
		log:   NewNopLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterTask registers a new task and returns a builder to configure
// it. It fails with ErrDuplicateTask if a task with the same name
// (case-insensitive) is already registered.
func (e *Engine) RegisterTask(name string) (*TaskBuilder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := canon(name)
	if _, exists := e.tasks[key]; exists {
		return nil, structuralf(ErrDuplicateTask, "%s", name)
	}

	task := &Task{Name: name, canonicalName: key}
	e.tasks[key] = task
	e.order = append(e.order, key)
	return newTaskBuilder(task), nil
}

// RegisterSetupAction sets the build-scoped setup hook, replacing any
// previously registered one.
func (e *Engine) RegisterSetupAction(action SetupAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildSetup = action
}

// RegisterTeardownAction sets the build-scoped teardown hook, replacing
// any previously registered one.
func (e *Engine) RegisterTeardownAction(action TeardownAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buildTeardown = action
}

// RegisterTaskSetupAction sets the task-scoped setup hook applied to
// every task, replacing any previously registered one.
func (e *Engine) RegisterTaskSetupAction(action TaskSetupAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.taskSetup = action
}

// RegisterTaskTeardownAction sets the task-scoped teardown hook applied
// to every task, replacing any previously registered one.
func (e *Engine) RegisterTaskTeardownAction(action TaskTeardownAction) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.taskTeardown = action
}

func (e *Engine) snapshotTasks() []*Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Task, 0, len(e.order))
	for _, key := range e.order {
		out = append(out, e.tasks[key])
	}
	return out
}

// RunTarget builds a fresh Graph from the currently registered tasks,
// validates target exists, brackets the run with build setup/teardown,
// and drives traversal with the Engine's configured ExecutorMode,
// delegating every task to a taskRunner. Invalid arguments, graph
// construction failures, and an unknown target return a nil report.
// Otherwise it returns the execution report regardless of outcome; the
// report reflects only the tasks actually visited before any failure.
func (e *Engine) RunTarget(ctx context.Context, strategy ExecutionStrategy, target string) (*Report, error) {
	if ctx == nil || strategy == nil || target == "" {
		return nil, structuralf(ErrInvalidArgument, "context, strategy, and target are required")
	}

	tasksSnapshot := e.snapshotTasks()

	graph, err := NewGraphBuilder().Build(tasksSnapshot)
	if err != nil {
		return nil, err
	}
	if !graph.Exists(target) {
		return nil, structuralf(ErrUnknownTarget, "%s", target)
	}

	runID := uuid.New()
	report := newReport()

	tasksByName := make(map[string]*Task, len(tasksSnapshot))
	for _, t := range tasksSnapshot {
		tasksByName[t.canonicalName] = t
	}

	var mainErr error
	if setupErr := strategy.PerformSetup(ctx, e.buildSetup); setupErr != nil {
		e.log.Error("run %s: build setup failed: %v", runID, setupErr)
		mainErr = setupErr
	} else {
		switch e.mode {
		case GroupedParallel:
			mainErr = e.runParallel(ctx, strategy, tasksByName, graph, target, report)
		default:
			mainErr = e.runSerial(ctx, strategy, tasksByName, graph, target, report)
		}
	}

	if teardownErr := strategy.PerformTeardown(ctx, e.buildTeardown); teardownErr != nil {
		if mainErr == nil {
			mainErr = teardownErr
		} else {
			e.log.Error("run %s: build teardown failure suppressed in favor of earlier failure: %v", runID, teardownErr)
		}
	}

	return report, mainErr
}

func (e *Engine) newTaskRunner(ctx context.Context, strategy ExecutionStrategy, isTarget bool, report *Report) *taskRunner {
	return &taskRunner{
		ctx:          ctx,
		strategy:     strategy,
		log:          e.log,
		report:       report,
		taskSetup:    e.taskSetup,
		taskTeardown: e.taskTeardown,
		isTarget:     isTarget,
	}
}

func (e *Engine) runSerial(ctx context.Context, strategy ExecutionStrategy, tasksByName map[string]*Task, graph *Graph, target string, report *Report) error {
	order, err := graph.Traverse(target)
	if err != nil {
		return err
	}

	targetKey := canon(target)
	for _, name := range order {
		task := tasksByName[canon(name)]
		runner := e.newTaskRunner(ctx, strategy, canon(name) == targetKey, report)
		if err := runner.run(task); err != nil {
			return err
		}
	}
	return nil
}

// runParallel drives TraverseAndGroup's groups in order, running every
// task within a group concurrently and waiting for the whole group
// before starting the next. A failing task does not cancel siblings
// already running in its group; every failure in the group is collected
// and logged, and the first one observed propagates, matching §9's
// wait-all-then-unwrap-first design note.
func (e *Engine) runParallel(ctx context.Context, strategy ExecutionStrategy, tasksByName map[string]*Task, graph *Graph, target string, report *Report) error {
	groups, err := graph.TraverseAndGroup(target)
	if err != nil {
		return err
	}

	targetKey := canon(target)
	for _, group := range groups {
		if err := e.runGroup(ctx, strategy, tasksByName, group, targetKey, report); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runGroup(ctx context.Context, strategy ExecutionStrategy, tasksByName map[string]*Task, group []string, targetKey string, report *Report) error {
	var mu sync.Mutex
	var failures []error

	var g errgroup.Group
	for _, name := range group {
		name := name
		task := tasksByName[canon(name)]
		isTarget := canon(name) == targetKey
		runner := e.newTaskRunner(ctx, strategy, isTarget, report)

		work := func() error {
			err := runner.run(task)
			if err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
			return err
		}

		if e.dispatcher != nil {
			done := make(chan struct{})
			g.Go(func() error {
				var result error
				e.dispatcher.Submit(func() {
					result = work()
					close(done)
				})
				<-done
				return result
			})
		} else {
			g.Go(work)
		}
	}

	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	for _, extra := range failures[1:] {
		e.log.Error("parallel group: additional task failure discarded: %v", extra)
	}
	return failures[0]
}
