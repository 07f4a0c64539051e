package cake

import (
	"context"

	"github.com/rs/zerolog"
)

// ExecutionStrategy is the seam through which the engine invokes every
// user-supplied callback except criteria. The engine never calls a Task's
// Action, an error hook, or a lifecycle hook directly; it always goes
// through the strategy, so cross-cutting behavior (logging, tracing,
// dry-run no-ops) composes without touching the engine. Criteria are
// evaluated by the task runner directly.
//
// Implementations must preserve the failure raised by a user callback
// unchanged, except where ReportErrors/HandleErrors are explicitly
// allowed to swallow or replace it per their contract.
type ExecutionStrategy interface {
	PerformSetup(ctx context.Context, action SetupAction) error
	PerformTeardown(ctx context.Context, action TeardownAction) error
	PerformTaskSetup(ctx context.Context, action TaskSetupAction, tsc TaskSetupContext) error
	PerformTaskTeardown(ctx context.Context, action TaskTeardownAction, ttc TaskTeardownContext) error
	ExecuteAsync(ctx context.Context, task *Task) error
	Skip(task *Task)
	ReportErrors(reporter ErrorReporter, err error)
	HandleErrors(handler ErrorHandler, err error) error
	InvokeFinally(handler FinallyHandler) error
}

// DefaultStrategy invokes every callback directly, synchronously, on the
// calling goroutine. It is the strategy a host uses when it has no
// cross-cutting behavior to add.
type DefaultStrategy struct {
	Log Log
}

// NewDefaultStrategy constructs a DefaultStrategy. A nil Log is replaced
// with NewNopLog.
func NewDefaultStrategy(log Log) *DefaultStrategy {
	if log == nil {
		log = NewNopLog()
	}
	return &DefaultStrategy{Log: log}
}

func (s *DefaultStrategy) PerformSetup(ctx context.Context, action SetupAction) error {
	if action == nil {
		return nil
	}
	return action(ctx)
}

func (s *DefaultStrategy) PerformTeardown(ctx context.Context, action TeardownAction) error {
	if action == nil {
		return nil
	}
	return action(ctx)
}

func (s *DefaultStrategy) PerformTaskSetup(ctx context.Context, action TaskSetupAction, tsc TaskSetupContext) error {
	if action == nil {
		return nil
	}
	return action(ctx, tsc)
}

func (s *DefaultStrategy) PerformTaskTeardown(ctx context.Context, action TaskTeardownAction, ttc TaskTeardownContext) error {
	if action == nil {
		return nil
	}
	return action(ctx, ttc)
}

func (s *DefaultStrategy) ExecuteAsync(ctx context.Context, task *Task) error {
	if task.action == nil {
		return nil
	}
	return task.action(ctx)
}

func (s *DefaultStrategy) Skip(task *Task) {
	s.Log.Info("skipping task %s", task.Name)
}

func (s *DefaultStrategy) ReportErrors(reporter ErrorReporter, err error) {
	if reporter == nil {
		return
	}
	reporter(err)
}

func (s *DefaultStrategy) HandleErrors(handler ErrorHandler, err error) error {
	if handler == nil {
		return err
	}
	return handler(err)
}

func (s *DefaultStrategy) InvokeFinally(handler FinallyHandler) error {
	if handler == nil {
		return nil
	}
	return handler()
}

// DryRunStrategy announces every callback via Log instead of invoking
// it, useful for previewing which tasks a target would touch without
// running any user code. Criteria still need a real answer to decide
// whether a task would be skipped, so criteria are not part of this
// strategy's seam (TaskRunner evaluates them directly); everything that
// would mutate state or run user logic is a no-op here.
type DryRunStrategy struct {
	Log Log
}

// NewDryRunStrategy constructs a DryRunStrategy. A nil Log is replaced
// with NewNopLog.
func NewDryRunStrategy(log Log) *DryRunStrategy {
	if log == nil {
		log = NewNopLog()
	}
	return &DryRunStrategy{Log: log}
}

func (s *DryRunStrategy) PerformSetup(_ context.Context, action SetupAction) error {
	if action != nil {
		s.Log.Info("dry-run: build setup")
	}
	return nil
}

func (s *DryRunStrategy) PerformTeardown(_ context.Context, action TeardownAction) error {
	if action != nil {
		s.Log.Info("dry-run: build teardown")
	}
	return nil
}

func (s *DryRunStrategy) PerformTaskSetup(_ context.Context, action TaskSetupAction, tsc TaskSetupContext) error {
	if action != nil {
		s.Log.Info("dry-run: task setup for %s", tsc.TaskInfo.Name)
	}
	return nil
}

func (s *DryRunStrategy) PerformTaskTeardown(_ context.Context, action TaskTeardownAction, ttc TaskTeardownContext) error {
	if action != nil {
		s.Log.Info("dry-run: task teardown for %s", ttc.TaskInfo.Name)
	}
	return nil
}

func (s *DryRunStrategy) ExecuteAsync(_ context.Context, task *Task) error {
	s.Log.Info("dry-run: would execute %s", task.Name)
	return nil
}

func (s *DryRunStrategy) Skip(task *Task) {
	s.Log.Info("dry-run: would skip %s", task.Name)
}

func (s *DryRunStrategy) ReportErrors(ErrorReporter, error) {}

func (s *DryRunStrategy) HandleErrors(_ ErrorHandler, err error) error {
	return err
}

func (s *DryRunStrategy) InvokeFinally(FinallyHandler) error {
	return nil
}

// VerboseStrategy wraps another ExecutionStrategy (DefaultStrategy by
// default) and emits a structured zerolog event around every callback
// it forwards, tracing invocation and outcome.
type VerboseStrategy struct {
	Inner  ExecutionStrategy
	logger zerolog.Logger
}

// NewVerboseStrategy constructs a VerboseStrategy tracing through the
// given zerolog.Logger. A nil inner strategy defaults to
// NewDefaultStrategy(nil).
func NewVerboseStrategy(logger zerolog.Logger, inner ExecutionStrategy) *VerboseStrategy {
	if inner == nil {
		inner = NewDefaultStrategy(nil)
	}
	return &VerboseStrategy{Inner: inner, logger: logger}
}

func (s *VerboseStrategy) PerformSetup(ctx context.Context, action SetupAction) error {
	s.logger.Debug().Msg("build setup")
	err := s.Inner.PerformSetup(ctx, action)
	s.logger.Debug().Err(err).Msg("build setup done")
	return err
}

func (s *VerboseStrategy) PerformTeardown(ctx context.Context, action TeardownAction) error {
	s.logger.Debug().Msg("build teardown")
	err := s.Inner.PerformTeardown(ctx, action)
	s.logger.Debug().Err(err).Msg("build teardown done")
	return err
}

func (s *VerboseStrategy) PerformTaskSetup(ctx context.Context, action TaskSetupAction, tsc TaskSetupContext) error {
	s.logger.Debug().Str("task", tsc.TaskInfo.Name).Msg("task setup")
	err := s.Inner.PerformTaskSetup(ctx, action, tsc)
	s.logger.Debug().Str("task", tsc.TaskInfo.Name).Err(err).Msg("task setup done")
	return err
}

func (s *VerboseStrategy) PerformTaskTeardown(ctx context.Context, action TaskTeardownAction, ttc TaskTeardownContext) error {
	s.logger.Debug().Str("task", ttc.TaskInfo.Name).Msg("task teardown")
	err := s.Inner.PerformTaskTeardown(ctx, action, ttc)
	s.logger.Debug().Str("task", ttc.TaskInfo.Name).Err(err).Msg("task teardown done")
	return err
}

func (s *VerboseStrategy) ExecuteAsync(ctx context.Context, task *Task) error {
	s.logger.Debug().Str("task", task.Name).Msg("executing")
	err := s.Inner.ExecuteAsync(ctx, task)
	s.logger.Debug().Str("task", task.Name).Err(err).Msg("executed")
	return err
}

func (s *VerboseStrategy) Skip(task *Task) {
	s.logger.Debug().Str("task", task.Name).Msg("skipped")
	s.Inner.Skip(task)
}

func (s *VerboseStrategy) ReportErrors(reporter ErrorReporter, err error) {
	s.logger.Debug().Err(err).Msg("reporting error")
	s.Inner.ReportErrors(reporter, err)
}

func (s *VerboseStrategy) HandleErrors(handler ErrorHandler, err error) error {
	s.logger.Debug().Err(err).Msg("handling error")
	result := s.Inner.HandleErrors(handler, err)
	s.logger.Debug().Err(result).Msg("handled error")
	return result
}

func (s *VerboseStrategy) InvokeFinally(handler FinallyHandler) error {
	s.logger.Debug().Msg("invoking finally")
	err := s.Inner.InvokeFinally(handler)
	s.logger.Debug().Err(err).Msg("invoked finally")
	return err
}
