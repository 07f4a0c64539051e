package cake

import (
	"context"
	"time"
)

// taskRunner executes a single task against the criteria/setup/teardown/
// error/finally algorithm of §4.4: it is not part of the public API —
// callers interact with it only through Engine.RunTarget.
type taskRunner struct {
	ctx      context.Context
	strategy ExecutionStrategy
	log      Log
	report   *Report

	taskSetup    TaskSetupAction
	taskTeardown TaskTeardownAction

	// isTarget marks that task is the engine's RunTarget target: a
	// denied criterion on the target fails the run instead of skipping.
	isTarget bool
}

// run executes task and returns the failure (if any) that should
// propagate out of RunTarget. A nil return means the task succeeded,
// recovered, or was legitimately skipped; in every such case a report
// entry has already been appended.
func (tr *taskRunner) run(task *Task) error {
	info := TaskInfo{Name: task.Name}

	for _, criterion := range task.criteria {
		if criterion() {
			continue
		}
		if tr.isTarget {
			return structuralf(ErrTargetSkipped, "%s", task.Name)
		}
		return tr.runSkipped(task, info)
	}

	start := now()

	if err := tr.strategy.PerformTaskSetup(tr.ctx, tr.taskSetup, TaskSetupContext{TaskInfo: info}); err != nil {
		ttc := TaskTeardownContext{TaskInfo: info, Duration: time.Since(start), Skipped: false}
		return tr.teardown(ttc, err)
	}

	runErr := tr.strategy.ExecuteAsync(tr.ctx, task)
	propagate := runErr

	if runErr != nil {
		tr.log.Error("task %s failed: %v", task.Name, runErr)

		if task.errorReporter != nil {
			tr.reportSafely(task.errorReporter, runErr)
		}

		if task.errorHandler != nil {
			handledErr := tr.strategy.HandleErrors(task.errorHandler, runErr)
			switch {
			case handledErr == nil:
				propagate = nil // recovered
			case handledErr == runErr:
				propagate = handledErr
			default:
				tr.log.Error("task %s: original failure before handler replaced it: %v", task.Name, runErr)
				propagate = handledErr
			}
		}
	}

	if finallyErr := tr.strategy.InvokeFinally(task.finallyHandler); finallyErr != nil {
		if propagate != nil {
			tr.log.Error("task %s: failure superseded by finally failure: %v", task.Name, propagate)
		}
		propagate = finallyErr
	}

	elapsed := time.Since(start)
	ttc := TaskTeardownContext{TaskInfo: info, Duration: elapsed, Skipped: false}
	finalErr := tr.teardown(ttc, propagate)
	if finalErr != nil {
		return finalErr
	}

	tr.report.append(task.Name, elapsed)
	return nil
}

func (tr *taskRunner) runSkipped(task *Task, info TaskInfo) error {
	if err := tr.strategy.PerformTaskSetup(tr.ctx, tr.taskSetup, TaskSetupContext{TaskInfo: info}); err != nil {
		ttc := TaskTeardownContext{TaskInfo: info, Duration: 0, Skipped: true}
		return tr.teardown(ttc, err)
	}

	tr.strategy.Skip(task)

	ttc := TaskTeardownContext{TaskInfo: info, Duration: 0, Skipped: true}
	if err := tr.teardown(ttc, nil); err != nil {
		return err
	}

	tr.report.append(task.Name, 0)
	return nil
}

// teardown invokes the task-teardown hook and resolves which failure
// should flow onward: a prior failure always wins over a teardown
// failure, which is logged and suppressed instead.
func (tr *taskRunner) teardown(ttc TaskTeardownContext, priorErr error) error {
	teardownErr := tr.strategy.PerformTaskTeardown(tr.ctx, tr.taskTeardown, ttc)
	if teardownErr == nil {
		return priorErr
	}
	if priorErr == nil {
		return teardownErr
	}
	tr.log.Error("task %s: teardown failure suppressed in favor of earlier failure: %v", ttc.TaskInfo.Name, teardownErr)
	return priorErr
}

func (tr *taskRunner) reportSafely(reporter ErrorReporter, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			tr.log.Error("error reporter for task panicked: %v", recovered)
		}
	}()
	tr.strategy.ReportErrors(reporter, err)
}
