package cake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskNames(report *Report) []string {
	names := make([]string, 0)
	for _, e := range report.Entries() {
		names = append(names, e.TaskName)
	}
	return names
}

func buildLinearChain(t *testing.T, e *Engine) {
	t.Helper()
	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction)

	b, err := e.RegisterTask("B")
	require.NoError(t, err)
	b.Does(noopAction).DependsOn("A")

	c, err := e.RegisterTask("C")
	require.NoError(t, err)
	c.Does(noopAction).DependsOn("B")
}

func buildDiamond(t *testing.T, e *Engine) {
	t.Helper()
	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction)

	b, err := e.RegisterTask("B")
	require.NoError(t, err)
	b.Does(noopAction).DependsOn("A")

	c, err := e.RegisterTask("C")
	require.NoError(t, err)
	c.Does(noopAction).DependsOn("A")

	d, err := e.RegisterTask("D")
	require.NoError(t, err)
	d.Does(noopAction).DependsOn("B").DependsOn("C")
}

func TestScenarioLinearChainSerial(t *testing.T) {
	e := NewEngine(Sequential)
	buildLinearChain(t, e)

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "C")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, taskNames(report))
}

func TestScenarioLinearChainParallelGroups(t *testing.T) {
	e := NewEngine(GroupedParallel)
	buildLinearChain(t, e)

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "C")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, taskNames(report))
	assert.Equal(t, 3, report.Len())
}

func TestScenarioDiamondSerial(t *testing.T) {
	e := NewEngine(Sequential)
	buildDiamond(t, e)

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "D")
	require.NoError(t, err)

	names := taskNames(report)
	require.Len(t, names, 4)
	assert.Equal(t, "A", names[0])
	assert.Equal(t, "D", names[3])
}

func TestScenarioDiamondParallelGroups(t *testing.T) {
	e := NewEngine(GroupedParallel)
	buildDiamond(t, e)

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "D")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B", "C", "D"}, taskNames(report))
}

func TestScenarioCriterionSkippedNonTarget(t *testing.T) {
	e := NewEngine(Sequential)

	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction)

	b, err := e.RegisterTask("B")
	require.NoError(t, err)
	b.Does(noopAction).DependsOn("A").WithCriteria(func() bool { return false })

	c, err := e.RegisterTask("C")
	require.NoError(t, err)
	c.Does(noopAction).DependsOn("B")

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "C")
	require.NoError(t, err)

	entries := report.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "B", entries[1].TaskName)
	assert.Equal(t, time.Duration(0), entries[1].Duration)
}

func TestScenarioCriterionSkippedTarget(t *testing.T) {
	e := NewEngine(Sequential)

	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction)

	b, err := e.RegisterTask("B")
	require.NoError(t, err)
	b.Does(noopAction).DependsOn("A").WithCriteria(func() bool { return false })

	c, err := e.RegisterTask("C")
	require.NoError(t, err)
	c.Does(noopAction).DependsOn("B")

	var teardownCalled bool
	e.RegisterTeardownAction(func(ctx context.Context) error {
		teardownCalled = true
		return nil
	})

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), strategy, "B")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTargetSkipped))
	assert.True(t, teardownCalled)
}

func TestScenarioHandledActionFailure(t *testing.T) {
	e := NewEngine(Sequential)

	boom := errors.New("boom")
	var reporterCalled, handlerCalled, finallyCalled bool
	var reporterBeforeHandler bool

	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(func(ctx context.Context) error {
		return boom
	}).ReportError(func(err error) {
		reporterCalled = true
		reporterBeforeHandler = !handlerCalled
	}).OnError(func(err error) error {
		handlerCalled = true
		return nil
	}).Finally(func() error {
		finallyCalled = true
		return nil
	})

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "A")
	require.NoError(t, err)

	assert.True(t, reporterCalled)
	assert.True(t, handlerCalled)
	assert.True(t, finallyCalled)
	assert.True(t, reporterBeforeHandler)

	entries := report.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "A", entries[0].TaskName)
}

func TestScenarioCycle(t *testing.T) {
	// A direct A<->B mutual dependency is rejected by Connect itself
	// (ErrInverseEdge) before a graph ever exists to traverse, the same
	// reason TestGraphTraverseCycle uses a 3-node chain instead of a
	// direct pair. A genuine cycle that reaches traversal needs a third
	// task: A depends on B, B depends on C, C depends on A.
	e := NewEngine(Sequential)

	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction).DependsOn("B")

	b, err := e.RegisterTask("B")
	require.NoError(t, err)
	b.Does(noopAction).DependsOn("C")

	c, err := e.RegisterTask("C")
	require.NoError(t, err)
	c.Does(noopAction).DependsOn("A")

	var teardownCalled bool
	e.RegisterTeardownAction(func(ctx context.Context) error {
		teardownCalled = true
		return nil
	})

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), strategy, "A")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCyclicGraph))
	assert.True(t, teardownCalled)
}

func TestRunTargetInvalidArguments(t *testing.T) {
	e := NewEngine(Sequential)
	_, err := e.RegisterTask("A")
	require.NoError(t, err)

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), nil, "A")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = e.RunTarget(nil, strategy, "A")
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = e.RunTarget(context.Background(), strategy, "")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRunTargetUnknownTarget(t *testing.T) {
	e := NewEngine(Sequential)
	_, err := e.RegisterTask("A")
	require.NoError(t, err)

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), strategy, "ghost")
	assert.True(t, errors.Is(err, ErrUnknownTarget))
}

func TestRegisterTaskDuplicate(t *testing.T) {
	e := NewEngine(Sequential)
	_, err := e.RegisterTask("A")
	require.NoError(t, err)
	_, err = e.RegisterTask("a")
	assert.True(t, errors.Is(err, ErrDuplicateTask))
}

func TestRunTargetBuildSetupFailureSkipsExecutionButRunsTeardown(t *testing.T) {
	e := NewEngine(Sequential)
	a, err := e.RegisterTask("A")
	require.NoError(t, err)

	var actionRan bool
	a.Does(func(ctx context.Context) error {
		actionRan = true
		return nil
	})

	setupErr := errors.New("setup failed")
	e.RegisterSetupAction(func(ctx context.Context) error { return setupErr })

	var teardownCalled bool
	e.RegisterTeardownAction(func(ctx context.Context) error {
		teardownCalled = true
		return nil
	})

	strategy := NewDefaultStrategy(NewNopLog())
	report, err := e.RunTarget(context.Background(), strategy, "A")
	require.Error(t, err)
	assert.Equal(t, setupErr, err)
	assert.False(t, actionRan)
	assert.True(t, teardownCalled)
	assert.Equal(t, 0, report.Len())
}

func TestRunTargetBuildTeardownFailureIsSuppressedByPriorFailure(t *testing.T) {
	e := NewEngine(Sequential)
	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	boom := errors.New("boom")
	a.Does(func(ctx context.Context) error { return boom })

	e.RegisterTeardownAction(func(ctx context.Context) error {
		return errors.New("teardown also failed")
	})

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), strategy, "A")
	require.Error(t, err)
	assert.Equal(t, boom, err)
}

func TestRunTargetBuildTeardownFailurePropagatesWithoutPriorFailure(t *testing.T) {
	e := NewEngine(Sequential)
	a, err := e.RegisterTask("A")
	require.NoError(t, err)
	a.Does(noopAction)

	teardownErr := errors.New("teardown failed")
	e.RegisterTeardownAction(func(ctx context.Context) error { return teardownErr })

	strategy := NewDefaultStrategy(NewNopLog())
	_, err = e.RunTarget(context.Background(), strategy, "A")
	require.Error(t, err)
	assert.Equal(t, teardownErr, err)
}
