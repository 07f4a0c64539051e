package cake

import (
	"errors"
	"fmt"
)

// Structural errors, raised synchronously from registration, graph
// construction, or RunTarget before any hook fires.
var (
	// ErrDuplicateTask indicates a task with the same name (case-insensitive)
	// is already registered on the engine.
	ErrDuplicateTask = errors.New("cake: duplicate task")
	// ErrDuplicateNode indicates a graph node with the same name already exists.
	ErrDuplicateNode = errors.New("cake: duplicate node")
	// ErrReflexiveEdge indicates an edge was attempted from a node to itself.
	ErrReflexiveEdge = errors.New("cake: reflexive edge")
	// ErrInverseEdge indicates an edge was attempted in the direction opposite
	// an edge that already exists between the same two nodes.
	ErrInverseEdge = errors.New("cake: inverse edge")
	// ErrCyclicGraph indicates a cycle was encountered during traversal.
	ErrCyclicGraph = errors.New("cake: cyclic graph")
	// ErrUnknownDependency indicates a task declared a dependency on a name
	// that is not the name of any registered task.
	ErrUnknownDependency = errors.New("cake: unknown dependency")
	// ErrUnknownTarget indicates RunTarget was asked to build a name that is
	// not the name of any registered task.
	ErrUnknownTarget = errors.New("cake: unknown target")
	// ErrInvalidArgument indicates a nil context or strategy, or an empty
	// target, was passed to RunTarget.
	ErrInvalidArgument = errors.New("cake: invalid argument")
	// ErrTargetSkipped indicates the target task's own criteria denied
	// execution.
	ErrTargetSkipped = errors.New("cake: target skipped")
)

func structuralf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
