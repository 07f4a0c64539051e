// Package cake provides a build-automation task execution engine: a
// declarative set of named tasks with inter-task dependencies, driven to
// a caller-selected target in legal topological order, with optional
// parallelism, lifecycle hooks, conditional skipping, per-task error
// handling, and an execution report.
package cake
