package cake

import (
	"runtime"
	"sync"
)

// Dispatcher submits work for execution within a single parallel group. The
// parallel Engine uses it instead of spawning a raw goroutine per task when
// an EngineOption supplies one, bounding how many of a group's
// mutually-independent tasks run at once.
type Dispatcher interface {
	Submit(func())
	Stop()
}

// goroutineDispatcher runs every submitted function on its own goroutine,
// giving a group full, unbounded parallelism. The Engine does not use it:
// with no Dispatcher configured via WithDispatcher, runGroup starts each
// task on its own errgroup goroutine directly.
type goroutineDispatcher struct{}

func (goroutineDispatcher) Submit(fn func()) {
	go fn()
}

func (goroutineDispatcher) Stop() {}

// NewWorkerPoolDispatcher returns a Dispatcher that runs submitted group
// tasks on a fixed-size worker pool, bounding a parallel group's
// concurrency regardless of how many mutually-independent tasks it
// contains. If size is zero or negative, GOMAXPROCS workers are used.
func NewWorkerPoolDispatcher(size int) Dispatcher {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
		if size <= 0 {
			size = 1
		}
	}

	pool := &workerPoolDispatcher{
		tasks: make(chan func(), size*2),
	}
	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		go pool.worker()
	}
	return pool
}

type workerPoolDispatcher struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

func (d *workerPoolDispatcher) worker() {
	defer d.wg.Done()
	for fn := range d.tasks {
		if fn != nil {
			fn()
		}
	}
}

func (d *workerPoolDispatcher) Submit(fn func()) {
	d.tasks <- fn
}

func (d *workerPoolDispatcher) Stop() {
	d.once.Do(func() {
		close(d.tasks)
		d.wg.Wait()
	})
}
