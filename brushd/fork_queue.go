package brushd

import (
	"runtime"
	"sync/atomic"
)

type forkTask[T any] struct {
	claimed int32
	fn      func() T
	result  chan T
}

// claim marks the task as started, returning false if another Goroutine got
// to it first.
func (f *forkTask[T]) claim() bool {
	return atomic.SwapInt32(&f.claimed, 1) == 0
}

// A forkQueue runs a recursive divide-and-conquer computation on a fixed
// number of worker Goroutines.
//
// The root task is started with Run(), and tasks may call Fork() to run two
// sub-tasks which idle workers can pick up.
type forkQueue[T any] struct {
	tasks chan *forkTask[T]
}

func newForkQueue[T any](numWorkers int) *forkQueue[T] {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	res := &forkQueue[T]{
		tasks: make(chan *forkTask[T], numWorkers*64),
	}
	for i := 0; i < numWorkers; i++ {
		go res.worker()
	}
	return res
}

// Run runs the root task and shuts down the workers once it completes.
func (f *forkQueue[T]) Run(fn func() T) T {
	defer close(f.tasks)
	task := &forkTask[T]{fn: fn, result: make(chan T, 1)}
	f.tasks <- task
	return <-task.result
}

// Fork runs fn1 on the current Goroutine while offering fn2 to the workers.
// If no worker has started fn2 by the time fn1 is done, it runs here too.
func (f *forkQueue[T]) Fork(fn1, fn2 func() T) (T, T) {
	task := &forkTask[T]{fn: fn2, result: make(chan T, 1)}
	select {
	case f.tasks <- task:
	default:
		// The queue is full, so there is no point in waiting for a worker.
		return fn1(), fn2()
	}
	res1 := fn1()
	if task.claim() {
		return res1, fn2()
	}
	return res1, <-task.result
}

func (f *forkQueue[T]) worker() {
	for task := range f.tasks {
		if task.claim() {
			task.result <- task.fn()
		}
	}
}
