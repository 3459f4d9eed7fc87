package worker

// Result is the outcome of a task submitted through SubmitWithFuture: at
// most one of Err being set or Cancelled being true holds alongside Value.
type Result[T any] struct {
	Value     T
	Err       error
	Cancelled bool
}

// Future is a single-shot handle to a task's eventual Result, matching the
// original's promise/future pairing for heterogeneous task return types
// (spec §9 Design Notes: "Heterogeneous task return types").
type Future[T any] struct {
	ch chan Result[T]
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan Result[T], 1)}
}

func (f *Future[T]) resolve(r Result[T]) {
	f.ch <- r
}

// Wait blocks until the task has completed (successfully, with an error, or
// cancelled) and returns its Result.
func (f *Future[T]) Wait() Result[T] {
	return <-f.ch
}

// SubmitWithFuture wraps fn as a Task on w and returns a Future that
// resolves once the task finishes, captures an error, or is found already
// cancelled before it ever ran. The worker itself is what checks the
// cancel token at dispatch time (see Worker.runTask); OnCancelled is this
// call's hook into that outcome.
func SubmitWithFuture[T any](w *Worker, desc string, fn func(*CancelToken) (T, error)) *Future[T] {
	future := newFuture[T]()
	task := NewTask(desc, func(ct *CancelToken) {
		v, err := fn(ct)
		future.resolve(Result[T]{Value: v, Err: err})
	})
	task.OnCancelled = func() {
		var zero T
		future.resolve(Result[T]{Value: zero, Cancelled: true})
	}
	w.Submit(task)
	return future
}
