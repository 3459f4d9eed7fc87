package worker

import "sync/atomic"

var nextTaskID atomic.Uint64

// NextTaskID returns a process-wide monotonically increasing task
// identifier, starting at 1. Shared across every Worker so task IDs never
// collide between workers.
func NextTaskID() uint64 {
	return nextTaskID.Add(1)
}

// Fn is the body of a Task: it receives a CancelToken it should check
// periodically during long-running work.
type Fn func(*CancelToken)

// Task is a unit of work submitted to a Worker's queue. OnCancelled, if set,
// is invoked by the worker in place of Fn when the task is popped with its
// Cancel token already set, giving callers that need to observe the
// cancelled outcome (such as a Future) a hook independent of Fn itself.
type Task struct {
	ID          uint64
	Desc        string
	Fn          Fn
	Cancel      *CancelToken
	OnCancelled func()
}

// NewTask wraps fn in a Task with a fresh ID and cancel token.
func NewTask(desc string, fn Fn) *Task {
	return &Task{
		ID:     NextTaskID(),
		Desc:   desc,
		Fn:     fn,
		Cancel: NewCancelToken(),
	}
}
