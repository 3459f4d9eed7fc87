package worker

import (
	"fmt"
	"sync"

	"github.com/luxfi/log"
)

// Worker owns a single goroutine draining a FIFO task queue. A separate
// mutex guards the goroutine's lifecycle (started/stopped) from the mutex
// guarding the queue itself, so Join never blocks while another goroutine
// is mid-Submit.
type Worker struct {
	name   string
	logger log.Logger

	queueMu sync.Mutex
	cond    *sync.Cond
	queue   []*Task
	stop    bool

	lifecycleMu sync.Mutex
	started     bool
	done        chan struct{}

	runningMu sync.Mutex
	running   map[uint64]struct{}
	pending   map[uint64]struct{}
}

// New creates a named, not-yet-started Worker.
func New(name string, logger log.Logger) *Worker {
	w := &Worker{
		name:    name,
		logger:  logger,
		running: make(map[uint64]struct{}),
		pending: make(map[uint64]struct{}),
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.queueMu)
	return w
}

// Name returns the worker's identifying label, used in logs and by the
// Scheduler's worker registry.
func (w *Worker) Name() string { return w.name }

// Start launches the worker's goroutine. Calling Start twice panics: a
// Worker is meant to be started exactly once by its owning Scheduler.
func (w *Worker) Start() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()
	if w.started {
		panic(fmt.Sprintf("worker %q: Start called twice", w.name))
	}
	w.started = true
	go w.run()
}

func (w *Worker) run() {
	defer close(w.done)
	for {
		w.queueMu.Lock()
		for len(w.queue) == 0 && !w.stop {
			w.cond.Wait()
		}
		if len(w.queue) == 0 && w.stop {
			w.queueMu.Unlock()
			return
		}
		task := w.queue[0]
		w.queue = w.queue[1:]
		w.queueMu.Unlock()

		w.markRunning(task.ID)
		w.runTask(task)
		w.markDone(task.ID)
	}
}

func (w *Worker) runTask(task *Task) {
	if task.Cancel.IsCancelled() {
		w.logger.Debug("worker task skipped, already cancelled", "worker", w.name, "task_id", task.ID, "desc", task.Desc)
		if task.OnCancelled != nil {
			task.OnCancelled()
		}
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("worker task panicked", "worker", w.name, "task_id", task.ID, "desc", task.Desc, "panic", r)
		}
	}()
	task.Fn(task.Cancel)
}

func (w *Worker) markRunning(id uint64) {
	w.runningMu.Lock()
	delete(w.pending, id)
	w.running[id] = struct{}{}
	w.runningMu.Unlock()
}

func (w *Worker) markDone(id uint64) {
	w.runningMu.Lock()
	delete(w.running, id)
	w.runningMu.Unlock()
}

// Submit enqueues task for this worker's goroutine to run, in FIFO order.
// Submitting to a worker that has already been asked to stop is a no-op;
// the task is marked pending but will never run (mirrors the original's
// drain-then-exit semantics, which does not accept new work after shutdown
// has been requested).
func (w *Worker) Submit(task *Task) {
	w.runningMu.Lock()
	w.pending[task.ID] = struct{}{}
	w.runningMu.Unlock()

	w.queueMu.Lock()
	defer w.queueMu.Unlock()
	if w.stop {
		return
	}
	w.queue = append(w.queue, task)
	w.cond.Signal()
}

// Stop requests the worker drain its remaining queued tasks and then exit.
// It does not block; call Join to wait for the goroutine to finish.
func (w *Worker) Stop() {
	w.queueMu.Lock()
	w.stop = true
	w.cond.Broadcast()
	w.queueMu.Unlock()
}

// Join blocks until the worker's goroutine has exited. Safe to call
// concurrently with Submit because it never takes queueMu.
func (w *Worker) Join() {
	<-w.done
}

// RunningTaskIDs returns a snapshot of task IDs currently executing.
func (w *Worker) RunningTaskIDs() []uint64 {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()
	ids := make([]uint64, 0, len(w.running))
	for id := range w.running {
		ids = append(ids, id)
	}
	return ids
}

// PendingTaskIDs returns a snapshot of task IDs queued but not yet started.
func (w *Worker) PendingTaskIDs() []uint64 {
	w.runningMu.Lock()
	defer w.runningMu.Unlock()
	ids := make([]uint64, 0, len(w.pending))
	for id := range w.pending {
		ids = append(ids, id)
	}
	return ids
}
