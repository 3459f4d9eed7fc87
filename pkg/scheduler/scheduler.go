// Package scheduler owns a named registry of Workers, creating, starting,
// and shutting them down as a unit.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/fixgateway/pkg/worker"
	"github.com/luxfi/log"
)

// Scheduler owns a set of named Workers under a shared read/write mutex:
// reads (SubmitTo, GetWorker) take RLock, and only CreateWorker/Start/
// Shutdown take the exclusive Lock.
type Scheduler struct {
	mu      sync.RWMutex
	workers map[string]*worker.Worker
	logger  log.Logger
	started bool
	down    bool
}

// New creates an empty, unstarted Scheduler.
func New(logger log.Logger) *Scheduler {
	return &Scheduler{
		workers: make(map[string]*worker.Worker),
		logger:  logger,
	}
}

// CreateWorker registers a new named worker. It is an error to reuse a name
// already registered with this scheduler.
func (s *Scheduler) CreateWorker(name string) (*worker.Worker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workers[name]; exists {
		return nil, fmt.Errorf("scheduler: worker %q already exists", name)
	}
	w := worker.New(name, s.logger)
	s.workers[name] = w
	return w, nil
}

// CreateWorkers registers multiple named workers in one call.
func (s *Scheduler) CreateWorkers(names ...string) ([]*worker.Worker, error) {
	created := make([]*worker.Worker, 0, len(names))
	for _, name := range names {
		w, err := s.CreateWorker(name)
		if err != nil {
			return nil, err
		}
		created = append(created, w)
	}
	return created, nil
}

// Start launches the goroutine for every registered worker. Calling Start
// twice panics.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		panic("scheduler: Start called twice")
	}
	s.started = true
	workers := make([]*worker.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.Start()
	}
}

// GetWorker looks up a previously created worker by name.
func (s *Scheduler) GetWorker(name string) (*worker.Worker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[name]
	return w, ok
}

// HasWorker reports whether a worker with the given name is registered.
func (s *Scheduler) HasWorker(name string) bool {
	_, ok := s.GetWorker(name)
	return ok
}

// WorkerNames returns the names of every registered worker.
func (s *Scheduler) WorkerNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	return names
}

// SubmitTo submits a task to the named worker. It returns an error if no
// such worker is registered.
func (s *Scheduler) SubmitTo(name string, task *worker.Task) error {
	w, ok := s.GetWorker(name)
	if !ok {
		return fmt.Errorf("scheduler: no such worker %q", name)
	}
	w.Submit(task)
	return nil
}

// SubmitToWithFuture submits a function to the named worker and returns a
// Future resolving to its result, matching worker.SubmitWithFuture.
func SubmitToWithFuture[T any](s *Scheduler, name string, desc string, fn func(*worker.CancelToken) (T, error)) (*worker.Future[T], error) {
	w, ok := s.GetWorker(name)
	if !ok {
		return nil, fmt.Errorf("scheduler: no such worker %q", name)
	}
	return worker.SubmitWithFuture(w, desc, fn), nil
}

// Shutdown idempotently stops every worker, then joins each of them outside
// the scheduler's lock (so a slow worker's Join never blocks SubmitTo/
// GetWorker calls on other workers), and finally clears the registry.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	if s.down {
		s.mu.Unlock()
		return
	}
	s.down = true
	workers := make([]*worker.Worker, 0, len(s.workers))
	for _, w := range s.workers {
		workers = append(workers, w)
	}
	s.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
	for _, w := range workers {
		w.Join()
	}

	s.mu.Lock()
	s.workers = make(map[string]*worker.Worker)
	s.mu.Unlock()

	s.logger.Info("scheduler shutdown complete", "workers", len(workers))
}

// ShutdownWithGracePeriod calls Shutdown after first sleeping for the full
// grace period, giving in-flight tasks time to settle before each worker is
// asked to stop;
// this only affects when Stop() is called, not whether queued tasks drain,
// which Worker.Stop always does regardless.
func (s *Scheduler) ShutdownWithGracePeriod(grace time.Duration) {
	if grace > 0 {
		time.Sleep(grace)
	}
	s.Shutdown()
}
