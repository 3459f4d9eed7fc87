package worker

import (
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	lvl, _ := log.ToLevel("off")
	return log.NewTestLogger(lvl)
}

func TestWorkerRunsTasksInOrder(t *testing.T) {
	w := New("test-worker", testLogger())
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		w.Submit(NewTask("t", func(*CancelToken) { results <- i }))
	}

	for i := 1; i <= 3; i++ {
		select {
		case v := <-results:
			assert.Equal(t, i, v)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for task result")
		}
	}
}

func TestWorkerStopDrainsQueueThenExits(t *testing.T) {
	w := New("drain-worker", testLogger())
	w.Start()

	done := make(chan struct{})
	w.Submit(NewTask("slow", func(*CancelToken) {
		time.Sleep(20 * time.Millisecond)
		close(done)
	}))
	w.Stop()
	w.Join()

	select {
	case <-done:
	default:
		t.Fatal("queued task should have run before worker exited")
	}
}

func TestSubmitWithFutureResolves(t *testing.T) {
	w := New("future-worker", testLogger())
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	future := SubmitWithFuture(w, "compute", func(*CancelToken) (int, error) {
		return 21 * 2, nil
	})

	result := future.Wait()
	require.NoError(t, result.Err)
	assert.False(t, result.Cancelled)
	assert.Equal(t, 42, result.Value)
}

func TestSubmitWithFutureCancelledBeforeRun(t *testing.T) {
	w := New("cancel-worker", testLogger())
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	blocker := make(chan struct{})
	w.Submit(NewTask("block", func(*CancelToken) { <-blocker }))

	future := SubmitWithFuture(w, "never-runs", func(*CancelToken) (int, error) {
		return 1, nil
	})

	// Cancel the second task's token before the worker dequeues it; the
	// blocking first task keeps the queue from draining in the meantime.
	w.queueMu.Lock()
	futureTask := w.queue[len(w.queue)-1]
	w.queueMu.Unlock()
	futureTask.Cancel.Cancel()
	close(blocker)

	result := future.Wait()
	assert.True(t, result.Cancelled)
	assert.Equal(t, 0, result.Value)
}

func TestSubmitSkipsPreCancelledTask(t *testing.T) {
	w := New("plain-cancel-worker", testLogger())
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	blocker := make(chan struct{})
	w.Submit(NewTask("block", func(*CancelToken) { <-blocker }))

	ran := make(chan struct{}, 1)
	task := NewTask("should-not-run", func(*CancelToken) { ran <- struct{}{} })
	w.Submit(task)

	// Cancel the second task's token before the worker dequeues it, with no
	// Future involved: this exercises the base dispatch loop's own
	// cancellation check, independent of SubmitWithFuture.
	task.Cancel.Cancel()
	close(blocker)

	select {
	case <-ran:
		t.Fatal("Fn should not run for a task whose cancel token was already set")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunningAndPendingTaskIDs(t *testing.T) {
	w := New("ids-worker", testLogger())
	w.Start()
	defer func() {
		w.Stop()
		w.Join()
	}()

	started := make(chan struct{})
	release := make(chan struct{})
	task := NewTask("blocker", func(*CancelToken) {
		close(started)
		<-release
	})
	w.Submit(task)
	<-started

	assert.Contains(t, w.RunningTaskIDs(), task.ID)
	assert.NotContains(t, w.PendingTaskIDs(), task.ID)
	close(release)
}
