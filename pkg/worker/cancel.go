package worker

import "sync/atomic"

// CancelToken is a cooperative cancellation flag threaded into every task
// function. Tasks observe it between units of work and return early when
// set; nothing forcibly interrupts a running task.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns a fresh, not-yet-cancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token cancelled. Idempotent.
func (c *CancelToken) Cancel() {
	c.cancelled.Store(true)
}

// IsCancelled reports whether Cancel has been called.
func (c *CancelToken) IsCancelled() bool {
	return c.cancelled.Load()
}
