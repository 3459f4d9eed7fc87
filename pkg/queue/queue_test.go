package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New[int](0)
	require.NoError(t, q.Push(1))
	require.NoError(t, q.Push(2))

	v, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestPushBlocksWhenFull(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.Push(1))

	done := make(chan struct{})
	go func() {
		require.NoError(t, q.Push(2))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Push on a full queue should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	_, err := q.Pop()
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push should have unblocked after a Pop freed capacity")
	}
}

func TestPopBlocksWhenEmpty(t *testing.T) {
	q := New[int](0)
	done := make(chan int, 1)
	go func() {
		v, err := q.Pop()
		require.NoError(t, err)
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, q.Push(42))

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Pop should have unblocked after a Push")
	}
}

func TestCloseWakesBlockedPush(t *testing.T) {
	q := New[int](1)
	require.NoError(t, q.Push(1))

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Push(2)
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("Close should have woken the blocked Push")
	}
}

func TestCloseDrainsThenErrClosed(t *testing.T) {
	q := New[int](0)
	require.NoError(t, q.Push(1))
	q.Close()

	v, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPushOnClosedReturnsErrClosed(t *testing.T) {
	q := New[int](0)
	q.Close()
	err := q.Push(1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	q := New[int](4)
	const n = 200
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			require.NoError(t, q.Push(i))
		}
		q.Close()
	}()

	received := 0
	for {
		_, err := q.Pop()
		if err != nil {
			break
		}
		received++
	}
	wg.Wait()
	assert.Equal(t, n, received)
}
