//go:build linux

package netio

import (
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fixgateway/pkg/queue"
)

func testLogger() log.Logger {
	lvl, _ := log.ToLevel("off")
	return log.NewTestLogger(lvl)
}

func freePort(t *testing.T) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestListenerDeliversRawPackets(t *testing.T) {
	port := freePort(t)
	q := queue.New[RawPacket](16)
	lst := New(port, 32, q, testLogger())

	var stopFlag atomic.Bool
	runErr := make(chan error, 1)
	go func() { runErr <- lst.Run(&stopFlag) }()

	// Give the listener a moment to bind and start polling.
	time.Sleep(100 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:"+strconv.Itoa(port))
	require.NoError(t, err)
	_, err = conn.Write([]byte("8=FIX.4.2\x0135=A\x0110=000\x01"))
	require.NoError(t, err)

	pkt, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "8=FIX.4.2\x0135=A\x0110=000\x01", string(pkt.Data))

	conn.Close()
	stopFlag.Store(true)

	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("listener did not shut down after stop flag set")
	}
}
