package fix

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/fixgateway/pkg/ipc/envelope"
	"github.com/luxfi/fixgateway/pkg/ipc/ring"
	"github.com/luxfi/fixgateway/pkg/netio"
	"github.com/luxfi/fixgateway/pkg/queue"
)

func testLogger() log.Logger {
	lvl, _ := log.ToLevel("off")
	return log.NewTestLogger(lvl)
}

func ringSegmentName(t *testing.T) string {
	return fmt.Sprintf("fixtest-%s-%d", t.Name(), time.Now().UnixNano())
}

func cleanupRing(name string) {
	os.Remove("/dev/shm/" + name)
	os.Remove("/tmp/" + name + ".uuid")
	os.Remove("/tmp/" + name + ".prod.lock")
	os.Remove("/tmp/" + name + ".cons.lock")
}

func TestDispatcherWritesNewOrderToRing(t *testing.T) {
	name := ringSegmentName(t)
	defer cleanupRing(name)

	producer, err := ring.NewProducer(name, testLogger())
	require.NoError(t, err)
	defer producer.Close()

	consumer, err := ring.NewConsumer(name, testLogger())
	require.NoError(t, err)
	defer consumer.Close()

	q := queue.New[netio.RawPacket](8)
	d := New(q, producer, testLogger())

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	order := []byte("8=FIX.4.2\x0135=D\x0155=AAPL\x0154=1\x0144=150.50\x0138=100\x0110=000\x01")
	require.NoError(t, q.Push(netio.RawPacket{ClientFd: 5, Data: order}))

	var payload []byte
	for i := 0; i < 100; i++ {
		payload, err = consumer.TryRead()
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, err)

	msg, err := envelope.Decode(payload)
	require.NoError(t, err)
	assert.Equal(t, envelope.MsgNewOrder, msg.Type)

	symbol, err := msg.String(envelope.FieldSymbol)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", symbol)

	side, err := msg.Int64(envelope.FieldSide)
	require.NoError(t, err)
	assert.Equal(t, sideBuy, side)

	price, err := msg.Int64(envelope.FieldPrice)
	require.NoError(t, err)
	assert.Equal(t, int64(1505000), price)

	clientID, err := msg.Int64(envelope.FieldClientID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), clientID)

	q.Close()
	<-done
}

func TestDispatcherIgnoresInvalidMessage(t *testing.T) {
	name := ringSegmentName(t)
	defer cleanupRing(name)

	producer, err := ring.NewProducer(name, testLogger())
	require.NoError(t, err)
	defer producer.Close()

	q := queue.New[netio.RawPacket](8)
	d := New(q, producer, testLogger())

	done := make(chan struct{})
	go func() {
		d.Run()
		close(done)
	}()

	require.NoError(t, q.Push(netio.RawPacket{ClientFd: 1, Data: []byte("garbage\x0110=000\x01")}))
	q.Close()
	<-done
}

func TestNextOrderIDIsMonotonic(t *testing.T) {
	a := nextOrderID()
	b := nextOrderID()
	assert.Greater(t, b, a)
}
