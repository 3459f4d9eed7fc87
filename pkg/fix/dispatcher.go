package fix

import (
	"sync/atomic"

	"github.com/luxfi/log"
	"github.com/shopspring/decimal"

	"github.com/luxfi/fixgateway/pkg/ipc/envelope"
	"github.com/luxfi/fixgateway/pkg/ipc/ring"
	"github.com/luxfi/fixgateway/pkg/metrics"
	"github.com/luxfi/fixgateway/pkg/netio"
	"github.com/luxfi/fixgateway/pkg/queue"
)

// Side values carried in FieldSide, matching enum.h's Order::Side ordering.
const (
	sideBuy  int64 = 0
	sideSell int64 = 1
)

// TIF values carried in FieldTIF, matching enum.h's Order::TIF ordering.
// The Gateway never receives a time-in-force over this simplified FIX
// subset, so every order defaults to DAY.
const tifDay int64 = 0

// priceScale matches the spec's fixed-point convention: PRICE is carried as
// price * 10000 truncated to a signed 64-bit integer.
var priceScale = decimal.NewFromInt(10000)

var orderIDCounter atomic.Uint64

// nextOrderID returns a process-wide monotonically increasing order
// identifier. The original dispatcher hardcoded ORDER_ID=1 for every order
// (a bug named explicitly in the design notes); this replaces it with a
// real counter.
func nextOrderID() uint64 {
	return orderIDCounter.Add(1)
}

// Dispatcher consumes RawPacket values off the ingress queue, reframes them
// into complete FIX messages, and routes each to the appropriate handler.
type Dispatcher struct {
	ingressQ *queue.Queue[netio.RawPacket]
	producer *ring.Producer
	logger   log.Logger
	framer   *framer
	metrics  *metrics.Metrics
}

// New creates a Dispatcher reading from ingressQ and writing accepted
// orders to producer.
func New(ingressQ *queue.Queue[netio.RawPacket], producer *ring.Producer, logger log.Logger) *Dispatcher {
	return &Dispatcher{ingressQ: ingressQ, producer: producer, logger: logger, framer: newFramer()}
}

// WithMetrics attaches a Metrics instance the dispatcher will report
// dispatch/drop counters to. Optional: a Dispatcher with no metrics
// attached simply skips recording.
func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Run blocks consuming packets until the ingress queue is closed and
// drained, then returns. Intended to be submitted as a Worker task body.
func (d *Dispatcher) Run() {
	d.logger.Info("fix message dispatcher started")
	for {
		packet, err := d.ingressQ.Pop()
		if err != nil {
			d.logger.Info("ingress queue closed and empty, dispatcher exiting")
			return
		}
		if packet.Closed {
			d.framer.Drop(packet.ClientFd)
			continue
		}
		for _, frame := range d.framer.Feed(packet.ClientFd, packet.Data) {
			d.dispatch(packet.ClientFd, frame)
		}
	}
}

func (d *Dispatcher) dispatch(clientFd int, frame []byte) {
	msg := Parse(frame)
	if !msg.Valid {
		d.logger.Warn("invalid or partial FIX message", "client", clientFd)
		if d.metrics != nil {
			d.metrics.RecordInvalidFix()
		}
		return
	}

	switch msg.MsgType {
	case "D":
		d.handleNewOrder(clientFd, msg)
	case "A":
		d.handleLogon(clientFd)
	default:
		d.logger.Warn("unhandled FIX MsgType", "msg_type", msg.MsgType, "client", clientFd)
	}
}

func (d *Dispatcher) handleNewOrder(clientFd int, msg Msg) {
	d.logger.Debug("order received",
		"client", clientFd, "side", msg.Side, "qty", msg.Quantity,
		"symbol", msg.Symbol, "price", msg.Price)

	side := sideBuy
	if msg.Side == "2" {
		side = sideSell
	}

	scaledPrice := decimal.NewFromFloat(msg.Price).Mul(priceScale).Truncate(0)

	orderID := nextOrderID()
	env := envelope.NewMessage(envelope.MsgNewOrder).
		AddString(envelope.FieldSymbol, msg.Symbol).
		AddInt64(envelope.FieldSide, side).
		AddInt64(envelope.FieldPrice, scaledPrice.IntPart()).
		AddUint64(envelope.FieldQty, uint64(msg.Quantity)).
		AddInt64(envelope.FieldClientID, int64(clientFd)).
		AddUint64(envelope.FieldOrderID, orderID).
		AddInt64(envelope.FieldTIF, tifDay).
		Finalize(d.producer.NextSequenceNo())

	buf, err := env.Encode()
	if err != nil {
		d.logger.Error("failed to encode new-order envelope", "error", err, "order_id", orderID)
		return
	}
	if err := d.producer.TryWrite(buf); err != nil {
		d.logger.Warn("dropping order, ring buffer write failed", "error", err, "order_id", orderID)
		if d.metrics != nil {
			d.metrics.RecordOrderDropped()
			if err == ring.ErrFull {
				d.metrics.RecordRingFull()
			}
		}
		return
	}
	if d.metrics != nil {
		d.metrics.RecordOrderDispatched()
		d.metrics.RecordRingWriteOK()
	}
}

func (d *Dispatcher) handleLogon(clientFd int) {
	d.logger.Info("logon request", "client", clientFd)
	if d.metrics != nil {
		d.metrics.RecordLogon()
	}
}
