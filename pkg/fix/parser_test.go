package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNewOrderSingle(t *testing.T) {
	raw := []byte("8=FIX.4.2\x0135=D\x0155=AAPL\x0154=1\x0144=150.50\x0138=100\x0110=000\x01")
	msg := Parse(raw)

	assert.True(t, msg.Valid)
	assert.Equal(t, "D", msg.MsgType)
	assert.Equal(t, "AAPL", msg.Symbol)
	assert.Equal(t, "1", msg.Side)
	assert.InDelta(t, 150.50, msg.Price, 0.0001)
	assert.Equal(t, int64(100), msg.Quantity)
}

func TestParseLogon(t *testing.T) {
	raw := []byte("8=FIX.4.2\x0135=A\x0110=000\x01")
	msg := Parse(raw)
	assert.True(t, msg.Valid)
	assert.Equal(t, "A", msg.MsgType)
}

func TestParseMissingMsgTypeIsInvalid(t *testing.T) {
	raw := []byte("8=FIX.4.2\x0110=000\x01")
	msg := Parse(raw)
	assert.False(t, msg.Valid)
}

func TestParseSkipsMalformedSegments(t *testing.T) {
	raw := []byte("8=FIX.4.2\x01garbage\x0135=D\x0110=000\x01")
	msg := Parse(raw)
	assert.True(t, msg.Valid)
	assert.Equal(t, "D", msg.MsgType)
}
