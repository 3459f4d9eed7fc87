package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := NewMessage(MsgNewOrder).
		AddString(FieldSymbol, "AAPL").
		AddInt64(FieldSide, 0).
		AddInt64(FieldPrice, 1505000).
		AddUint64(FieldQty, 100).
		AddInt64(FieldClientID, 42).
		AddUint64(FieldOrderID, 7).
		AddInt64(FieldTIF, 0).
		Finalize(1)

	buf, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, MsgNewOrder, decoded.Type)
	assert.Equal(t, uint64(1), decoded.SequenceNo)

	sym, err := decoded.String(FieldSymbol)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym)

	price, err := decoded.Int64(FieldPrice)
	require.NoError(t, err)
	assert.Equal(t, int64(1505000), price)

	qty, err := decoded.Uint64(FieldQty)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), qty)
}

func TestDecodeTruncatedHeader(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeTruncatedPayload(t *testing.T) {
	msg := NewMessage(MsgCancel).AddString(FieldSymbol, "MSFT").Finalize(2)
	buf, err := msg.Encode()
	require.NoError(t, err)

	_, err = Decode(buf[:len(buf)-2])
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFieldNotFoundAndTypeMismatch(t *testing.T) {
	msg := NewMessage(MsgTrade).AddInt64(FieldPrice, 100).Finalize(3)
	buf, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(buf)
	require.NoError(t, err)

	_, err = decoded.String(FieldSymbol)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	_, err = decoded.Uint64(FieldPrice)
	assert.ErrorIs(t, err, ErrFieldType)
}

func TestAddAfterFinalizePanics(t *testing.T) {
	msg := NewMessage(MsgTrade).Finalize(1)
	assert.Panics(t, func() {
		msg.AddInt64(FieldPrice, 1)
	})
}
