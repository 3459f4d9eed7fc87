package fix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFramerSingleCompleteFrame(t *testing.T) {
	fr := newFramer()
	data := []byte("8=FIX.4.2\x0135=A\x0110=000\x01")
	frames := fr.Feed(1, data)
	if assert.Len(t, frames, 1) {
		assert.Equal(t, data, frames[0])
	}
}

func TestFramerSplitAcrossReads(t *testing.T) {
	fr := newFramer()
	part1 := []byte("8=FIX.4.2\x0135=A")
	part2 := []byte("\x0110=000\x01")

	frames := fr.Feed(1, part1)
	assert.Len(t, frames, 0)

	frames = fr.Feed(1, part2)
	if assert.Len(t, frames, 1) {
		assert.Equal(t, append(append([]byte{}, part1...), part2...), frames[0])
	}
}

func TestFramerMultipleMessagesInOneRead(t *testing.T) {
	fr := newFramer()
	msg1 := []byte("8=FIX.4.2\x0135=A\x0110=000\x01")
	msg2 := []byte("8=FIX.4.2\x0135=D\x0155=AAPL\x0110=001\x01")

	frames := fr.Feed(1, append(append([]byte{}, msg1...), msg2...))
	if assert.Len(t, frames, 2) {
		assert.Equal(t, msg1, frames[0])
		assert.Equal(t, msg2, frames[1])
	}
}

func TestFramerKeepsSeparateBuffersPerConnection(t *testing.T) {
	fr := newFramer()
	fr.Feed(1, []byte("8=FIX.4.2\x0135=A"))
	fr.Feed(2, []byte("8=FIX.4.2\x0135=D\x0110=000\x01"))

	frames := fr.Feed(1, []byte("\x0110=000\x01"))
	assert.Len(t, frames, 1)
}

func TestFramerDropClearsBuffer(t *testing.T) {
	fr := newFramer()
	fr.Feed(1, []byte("8=FIX.4.2\x0135=A"))
	fr.Drop(1)
	assert.Empty(t, fr.buffers[1])
}

func TestFramerUsesBodyLengthWhenPresent(t *testing.T) {
	fr := newFramer()
	data := []byte("8=FIX.4.2\x019=35\x0135=D\x0155=AAPL\x0154=1\x0138=100\x0144=150.50\x0110=128\x01")
	frames := fr.Feed(1, data)
	if assert.Len(t, frames, 1) {
		assert.Equal(t, data, frames[0])
	}
}

// A field value could, in principle, contain the raw bytes "\x0110=" without
// that being the message's actual checksum trailer. Body-length detection
// must not be fooled by this: it has to land on the real trailer that
// follows exactly BodyLength bytes in, not the first "10=" it happens to
// find while scanning.
func TestFramerBodyLengthSkipsEmbeddedTrailerLookalike(t *testing.T) {
	fr := newFramer()
	body := []byte("58=AAA\x0110=XXXX\x01")
	data := append([]byte("8=FIX.4.2\x019=15\x01"), body...)
	data = append(data, []byte("10=001\x01")...)

	frames := fr.Feed(1, data)
	if assert.Len(t, frames, 1) {
		assert.Equal(t, data, frames[0])
	}
}
