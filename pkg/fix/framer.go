package fix

import (
	"bytes"
	"strconv"
)

const soh = 0x01

// framer accumulates raw bytes per client connection and extracts complete
// FIX messages. The naive "one read equals one frame" assumption breaks
// under TCP fragmentation and coalescing: a single read() can deliver half
// a message, several messages back to back, or a message split across
// reads. framer fixes this by buffering per connection and only emitting a
// frame once a complete boundary has been observed, via the `9=`
// body-length field or, when no `9=` field is buffered, the `10=NNN<SOH>`
// checksum trailer.
type framer struct {
	buffers map[int][]byte
}

func newFramer() *framer {
	return &framer{buffers: make(map[int][]byte)}
}

// Feed appends data for clientFd's connection and returns zero or more
// complete FIX message frames (each still SOH-delimited, trailing "10=" tag
// included) extracted from the accumulated buffer. Leftover partial bytes
// remain buffered for the next Feed call.
func (fr *framer) Feed(clientFd int, data []byte) [][]byte {
	buf := append(fr.buffers[clientFd], data...)

	var frames [][]byte
	for {
		frame, rest, ok := extractFrame(buf)
		if !ok {
			break
		}
		frames = append(frames, frame)
		buf = rest
	}
	fr.buffers[clientFd] = buf
	return frames
}

// Drop discards any buffered partial frame for a connection that has
// closed, preventing the framer's per-connection map from growing
// unbounded across the listener's lifetime.
func (fr *framer) Drop(clientFd int) {
	delete(fr.buffers, clientFd)
}

// extractFrame scans buf for the next complete message using either of the
// two boundary signals named in the design notes: the `9=` body-length
// field (preferred — it locates the end of the frame arithmetically rather
// than by searching the bytes, so it can't be fooled by a `10=` byte
// sequence occurring inside a field's value) or, when buf holds no `9=`
// field, a literal `10=NNN` checksum trailer search. It returns the frame
// bytes (start through and including the trailer's SOH), the remaining
// buffer after it, and whether a complete frame was found.
func extractFrame(buf []byte) (frame []byte, rest []byte, ok bool) {
	if frame, rest, ok := extractFrameByBodyLength(buf); ok {
		return frame, rest, ok
	}
	if bytes.Contains(buf, []byte{soh, '9', '='}) {
		// The body-length frame is not complete yet; a trailer search here
		// could stop at a `10=` look-alike inside a field value.
		return nil, buf, false
	}
	return extractFrameByTrailer(buf)
}

// extractFrameByBodyLength locates the `9=<BodyLength>` field and uses it to
// compute exactly where the body ends and the checksum field begins,
// per standard FIX framing (BodyLength counts every byte from just after
// the `9=...` field's SOH up to and including the SOH preceding `10=`).
func extractFrameByBodyLength(buf []byte) (frame []byte, rest []byte, ok bool) {
	tagIdx := bytes.Index(buf, []byte{soh, '9', '='})
	if tagIdx < 0 {
		return nil, buf, false
	}
	valStart := tagIdx + 1 + 2 // past the SOH and "9="
	sohAfterLen := bytes.IndexByte(buf[valStart:], soh)
	if sohAfterLen < 0 {
		return nil, buf, false
	}
	bodyLength, err := strconv.Atoi(string(buf[valStart : valStart+sohAfterLen]))
	if err != nil {
		return nil, buf, false
	}

	bodyStart := valStart + sohAfterLen + 1
	checksumStart := bodyLength + bodyStart
	if len(buf) < checksumStart+len("10=") {
		return nil, buf, false
	}
	if !bytes.HasPrefix(buf[checksumStart:], []byte("10=")) {
		return nil, buf, false
	}
	sohAfterChecksum := bytes.IndexByte(buf[checksumStart:], soh)
	if sohAfterChecksum < 0 {
		return nil, buf, false
	}
	end := checksumStart + sohAfterChecksum + 1
	return buf[:end], buf[end:], true
}

// extractFrameByTrailer is the fallback used when no `9=` body-length field
// is present: it searches directly for the `10=NNN` checksum trailer.
func extractFrameByTrailer(buf []byte) (frame []byte, rest []byte, ok bool) {
	trailerIdx := bytes.Index(buf, []byte{soh, '1', '0', '='})
	if trailerIdx < 0 {
		return nil, buf, false
	}
	// The trailer field itself runs from just after the SOH we matched
	// (at trailerIdx) to the next SOH.
	fieldStart := trailerIdx + 1
	sohAfter := bytes.IndexByte(buf[fieldStart:], soh)
	if sohAfter < 0 {
		return nil, buf, false
	}
	end := fieldStart + sohAfter + 1
	return buf[:end], buf[end:], true
}
