package ring

import (
	"encoding/binary"
	"time"

	"github.com/luxfi/log"
)

// Producer owns the writer side of a named ring buffer. Exactly one
// Producer may be attached to a given name at a time, enforced by an
// advisory flock acquired at construction.
type Producer struct {
	name    string
	seg     *segment
	lock    *fileLock
	logger  log.Logger
	seqNo   uint64
	uuidStr string
}

// NewProducer creates (or recreates) the shared-memory segment for name,
// acquiring the producer lock first so at most one producer process can own
// the segment at a time.
func NewProducer(name string, logger log.Logger) (*Producer, error) {
	lock, err := acquireLock(name, roleProducer)
	if err != nil {
		return nil, err
	}
	seg, uuidStr, err := createSegment(name)
	if err != nil {
		lock.release()
		return nil, err
	}
	logger.Info("ring producer attached", "segment", name, "session_uuid", uuidStr)
	return &Producer{name: name, seg: seg, lock: lock, logger: logger, uuidStr: uuidStr}, nil
}

// Close releases the shared-memory mapping and the producer lock. The
// segment file itself is left in place for a subsequent producer to
// recreate; the lock file is never unlinked.
func (p *Producer) Close() error {
	err := p.seg.close()
	if lerr := p.lock.release(); err == nil {
		err = lerr
	}
	return err
}

// TryWrite writes an already-encoded envelope into the next free slot
// without blocking, returning ErrFull if the ring buffer has no room and
// ErrMessageTooLarge if the payload exceeds maxMsgSize.
func (p *Producer) TryWrite(payload []byte) error {
	if len(payload) > maxMsgSize {
		return ErrMessageTooLarge
	}

	writeIdx := p.seg.loadWriteIdx()
	readIdx := p.seg.loadReadIdx()
	if writeIdx-readIdx >= bufferCapacity {
		return ErrFull
	}

	off := p.seg.slotOffset(writeIdx)
	slot := p.seg.data[off : off+slotStride]
	binary.LittleEndian.PutUint32(slot[:slotHeaderLen], uint32(len(payload)))
	copy(slot[slotHeaderLen:], payload)

	p.seg.storeWriteIdx(writeIdx + 1)
	p.seqNo++
	return nil
}

// NextSequenceNo returns a producer-local monotonically increasing counter
// suitable for stamping envelopes before encoding (callers typically call
// this, then Message.Finalize(seq), then Encode, then TryWrite).
func (p *Producer) NextSequenceNo() uint64 {
	p.seqNo++
	return p.seqNo
}

// Consumer owns the reader side of a named ring buffer, attaching to a
// segment a Producer has already created.
type Consumer struct {
	name   string
	seg    *segment
	lock   *fileLock
	logger log.Logger
}

// NewConsumer attaches to an existing segment for name, acquiring the
// consumer lock and validating the segment's session UUID against the
// side-channel file written by the producer (ErrStaleSession on mismatch).
func NewConsumer(name string, logger log.Logger) (*Consumer, error) {
	lock, err := acquireLock(name, roleConsumer)
	if err != nil {
		return nil, err
	}
	seg, err := openSegment(name)
	if err != nil {
		lock.release()
		return nil, err
	}
	logger.Info("ring consumer attached", "segment", name)
	return &Consumer{name: name, seg: seg, lock: lock, logger: logger}, nil
}

// Close releases the mapping and the consumer lock.
func (c *Consumer) Close() error {
	err := c.seg.close()
	if lerr := c.lock.release(); err == nil {
		err = lerr
	}
	return err
}

// TryRead copies the next pending message's payload out of the ring buffer
// without blocking, returning ErrEmpty if none is available.
func (c *Consumer) TryRead() ([]byte, error) {
	readIdx := c.seg.loadReadIdx()
	writeIdx := c.seg.loadWriteIdx()
	if readIdx == writeIdx {
		return nil, ErrEmpty
	}

	off := c.seg.slotOffset(readIdx)
	slot := c.seg.data[off : off+slotStride]
	n := binary.LittleEndian.Uint32(slot[:slotHeaderLen])
	payload := make([]byte, n)
	copy(payload, slot[slotHeaderLen:slotHeaderLen+int(n)])

	c.seg.storeReadIdx(readIdx + 1)
	return payload, nil
}

// Read blocks, polling at the given interval, until a message is available
// or ctx-like cancellation is requested via the stop function returning
// true. A zero interval defaults to 1ms, matching the original consumer's
// spin-with-sleep loop.
func (c *Consumer) Read(pollInterval time.Duration, stopped func() bool) ([]byte, error) {
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	for {
		payload, err := c.TryRead()
		if err == nil {
			return payload, nil
		}
		if err != ErrEmpty {
			return nil, err
		}
		if stopped != nil && stopped() {
			return nil, ErrEmpty
		}
		time.Sleep(pollInterval)
	}
}
