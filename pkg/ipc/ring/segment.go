// Package ring implements the shared-memory single-producer/single-consumer
// ring buffer used to carry IpcMessage envelopes from the Gateway to the
// Sequencer, plus the advisory-lock "Highlander rule" that guarantees each
// role has at most one live process attached to a named segment.
package ring

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	// ShmBasePath mirrors the original's /dev/shm/ convention for
	// POSIX shared-memory-backed segments.
	ShmBasePath = "/dev/shm/"
	// LockBasePath mirrors the original's /tmp/ convention for the
	// advisory lock files.
	LockBasePath = "/tmp/"

	magic          = "IPC_V1_MAGIC"
	cacheLineSize  = 64
	bufferCapacity = 1024
	maxMsgSize     = 4096
	uuidLength     = 36

	// Header layout, cache-line separated to avoid false sharing between
	// the producer's write_idx and the consumer's read_idx.
	offMagic      = 0
	offUUID       = offMagic + 16 // room for the magic plus padding
	offWriteIdx   = cacheLineSize
	offReadIdx    = cacheLineSize * 2
	headerSize    = cacheLineSize * 3
	slotHeaderLen = 4 // per-slot length prefix
	slotStride    = slotHeaderLen + maxMsgSize
	segmentSize   = headerSize + bufferCapacity*slotStride
)

var (
	// ErrStaleSession is returned when a consumer attaches to a segment
	// whose session UUID does not match the producer's side-channel
	// file, meaning a previous consumer generation's process is stale
	// or the producer has since been restarted.
	ErrStaleSession = errors.New("ring: stale session, segment UUID does not match producer record")
	// ErrBadMagic is returned when a segment's header does not carry
	// the expected signature, meaning it was never initialized by a
	// Producer of this protocol version.
	ErrBadMagic = errors.New("ring: bad segment magic")
	// ErrFull is returned by a non-blocking producer write when the
	// ring buffer has no free slot.
	ErrFull = errors.New("ring: buffer full")
	// ErrEmpty is returned by a non-blocking consumer read when the
	// ring buffer has no pending message.
	ErrEmpty = errors.New("ring: buffer empty")
	// ErrMessageTooLarge is returned when an encoded envelope exceeds
	// maxMsgSize.
	ErrMessageTooLarge = errors.New("ring: message exceeds maximum slot size")
)

// segment is the mmap'd shared-memory region backing a ring buffer.
type segment struct {
	name string
	file *os.File
	data []byte
}

func segmentPath(name string) string {
	return ShmBasePath + name
}

func uuidFilePath(name string) string {
	return LockBasePath + name + ".uuid"
}

// createSegment unlinks any stale segment of the same name, then creates and
// maps a fresh one, writing the magic signature and a new session UUID into
// its header and the side-channel UUID file.
func createSegment(name string) (*segment, string, error) {
	path := segmentPath(name)
	_ = os.Remove(path) // ignore ENOENT: matches shm_unlink-then-create semantics

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, "", fmt.Errorf("ring: create segment %s: %w", name, err)
	}
	if err := f.Truncate(int64(segmentSize)); err != nil {
		f.Close()
		return nil, "", fmt.Errorf("ring: truncate segment %s: %w", name, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, segmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, "", fmt.Errorf("ring: mmap segment %s: %w", name, err)
	}

	copy(data[offMagic:], magic)
	sessionUUID := newSessionUUID()
	copy(data[offUUID:offUUID+uuidLength], sessionUUID)
	binary.LittleEndian.PutUint32(data[offWriteIdx:], 0)
	binary.LittleEndian.PutUint32(data[offReadIdx:], 0)

	if err := os.WriteFile(uuidFilePath(name), []byte(sessionUUID), 0644); err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, "", fmt.Errorf("ring: write uuid file for %s: %w", name, err)
	}

	return &segment{name: name, file: f, data: data}, sessionUUID, nil
}

// openSegment attaches to an existing segment created by a Producer, after
// verifying the magic signature and the session UUID recorded in the
// side-channel file (spec's stale-session check; see SPEC_FULL §4.A).
func openSegment(name string) (*segment, error) {
	path := segmentPath(name)
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("ring: open segment %s: %w", name, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, segmentSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("ring: mmap segment %s: %w", name, err)
	}

	if string(data[offMagic:offMagic+len(magic)]) != magic {
		unix.Munmap(data)
		f.Close()
		return nil, ErrBadMagic
	}

	headerUUID := string(data[offUUID : offUUID+uuidLength])
	fileUUID, err := os.ReadFile(uuidFilePath(name))
	if err != nil {
		unix.Munmap(data)
		f.Close()
		return nil, fmt.Errorf("ring: read uuid file for %s: %w", name, err)
	}
	if string(fileUUID) != headerUUID {
		unix.Munmap(data)
		f.Close()
		return nil, ErrStaleSession
	}

	return &segment{name: name, file: f, data: data}, nil
}

func (s *segment) close() error {
	err := unix.Munmap(s.data)
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *segment) loadWriteIdx() uint32   { return loadAcquire32(s.data[offWriteIdx:]) }
func (s *segment) loadReadIdx() uint32    { return loadAcquire32(s.data[offReadIdx:]) }
func (s *segment) storeWriteIdx(v uint32) { storeRelease32(s.data[offWriteIdx:], v) }
func (s *segment) storeReadIdx(v uint32)  { storeRelease32(s.data[offReadIdx:], v) }

func (s *segment) slotOffset(idx uint32) int {
	return headerSize + int(idx%bufferCapacity)*slotStride
}
