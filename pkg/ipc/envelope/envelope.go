// Package envelope implements the binary message format exchanged over the
// producer/consumer ring buffer between the Gateway and the Sequencer: a
// fixed 16-byte header followed by a sequence of tagged fields, each with its
// own 7-byte header.
package envelope

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// MsgType identifies the kind of domain event an envelope carries.
type MsgType uint16

const (
	MsgNone      MsgType = 0
	MsgNewOrder  MsgType = 1
	MsgCancel    MsgType = 2
	MsgTrade     MsgType = 3
	MsgBookDelta MsgType = 4
)

func (t MsgType) String() string {
	switch t {
	case MsgNewOrder:
		return "NEW_ORDER"
	case MsgCancel:
		return "CANCEL"
	case MsgTrade:
		return "TRADE"
	case MsgBookDelta:
		return "BOOK_DELTA"
	default:
		return "NONE"
	}
}

// FieldType tags the wire representation of a field's value.
type FieldType uint8

const (
	FieldTypeInt64  FieldType = 1
	FieldTypeUint64 FieldType = 2
	FieldTypeDouble FieldType = 3
	FieldTypeString FieldType = 4
	FieldTypeBytes  FieldType = 5
)

// FieldID enumerates the well-known field slots carried in envelopes built by
// the FIX dispatcher.
type FieldID uint16

const (
	FieldSymbol   FieldID = 1
	FieldSide     FieldID = 2
	FieldPrice    FieldID = 3
	FieldQty      FieldID = 4
	FieldClientID FieldID = 5
	FieldOrderID  FieldID = 6
	FieldTIF      FieldID = 7
)

const (
	msgHeaderSize   = 16
	fieldHeaderSize = 7
)

var (
	// ErrTruncated is returned when a buffer is too short to hold a
	// declared structure.
	ErrTruncated = errors.New("envelope: truncated buffer")
	// ErrFieldCount is returned when payload bytes remain after the
	// declared field_count fields have been read. A field_count larger
	// than the payload can hold yields ErrTruncated instead.
	ErrFieldCount = errors.New("envelope: field count mismatch")
	// ErrFieldNotFound is returned by typed accessors when the
	// requested field id is absent.
	ErrFieldNotFound = errors.New("envelope: field not found")
	// ErrFieldType is returned by typed accessors when the field is
	// present but tagged with a different type.
	ErrFieldType = errors.New("envelope: field type mismatch")
)

// Field is a single tagged value inside a Message.
type Field struct {
	ID    FieldID
	Type  FieldType
	I64   int64
	U64   uint64
	F64   float64
	Str   string
	Bytes []byte
}

func fieldInt64(id FieldID, v int64) Field {
	return Field{ID: id, Type: FieldTypeInt64, I64: v}
}

func fieldUint64(id FieldID, v uint64) Field {
	return Field{ID: id, Type: FieldTypeUint64, U64: v}
}

func fieldDouble(id FieldID, v float64) Field {
	return Field{ID: id, Type: FieldTypeDouble, F64: v}
}

func fieldString(id FieldID, v string) Field {
	return Field{ID: id, Type: FieldTypeString, Str: v}
}

func fieldBytes(id FieldID, v []byte) Field {
	return Field{ID: id, Type: FieldTypeBytes, Bytes: v}
}

// rawValue returns the wire bytes for the field's value, independent of
// type.
func (f Field) rawValue() []byte {
	switch f.Type {
	case FieldTypeInt64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(f.I64))
		return b
	case FieldTypeUint64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, f.U64)
		return b
	case FieldTypeDouble:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, math.Float64bits(f.F64))
		return b
	case FieldTypeString:
		return []byte(f.Str)
	case FieldTypeBytes:
		return f.Bytes
	default:
		return nil
	}
}

// Message is the in-memory representation of a decoded or not-yet-finalized
// IpcMessage. Build one with NewMessage, append fields with the Add* helpers,
// then call Finalize before Encode.
type Message struct {
	Type       MsgType
	SequenceNo uint64
	fields     []Field
	finalized  bool
}

// NewMessage starts a new envelope of the given type.
func NewMessage(t MsgType) *Message {
	return &Message{Type: t}
}

func (m *Message) mustNotFinalized() {
	if m.finalized {
		panic("envelope: message already finalized")
	}
}

func (m *Message) AddInt64(id FieldID, v int64) *Message {
	m.mustNotFinalized()
	m.fields = append(m.fields, fieldInt64(id, v))
	return m
}

func (m *Message) AddUint64(id FieldID, v uint64) *Message {
	m.mustNotFinalized()
	m.fields = append(m.fields, fieldUint64(id, v))
	return m
}

func (m *Message) AddDouble(id FieldID, v float64) *Message {
	m.mustNotFinalized()
	m.fields = append(m.fields, fieldDouble(id, v))
	return m
}

func (m *Message) AddString(id FieldID, v string) *Message {
	m.mustNotFinalized()
	m.fields = append(m.fields, fieldString(id, v))
	return m
}

func (m *Message) AddBytes(id FieldID, v []byte) *Message {
	m.mustNotFinalized()
	m.fields = append(m.fields, fieldBytes(id, v))
	return m
}

// Finalize locks the field list and assigns the sequence number that will be
// carried in the header. Messages must be finalized before Encode.
func (m *Message) Finalize(sequenceNo uint64) *Message {
	m.SequenceNo = sequenceNo
	m.finalized = true
	return m
}

// payloadSize computes the total byte length of the field section.
func (m *Message) payloadSize() uint32 {
	var n uint32
	for _, f := range m.fields {
		n += fieldHeaderSize + uint32(len(f.rawValue()))
	}
	return n
}

// Encode serializes a finalized message into its wire form: a 16-byte
// MsgHeader followed by each field's 7-byte FieldHeader and value.
func (m *Message) Encode() ([]byte, error) {
	if !m.finalized {
		return nil, errors.New("envelope: cannot encode unfinalized message")
	}
	payload := m.payloadSize()
	buf := make([]byte, msgHeaderSize+payload)

	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.Type))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(m.fields)))
	binary.LittleEndian.PutUint32(buf[4:8], payload)
	binary.LittleEndian.PutUint64(buf[8:16], m.SequenceNo)

	off := msgHeaderSize
	for _, f := range m.fields {
		val := f.rawValue()
		binary.LittleEndian.PutUint16(buf[off:off+2], uint16(f.ID))
		buf[off+2] = byte(f.Type)
		binary.LittleEndian.PutUint32(buf[off+3:off+7], uint32(len(val)))
		off += fieldHeaderSize
		copy(buf[off:off+len(val)], val)
		off += len(val)
	}
	return buf, nil
}

// Decode parses a wire-format buffer into a Message, validating that the
// declared field count and payload length are internally consistent before
// trusting any field contents (spec: "decode's two-stage size check").
func Decode(buf []byte) (*Message, error) {
	if len(buf) < msgHeaderSize {
		return nil, ErrTruncated
	}
	msgType := MsgType(binary.LittleEndian.Uint16(buf[0:2]))
	fieldCount := binary.LittleEndian.Uint16(buf[2:4])
	payloadLen := binary.LittleEndian.Uint32(buf[4:8])
	seq := binary.LittleEndian.Uint64(buf[8:16])

	if uint32(len(buf)-msgHeaderSize) < payloadLen {
		return nil, ErrTruncated
	}
	payload := buf[msgHeaderSize : msgHeaderSize+int(payloadLen)]

	fields := make([]Field, 0, fieldCount)
	off := 0
	for i := uint16(0); i < fieldCount; i++ {
		if len(payload)-off < fieldHeaderSize {
			return nil, ErrTruncated
		}
		id := FieldID(binary.LittleEndian.Uint16(payload[off : off+2]))
		ftype := FieldType(payload[off+2])
		vlen := binary.LittleEndian.Uint32(payload[off+3 : off+7])
		off += fieldHeaderSize
		if uint32(len(payload)-off) < vlen {
			return nil, ErrTruncated
		}
		val := payload[off : off+int(vlen)]
		off += int(vlen)

		f := Field{ID: id, Type: ftype}
		switch ftype {
		case FieldTypeInt64:
			if vlen != 8 {
				return nil, fmt.Errorf("envelope: field %d: %w", id, ErrFieldType)
			}
			f.I64 = int64(binary.LittleEndian.Uint64(val))
		case FieldTypeUint64:
			if vlen != 8 {
				return nil, fmt.Errorf("envelope: field %d: %w", id, ErrFieldType)
			}
			f.U64 = binary.LittleEndian.Uint64(val)
		case FieldTypeDouble:
			if vlen != 8 {
				return nil, fmt.Errorf("envelope: field %d: %w", id, ErrFieldType)
			}
			f.F64 = math.Float64frombits(binary.LittleEndian.Uint64(val))
		case FieldTypeString:
			f.Str = string(val)
		case FieldTypeBytes:
			f.Bytes = append([]byte(nil), val...)
		default:
			return nil, fmt.Errorf("envelope: unknown field type %d", ftype)
		}
		fields = append(fields, f)
	}
	if off != len(payload) {
		return nil, ErrFieldCount
	}

	return &Message{Type: msgType, SequenceNo: seq, fields: fields, finalized: true}, nil
}

// findField performs the linear scan the wire format requires (no index is
// maintained; envelopes carry at most a handful of fields).
func (m *Message) findField(id FieldID) (Field, bool) {
	for _, f := range m.fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

func (m *Message) Int64(id FieldID) (int64, error) {
	f, ok := m.findField(id)
	if !ok {
		return 0, ErrFieldNotFound
	}
	if f.Type != FieldTypeInt64 {
		return 0, ErrFieldType
	}
	return f.I64, nil
}

func (m *Message) Uint64(id FieldID) (uint64, error) {
	f, ok := m.findField(id)
	if !ok {
		return 0, ErrFieldNotFound
	}
	if f.Type != FieldTypeUint64 {
		return 0, ErrFieldType
	}
	return f.U64, nil
}

func (m *Message) Float64(id FieldID) (float64, error) {
	f, ok := m.findField(id)
	if !ok {
		return 0, ErrFieldNotFound
	}
	if f.Type != FieldTypeDouble {
		return 0, ErrFieldType
	}
	return f.F64, nil
}

func (m *Message) String(id FieldID) (string, error) {
	f, ok := m.findField(id)
	if !ok {
		return "", ErrFieldNotFound
	}
	if f.Type != FieldTypeString {
		return "", ErrFieldType
	}
	return f.Str, nil
}

func (m *Message) Bytes(id FieldID) ([]byte, error) {
	f, ok := m.findField(id)
	if !ok {
		return nil, ErrFieldNotFound
	}
	if f.Type != FieldTypeBytes {
		return nil, ErrFieldType
	}
	return f.Bytes, nil
}

// Fields returns the decoded field list for debugging/inspection.
func (m *Message) Fields() []Field {
	return m.fields
}
