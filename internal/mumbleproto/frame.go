package mumbleproto

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the kind (u16) plus length (u32) preamble.
const HeaderSize = 6

var (
	ErrFrameTooLarge = errors.New("mumbleproto: frame exceeds buffer ceiling")
	ErrMalformed     = errors.New("mumbleproto: malformed payload")
)

// Message is a control payload that knows its frame kind.
type Message interface {
	Kind() Kind
	Marshal() []byte
}

// EncodeFrame prepends the control header to payload.
func EncodeFrame(kind Kind, payload []byte) []byte {
	out := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(kind))
	binary.BigEndian.PutUint32(out[2:6], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out
}

// Encode frames a message.
func Encode(m Message) []byte {
	return EncodeFrame(m.Kind(), m.Marshal())
}

// FrameBuffer reassembles control frames from a byte stream.
type FrameBuffer struct {
	buf []byte
	max int
}

// NewFrameBuffer accepts frames whose header plus payload fit in max bytes.
func NewFrameBuffer(max int) *FrameBuffer {
	return &FrameBuffer{max: max}
}

func (fb *FrameBuffer) Write(p []byte) {
	fb.buf = append(fb.buf, p...)
}

// Buffered is the number of bytes waiting for a complete frame.
func (fb *FrameBuffer) Buffered() int { return len(fb.buf) }

// Next pops one complete frame. ok is false when more input is needed.
// An oversized length is reported as soon as the header is readable.
func (fb *FrameBuffer) Next() (kind Kind, payload []byte, ok bool, err error) {
	if len(fb.buf) < HeaderSize {
		return 0, nil, false, nil
	}
	size := binary.BigEndian.Uint32(fb.buf[2:6])
	if uint64(size) > uint64(fb.max-HeaderSize) {
		return 0, nil, false, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, size)
	}
	total := HeaderSize + int(size)
	if len(fb.buf) < total {
		return 0, nil, false, nil
	}
	kind = Kind(binary.BigEndian.Uint16(fb.buf[0:2]))
	payload = make([]byte, size)
	copy(payload, fb.buf[HeaderSize:total])

	rest := copy(fb.buf, fb.buf[total:])
	fb.buf = fb.buf[:rest]
	return kind, payload, true, nil
}
