package mumbleproto

import (
	"encoding/binary"
	"errors"
)

var ErrShortVarint = errors.New("mumbleproto: truncated varint")

// AppendVarint writes v in the voice-packet varint form (not protobuf's):
// the count of leading one bits in the first byte selects the length.
func AppendVarint(b []byte, v uint64) []byte {
	switch {
	case v < 0x80:
		return append(b, byte(v))
	case v < 0x4000:
		return append(b, byte(v>>8)|0x80, byte(v))
	case v < 0x200000:
		return append(b, byte(v>>16)|0xC0, byte(v>>8), byte(v))
	case v < 0x10000000:
		return append(b, byte(v>>24)|0xE0, byte(v>>16), byte(v>>8), byte(v))
	case v < 0x100000000:
		b = append(b, 0xF0)
		return binary.BigEndian.AppendUint32(b, uint32(v))
	default:
		b = append(b, 0xF4)
		return binary.BigEndian.AppendUint64(b, v)
	}
}

// ReadVarint decodes one varint and returns it with the number of bytes used.
// Negative forms decode to their two's complement bit pattern.
func ReadVarint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrShortVarint
	}
	v := b[0]
	need := func(n int) error {
		if len(b) < n {
			return ErrShortVarint
		}
		return nil
	}

	switch {
	case v&0x80 == 0:
		return uint64(v & 0x7F), 1, nil
	case v&0xC0 == 0x80:
		if err := need(2); err != nil {
			return 0, 0, err
		}
		return uint64(v&0x3F)<<8 | uint64(b[1]), 2, nil
	case v&0xE0 == 0xC0:
		if err := need(3); err != nil {
			return 0, 0, err
		}
		return uint64(v&0x1F)<<16 | uint64(b[1])<<8 | uint64(b[2]), 3, nil
	case v&0xF0 == 0xE0:
		if err := need(4); err != nil {
			return 0, 0, err
		}
		return uint64(v&0x0F)<<24 | uint64(b[1])<<16 | uint64(b[2])<<8 | uint64(b[3]), 4, nil
	}

	switch v & 0xFC {
	case 0xF0:
		if err := need(5); err != nil {
			return 0, 0, err
		}
		return uint64(binary.BigEndian.Uint32(b[1:5])), 5, nil
	case 0xF4:
		if err := need(9); err != nil {
			return 0, 0, err
		}
		return binary.BigEndian.Uint64(b[1:9]), 9, nil
	case 0xF8:
		inner, n, err := ReadVarint(b[1:])
		if err != nil {
			return 0, 0, err
		}
		return ^inner, n + 1, nil
	default: // 0xFC
		return ^uint64(v & 0x03), 1, nil
	}
}
