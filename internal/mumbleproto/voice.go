package mumbleproto

import (
	"encoding/binary"
	"errors"
)

// VoiceType is the codec field in the top three bits of a voice header.
type VoiceType uint8

const (
	VoiceCELTAlpha VoiceType = iota
	VoicePing
	VoiceSpeex
	VoiceCELTBeta
	VoiceOpus
)

const (
	TargetNormal   uint8 = 0
	TargetLoopback uint8 = 0x1F
)

// Speech flags replace the target bits on packets relayed to recipients.
const (
	FlagNormal         uint8 = 0
	FlagWhisperChannel uint8 = 1
	FlagWhisperDirect  uint8 = 2
	FlagListen         uint8 = 3
)

const (
	// MaxDatagramSize bounds both inbound and relayed voice datagrams.
	MaxDatagramSize = 1024

	opusSizeMask = 0x1FFF
)

var ErrEmptyVoice = errors.New("mumbleproto: empty voice packet")

func SplitHeader(b byte) (VoiceType, uint8) {
	return VoiceType(b >> 5 & 0x07), b & 0x1F
}

// VoicePacket is a decrypted voice payload as sent by a client:
// header byte, sequence varint, codec frames and an optional positional trailer.
type VoicePacket struct {
	Type   VoiceType
	Target uint8
	// Body is everything after the header byte.
	Body []byte
	// PosLen is the size of the positional trailer at the end of Body.
	PosLen int
}

// ParseVoicePacket locates the positional trailer. Truncated frame data is
// tolerated and yields PosLen 0.
func ParseVoicePacket(data []byte) (VoicePacket, error) {
	if len(data) == 0 {
		return VoicePacket{}, ErrEmptyVoice
	}
	typ, target := SplitHeader(data[0])
	p := VoicePacket{Type: typ, Target: target, Body: data[1:]}

	off := 0
	_, n, err := ReadVarint(p.Body)
	if err != nil {
		return p, nil
	}
	off += n

	if typ == VoiceOpus {
		size, n, err := ReadVarint(p.Body[off:])
		if err != nil {
			return p, nil
		}
		off += n + int(size&opusSizeMask)
	} else {
		for off < len(p.Body) {
			hdr := p.Body[off]
			off += 1 + int(hdr&0x7F)
			if hdr&0x80 == 0 {
				break
			}
		}
	}
	if off < len(p.Body) {
		p.PosLen = len(p.Body) - off
	}
	return p, nil
}

// Relay builds the packet delivered to a recipient:
// [type|flag][varint sender][body], optionally without the positional trailer.
func (p VoicePacket) Relay(flag uint8, sender uint32, positional bool) []byte {
	body := p.Body
	if !positional {
		body = body[:len(body)-p.PosLen]
	}
	out := make([]byte, 0, 1+5+len(body))
	out = append(out, byte(p.Type)<<5|flag&0x1F)
	out = AppendVarint(out, uint64(sender))
	return append(out, body...)
}

const (
	PingRequestSize = 12
	PingReplySize   = 24
)

// IsPing reports whether a raw datagram is an unencrypted server ping.
func IsPing(b []byte) bool {
	return len(b) == PingRequestSize && binary.BigEndian.Uint32(b[0:4]) == 0
}

// PingReply echoes the 8 byte timestamp and reports server capacity.
func PingReply(req []byte, clients, maxClients, maxBandwidth uint32) []byte {
	out := make([]byte, PingReplySize)
	binary.BigEndian.PutUint32(out[0:4], ProtocolVersion)
	copy(out[4:12], req[4:12])
	binary.BigEndian.PutUint32(out[12:16], clients)
	binary.BigEndian.PutUint32(out[16:20], maxClients)
	binary.BigEndian.PutUint32(out[20:24], maxBandwidth)
	return out
}
