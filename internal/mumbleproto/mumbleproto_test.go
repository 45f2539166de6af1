package mumbleproto

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameBufferReassembly(t *testing.T) {
	fb := NewFrameBuffer(8192)

	a := EncodeFrame(KindPing, []byte{1, 2, 3})
	b := EncodeFrame(KindUDPTunnel, []byte{9})
	stream := append(append([]byte{}, a...), b...)

	fb.Write(stream[:4])
	_, _, ok, err := fb.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	fb.Write(stream[4:])
	kind, payload, ok, err := fb.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindPing, kind)
	assert.Equal(t, []byte{1, 2, 3}, payload)

	kind, payload, ok, err = fb.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindUDPTunnel, kind)
	assert.Equal(t, []byte{9}, payload)

	_, _, ok, _ = fb.Next()
	assert.False(t, ok)
	assert.Zero(t, fb.Buffered())
}

func TestFrameBufferOversized(t *testing.T) {
	fb := NewFrameBuffer(64)
	hdr := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(hdr, uint16(KindUserState))
	binary.BigEndian.PutUint32(hdr[2:], 59)
	fb.Write(hdr)

	_, _, ok, err := fb.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	exact := NewFrameBuffer(64)
	exact.Write(EncodeFrame(KindUserState, make([]byte, 58)))
	_, payload, ok, err := exact.Next()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, payload, 58)
}

func TestKnownEncoding(t *testing.T) {
	assert.Equal(t, []byte{0x08, 0x05}, (&ChannelRemove{ChannelID: 5}).Marshal())

	v := (&Version{Version: ProtocolVersion}).Marshal()
	assert.Equal(t, []byte{0x08, 0x84, 0x84, 0x04}, v[:4])
	assert.Equal(t, "Kind(99)", Kind(99).String())
	assert.Equal(t, "UserState", KindUserState.String())
}

func TestUserStatePresence(t *testing.T) {
	in := &UserState{
		Session:             Ptr(uint32(3)),
		ChannelID:           Ptr(uint32(0)),
		SelfMute:            Ptr(false),
		PluginContext:       []byte{},
		ListeningChannelAdd: []uint32{1, 2},
	}
	var out UserState
	require.NoError(t, out.Unmarshal(in.Marshal()))

	require.NotNil(t, out.Session)
	assert.Equal(t, uint32(3), *out.Session)
	require.NotNil(t, out.ChannelID)
	assert.Zero(t, *out.ChannelID)
	require.NotNil(t, out.SelfMute)
	assert.False(t, *out.SelfMute)
	assert.NotNil(t, out.PluginContext)
	assert.Nil(t, out.Mute)
	assert.Nil(t, out.Texture)
	assert.Equal(t, []uint32{1, 2}, out.ListeningChannelAdd)
}

func TestPackedRepeatedAccepted(t *testing.T) {
	// field 2 (session), wire type 2, packed [7, 300]
	raw := []byte{0x12, 0x03, 0x07, 0xAC, 0x02, 0x2A, 0x02, 'h', 'i'}
	var m TextMessage
	require.NoError(t, m.Unmarshal(raw))
	assert.Equal(t, []uint32{7, 300}, m.Sessions)
	assert.Equal(t, "hi", m.Message)
}

func TestNestedMessages(t *testing.T) {
	vt := &VoiceTarget{ID: 4, Targets: []VoiceTargetEntry{
		{ChannelID: Ptr(uint32(2)), Links: true, Children: true},
		{Sessions: []uint32{5, 6}},
	}}
	var got VoiceTarget
	require.NoError(t, got.Unmarshal(vt.Marshal()))
	assert.Equal(t, *vt, got)

	bl := &BanList{Bans: []BanEntry{{Address: []byte{10, 0, 0, 1}, Mask: 32, Name: "bob", Reason: "spam", Duration: 60}}}
	var gotBans BanList
	require.NoError(t, gotBans.Unmarshal(bl.Marshal()))
	assert.Equal(t, bl.Bans[0].Name, gotBans.Bans[0].Name)
	assert.Equal(t, bl.Bans[0].Address, gotBans.Bans[0].Address)
	assert.False(t, gotBans.Query)
}

func TestMalformedPayload(t *testing.T) {
	var m Authenticate
	err := m.Unmarshal([]byte{0x0A, 0x10, 'a'})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVarint(t *testing.T) {
	cases := []struct {
		v    uint64
		size int
	}{
		{0, 1}, {0x7F, 1}, {0x80, 2}, {0x3FFF, 2}, {0x4000, 3},
		{0x1FFFFF, 3}, {0x200000, 4}, {0xFFFFFFF, 4}, {0x10000000, 5},
		{0xFFFFFFFF, 5}, {0x100000000, 9},
	}
	for _, c := range cases {
		b := AppendVarint(nil, c.v)
		assert.Len(t, b, c.size, "%#x", c.v)
		got, n, err := ReadVarint(b)
		require.NoError(t, err)
		assert.Equal(t, c.v, got)
		assert.Equal(t, c.size, n)
	}

	got, n, err := ReadVarint([]byte{0xFD})
	require.NoError(t, err)
	assert.Equal(t, ^uint64(1), got)
	assert.Equal(t, 1, n)

	got, n, err = ReadVarint([]byte{0xF8, 0x05})
	require.NoError(t, err)
	assert.Equal(t, ^uint64(5), got)
	assert.Equal(t, 2, n)

	_, _, err = ReadVarint([]byte{0xC0, 0x01})
	assert.ErrorIs(t, err, ErrShortVarint)
}

func TestParseOpusWithTrailer(t *testing.T) {
	data := []byte{byte(VoiceOpus) << 5}
	data = AppendVarint(data, 77) // sequence
	data = AppendVarint(data, 3)  // opus frame size
	data = append(data, 0xA, 0xB, 0xC)
	data = append(data, 1, 2, 3, 4, 5, 6) // positional trailer

	p, err := ParseVoicePacket(data)
	require.NoError(t, err)
	assert.Equal(t, VoiceOpus, p.Type)
	assert.Equal(t, TargetNormal, p.Target)
	assert.Equal(t, 6, p.PosLen)

	full := p.Relay(FlagListen, 300, true)
	stripped := p.Relay(FlagListen, 300, false)
	assert.Equal(t, byte(VoiceOpus)<<5|FlagListen, full[0])
	assert.Equal(t, len(full)-6, len(stripped))

	sender, n, err := ReadVarint(full[1:])
	require.NoError(t, err)
	assert.Equal(t, uint64(300), sender)
	assert.Equal(t, data[1:], full[1+n:])
}

func TestParseCELTFrames(t *testing.T) {
	data := []byte{byte(VoiceCELTAlpha)<<5 | 4}
	data = AppendVarint(data, 1)
	data = append(data, 0x82, 0xAA, 0xBB) // continued frame of 2
	data = append(data, 0x01, 0xCC)       // last frame of 1
	data = append(data, 9, 9)

	p, err := ParseVoicePacket(data)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), p.Target)
	assert.Equal(t, 2, p.PosLen)

	_, err = ParseVoicePacket(nil)
	assert.ErrorIs(t, err, ErrEmptyVoice)
}

func TestPingReply(t *testing.T) {
	req := []byte{0, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8}
	require.True(t, IsPing(req))
	assert.False(t, IsPing(append([]byte{1}, req[1:]...)))

	reply := PingReply(req, 3, 32, 48000)
	require.Len(t, reply, PingReplySize)
	assert.Equal(t, ProtocolVersion, binary.BigEndian.Uint32(reply[0:4]))
	assert.Equal(t, req[4:12], reply[4:12])
	assert.Equal(t, uint32(3), binary.BigEndian.Uint32(reply[12:16]))
	assert.Equal(t, uint32(32), binary.BigEndian.Uint32(reply[16:20]))
	assert.Equal(t, uint32(48000), binary.BigEndian.Uint32(reply[20:24]))
}
