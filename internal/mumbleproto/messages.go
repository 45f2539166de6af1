package mumbleproto

import "fmt"

// Optional proto2 fields are pointers (or nil slices for bytes) so presence
// survives a round trip.

type Version struct {
	Version   uint32
	Release   string
	OS        string
	OSVersion string
}

func (*Version) Kind() Kind { return KindVersion }

func (m *Version) Marshal() []byte {
	var e encoder
	e.uint32(1, m.Version)
	e.string(2, m.Release)
	e.string(3, m.OS)
	e.string(4, m.OSVersion)
	return e.b
}

func (m *Version) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Version = f.uint32()
		case 2:
			m.Release = f.string()
		case 3:
			m.OS = f.string()
		case 4:
			m.OSVersion = f.string()
		}
		return nil
	})
}

type Authenticate struct {
	Username     string
	Password     string
	Tokens       []string
	CeltVersions []int32
	Opus         bool
}

func (*Authenticate) Kind() Kind { return KindAuthenticate }

func (m *Authenticate) Marshal() []byte {
	var e encoder
	e.string(1, m.Username)
	if m.Password != "" {
		e.string(2, m.Password)
	}
	for _, t := range m.Tokens {
		e.string(3, t)
	}
	e.int32s(4, m.CeltVersions)
	e.bool(5, m.Opus)
	return e.b
}

func (m *Authenticate) Unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Username = f.string()
		case 2:
			m.Password = f.string()
		case 3:
			m.Tokens = append(m.Tokens, f.string())
		case 4:
			m.CeltVersions, err = f.appendInt32s(m.CeltVersions)
		case 5:
			m.Opus = f.bool()
		}
		return err
	})
}

type Ping struct {
	Timestamp  uint64
	Good       *uint32
	Late       *uint32
	Lost       *uint32
	Resync     *uint32
	UDPPackets uint32
	TCPPackets uint32
	UDPPingAvg float32
	UDPPingVar float32
	TCPPingAvg float32
	TCPPingVar float32
}

func (*Ping) Kind() Kind { return KindPing }

func (m *Ping) Marshal() []byte {
	var e encoder
	e.varint(1, m.Timestamp)
	e.optUint32(2, m.Good)
	e.optUint32(3, m.Late)
	e.optUint32(4, m.Lost)
	e.optUint32(5, m.Resync)
	if m.UDPPackets != 0 || m.TCPPackets != 0 {
		e.uint32(6, m.UDPPackets)
		e.uint32(7, m.TCPPackets)
		e.float(8, m.UDPPingAvg)
		e.float(9, m.UDPPingVar)
		e.float(10, m.TCPPingAvg)
		e.float(11, m.TCPPingVar)
	}
	return e.b
}

func (m *Ping) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Timestamp = f.uint64()
		case 2:
			m.Good = f.uint32p()
		case 3:
			m.Late = f.uint32p()
		case 4:
			m.Lost = f.uint32p()
		case 5:
			m.Resync = f.uint32p()
		case 6:
			m.UDPPackets = f.uint32()
		case 7:
			m.TCPPackets = f.uint32()
		case 8:
			m.UDPPingAvg = f.float()
		case 9:
			m.UDPPingVar = f.float()
		case 10:
			m.TCPPingAvg = f.float()
		case 11:
			m.TCPPingVar = f.float()
		}
		return nil
	})
}

type Reject struct {
	Type   RejectType
	Reason string
}

func (*Reject) Kind() Kind { return KindReject }

func (m *Reject) Marshal() []byte {
	var e encoder
	e.uint32(1, uint32(m.Type))
	e.string(2, m.Reason)
	return e.b
}

func (m *Reject) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Type = RejectType(f.uint32())
		case 2:
			m.Reason = f.string()
		}
		return nil
	})
}

type ServerSync struct {
	Session      uint32
	MaxBandwidth uint32
	WelcomeText  string
	Permissions  uint64
}

func (*ServerSync) Kind() Kind { return KindServerSync }

func (m *ServerSync) Marshal() []byte {
	var e encoder
	e.uint32(1, m.Session)
	e.uint32(2, m.MaxBandwidth)
	e.string(3, m.WelcomeText)
	if m.Permissions != 0 {
		e.varint(4, m.Permissions)
	}
	return e.b
}

func (m *ServerSync) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Session = f.uint32()
		case 2:
			m.MaxBandwidth = f.uint32()
		case 3:
			m.WelcomeText = f.string()
		case 4:
			m.Permissions = f.uint64()
		}
		return nil
	})
}

type ChannelRemove struct {
	ChannelID uint32
}

func (*ChannelRemove) Kind() Kind { return KindChannelRemove }

func (m *ChannelRemove) Marshal() []byte {
	var e encoder
	e.uint32(1, m.ChannelID)
	return e.b
}

func (m *ChannelRemove) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		if f.num == 1 {
			m.ChannelID = f.uint32()
		}
		return nil
	})
}

type ChannelState struct {
	ChannelID   *uint32
	Parent      *uint32
	Name        *string
	Links       []uint32
	Description *string
	LinksAdd    []uint32
	LinksRemove []uint32
	Temporary   *bool
	Position    *int32
}

func (*ChannelState) Kind() Kind { return KindChannelState }

func (m *ChannelState) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.ChannelID)
	e.optUint32(2, m.Parent)
	e.optString(3, m.Name)
	e.uint32s(4, m.Links)
	e.optString(5, m.Description)
	e.uint32s(6, m.LinksAdd)
	e.uint32s(7, m.LinksRemove)
	e.optBool(8, m.Temporary)
	e.optInt32(9, m.Position)
	return e.b
}

func (m *ChannelState) Unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.ChannelID = f.uint32p()
		case 2:
			m.Parent = f.uint32p()
		case 3:
			m.Name = f.stringp()
		case 4:
			m.Links, err = f.appendUint32s(m.Links)
		case 5:
			m.Description = f.stringp()
		case 6:
			m.LinksAdd, err = f.appendUint32s(m.LinksAdd)
		case 7:
			m.LinksRemove, err = f.appendUint32s(m.LinksRemove)
		case 8:
			m.Temporary = f.boolp()
		case 9:
			m.Position = f.int32p()
		}
		return err
	})
}

type UserRemove struct {
	Session uint32
	Actor   *uint32
	Reason  *string
	Ban     *bool
}

func (*UserRemove) Kind() Kind { return KindUserRemove }

func (m *UserRemove) Marshal() []byte {
	var e encoder
	e.uint32(1, m.Session)
	e.optUint32(2, m.Actor)
	e.optString(3, m.Reason)
	e.optBool(4, m.Ban)
	return e.b
}

func (m *UserRemove) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Session = f.uint32()
		case 2:
			m.Actor = f.uint32p()
		case 3:
			m.Reason = f.stringp()
		case 4:
			m.Ban = f.boolp()
		}
		return nil
	})
}

type UserState struct {
	Session                *uint32
	Actor                  *uint32
	Name                   *string
	UserID                 *uint32
	ChannelID              *uint32
	Mute                   *bool
	Deaf                   *bool
	Suppress               *bool
	SelfMute               *bool
	SelfDeaf               *bool
	Texture                []byte
	PluginContext          []byte
	PluginIdentity         *string
	Comment                *string
	Hash                   *string
	PrioritySpeaker        *bool
	Recording              *bool
	ListeningChannelAdd    []uint32
	ListeningChannelRemove []uint32
}

func (*UserState) Kind() Kind { return KindUserState }

func (m *UserState) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.Session)
	e.optUint32(2, m.Actor)
	e.optString(3, m.Name)
	e.optUint32(4, m.UserID)
	e.optUint32(5, m.ChannelID)
	e.optBool(6, m.Mute)
	e.optBool(7, m.Deaf)
	e.optBool(8, m.Suppress)
	e.optBool(9, m.SelfMute)
	e.optBool(10, m.SelfDeaf)
	e.optBytes(11, m.Texture)
	e.optBytes(12, m.PluginContext)
	e.optString(13, m.PluginIdentity)
	e.optString(14, m.Comment)
	e.optString(15, m.Hash)
	e.optBool(18, m.PrioritySpeaker)
	e.optBool(19, m.Recording)
	e.uint32s(21, m.ListeningChannelAdd)
	e.uint32s(22, m.ListeningChannelRemove)
	return e.b
}

func (m *UserState) Unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Session = f.uint32p()
		case 2:
			m.Actor = f.uint32p()
		case 3:
			m.Name = f.stringp()
		case 4:
			m.UserID = f.uint32p()
		case 5:
			m.ChannelID = f.uint32p()
		case 6:
			m.Mute = f.boolp()
		case 7:
			m.Deaf = f.boolp()
		case 8:
			m.Suppress = f.boolp()
		case 9:
			m.SelfMute = f.boolp()
		case 10:
			m.SelfDeaf = f.boolp()
		case 11:
			m.Texture = f.bytes()
		case 12:
			m.PluginContext = f.bytes()
		case 13:
			m.PluginIdentity = f.stringp()
		case 14:
			m.Comment = f.stringp()
		case 15:
			m.Hash = f.stringp()
		case 18:
			m.PrioritySpeaker = f.boolp()
		case 19:
			m.Recording = f.boolp()
		case 21:
			m.ListeningChannelAdd, err = f.appendUint32s(m.ListeningChannelAdd)
		case 22:
			m.ListeningChannelRemove, err = f.appendUint32s(m.ListeningChannelRemove)
		}
		return err
	})
}

type BanEntry struct {
	Address  []byte
	Mask     uint32
	Name     string
	Hash     string
	Reason   string
	Start    string
	Duration uint32
}

func (m *BanEntry) marshal() []byte {
	var e encoder
	e.bytes(1, m.Address)
	e.uint32(2, m.Mask)
	e.string(3, m.Name)
	e.string(4, m.Hash)
	e.string(5, m.Reason)
	e.string(6, m.Start)
	e.uint32(7, m.Duration)
	return e.b
}

func (m *BanEntry) unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Address = f.bytes()
		case 2:
			m.Mask = f.uint32()
		case 3:
			m.Name = f.string()
		case 4:
			m.Hash = f.string()
		case 5:
			m.Reason = f.string()
		case 6:
			m.Start = f.string()
		case 7:
			m.Duration = f.uint32()
		}
		return nil
	})
}

type BanList struct {
	Bans  []BanEntry
	Query bool
}

func (*BanList) Kind() Kind { return KindBanList }

func (m *BanList) Marshal() []byte {
	var e encoder
	for i := range m.Bans {
		e.bytes(1, m.Bans[i].marshal())
	}
	if m.Query {
		e.bool(2, true)
	}
	return e.b
}

func (m *BanList) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			var be BanEntry
			if err := be.unmarshal(f.data); err != nil {
				return fmt.Errorf("ban entry: %w", err)
			}
			m.Bans = append(m.Bans, be)
		case 2:
			m.Query = f.bool()
		}
		return nil
	})
}

type TextMessage struct {
	Actor      *uint32
	Sessions   []uint32
	ChannelIDs []uint32
	TreeIDs    []uint32
	Message    string
}

func (*TextMessage) Kind() Kind { return KindTextMessage }

func (m *TextMessage) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.Actor)
	e.uint32s(2, m.Sessions)
	e.uint32s(3, m.ChannelIDs)
	e.uint32s(4, m.TreeIDs)
	e.string(5, m.Message)
	return e.b
}

func (m *TextMessage) Unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Actor = f.uint32p()
		case 2:
			m.Sessions, err = f.appendUint32s(m.Sessions)
		case 3:
			m.ChannelIDs, err = f.appendUint32s(m.ChannelIDs)
		case 4:
			m.TreeIDs, err = f.appendUint32s(m.TreeIDs)
		case 5:
			m.Message = f.string()
		}
		return err
	})
}

type PermissionDenied struct {
	Permission *uint32
	ChannelID  *uint32
	Session    *uint32
	Reason     string
	Type       DenyType
	Name       *string
}

func (*PermissionDenied) Kind() Kind { return KindPermissionDenied }

func (m *PermissionDenied) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.Permission)
	e.optUint32(2, m.ChannelID)
	e.optUint32(3, m.Session)
	e.string(4, m.Reason)
	e.uint32(5, uint32(m.Type))
	e.optString(6, m.Name)
	return e.b
}

func (m *PermissionDenied) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Permission = f.uint32p()
		case 2:
			m.ChannelID = f.uint32p()
		case 3:
			m.Session = f.uint32p()
		case 4:
			m.Reason = f.string()
		case 5:
			m.Type = DenyType(f.uint32())
		case 6:
			m.Name = f.stringp()
		}
		return nil
	})
}

type CryptSetup struct {
	Key         []byte
	ClientNonce []byte
	ServerNonce []byte
}

func (*CryptSetup) Kind() Kind { return KindCryptSetup }

func (m *CryptSetup) Marshal() []byte {
	var e encoder
	e.optBytes(1, m.Key)
	e.optBytes(2, m.ClientNonce)
	e.optBytes(3, m.ServerNonce)
	return e.b
}

func (m *CryptSetup) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Key = f.bytes()
		case 2:
			m.ClientNonce = f.bytes()
		case 3:
			m.ServerNonce = f.bytes()
		}
		return nil
	})
}

type VoiceTargetEntry struct {
	Sessions  []uint32
	ChannelID *uint32
	Group     string
	Links     bool
	Children  bool
}

func (m *VoiceTargetEntry) marshal() []byte {
	var e encoder
	e.uint32s(1, m.Sessions)
	e.optUint32(2, m.ChannelID)
	if m.Group != "" {
		e.string(3, m.Group)
	}
	e.bool(4, m.Links)
	e.bool(5, m.Children)
	return e.b
}

func (m *VoiceTargetEntry) unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Sessions, err = f.appendUint32s(m.Sessions)
		case 2:
			m.ChannelID = f.uint32p()
		case 3:
			m.Group = f.string()
		case 4:
			m.Links = f.bool()
		case 5:
			m.Children = f.bool()
		}
		return err
	})
}

type VoiceTarget struct {
	ID      uint32
	Targets []VoiceTargetEntry
}

func (*VoiceTarget) Kind() Kind { return KindVoiceTarget }

func (m *VoiceTarget) Marshal() []byte {
	var e encoder
	e.uint32(1, m.ID)
	for i := range m.Targets {
		e.bytes(2, m.Targets[i].marshal())
	}
	return e.b
}

func (m *VoiceTarget) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ID = f.uint32()
		case 2:
			var t VoiceTargetEntry
			if err := t.unmarshal(f.data); err != nil {
				return fmt.Errorf("voice target: %w", err)
			}
			m.Targets = append(m.Targets, t)
		}
		return nil
	})
}

type PermissionQuery struct {
	ChannelID   *uint32
	Permissions *uint32
	Flush       bool
}

func (*PermissionQuery) Kind() Kind { return KindPermissionQuery }

func (m *PermissionQuery) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.ChannelID)
	e.optUint32(2, m.Permissions)
	if m.Flush {
		e.bool(3, true)
	}
	return e.b
}

func (m *PermissionQuery) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.ChannelID = f.uint32p()
		case 2:
			m.Permissions = f.uint32p()
		case 3:
			m.Flush = f.bool()
		}
		return nil
	})
}

type CodecVersion struct {
	Alpha       int32
	Beta        int32
	PreferAlpha bool
	Opus        bool
}

func (*CodecVersion) Kind() Kind { return KindCodecVersion }

func (m *CodecVersion) Marshal() []byte {
	var e encoder
	e.int32(1, m.Alpha)
	e.int32(2, m.Beta)
	e.bool(3, m.PreferAlpha)
	e.bool(4, m.Opus)
	return e.b
}

func (m *CodecVersion) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Alpha = f.int32()
		case 2:
			m.Beta = f.int32()
		case 3:
			m.PreferAlpha = f.bool()
		case 4:
			m.Opus = f.bool()
		}
		return nil
	})
}

type PacketStats struct {
	Good   uint32
	Late   uint32
	Lost   uint32
	Resync uint32
}

func (m *PacketStats) marshal() []byte {
	var e encoder
	e.uint32(1, m.Good)
	e.uint32(2, m.Late)
	e.uint32(3, m.Lost)
	e.uint32(4, m.Resync)
	return e.b
}

func (m *PacketStats) unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.Good = f.uint32()
		case 2:
			m.Late = f.uint32()
		case 3:
			m.Lost = f.uint32()
		case 4:
			m.Resync = f.uint32()
		}
		return nil
	})
}

type UserStats struct {
	Session      *uint32
	StatsOnly    *bool
	FromClient   *PacketStats
	FromServer   *PacketStats
	UDPPackets   uint32
	TCPPackets   uint32
	UDPPingAvg   float32
	UDPPingVar   float32
	TCPPingAvg   float32
	TCPPingVar   float32
	Version      *Version
	CeltVersions []int32
	Address      []byte
	Bandwidth    uint32
	OnlineSecs   uint32
	IdleSecs     uint32
	Opus         bool
}

func (*UserStats) Kind() Kind { return KindUserStats }

func (m *UserStats) Marshal() []byte {
	var e encoder
	e.optUint32(1, m.Session)
	e.optBool(2, m.StatsOnly)
	if m.FromClient != nil {
		e.bytes(4, m.FromClient.marshal())
	}
	if m.FromServer != nil {
		e.bytes(5, m.FromServer.marshal())
	}
	e.uint32(6, m.UDPPackets)
	e.uint32(7, m.TCPPackets)
	e.float(8, m.UDPPingAvg)
	e.float(9, m.UDPPingVar)
	e.float(10, m.TCPPingAvg)
	e.float(11, m.TCPPingVar)
	if m.Version != nil {
		e.bytes(12, m.Version.Marshal())
	}
	e.int32s(13, m.CeltVersions)
	e.optBytes(14, m.Address)
	e.uint32(15, m.Bandwidth)
	e.uint32(16, m.OnlineSecs)
	e.uint32(17, m.IdleSecs)
	e.bool(19, m.Opus)
	return e.b
}

func (m *UserStats) Unmarshal(b []byte) error {
	return walk(b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Session = f.uint32p()
		case 2:
			m.StatsOnly = f.boolp()
		case 4:
			m.FromClient = &PacketStats{}
			err = m.FromClient.unmarshal(f.data)
		case 5:
			m.FromServer = &PacketStats{}
			err = m.FromServer.unmarshal(f.data)
		case 6:
			m.UDPPackets = f.uint32()
		case 7:
			m.TCPPackets = f.uint32()
		case 8:
			m.UDPPingAvg = f.float()
		case 9:
			m.UDPPingVar = f.float()
		case 10:
			m.TCPPingAvg = f.float()
		case 11:
			m.TCPPingVar = f.float()
		case 12:
			m.Version = &Version{}
			err = m.Version.Unmarshal(f.data)
		case 13:
			m.CeltVersions, err = f.appendInt32s(m.CeltVersions)
		case 14:
			m.Address = f.bytes()
		case 15:
			m.Bandwidth = f.uint32()
		case 16:
			m.OnlineSecs = f.uint32()
		case 17:
			m.IdleSecs = f.uint32()
		case 19:
			m.Opus = f.bool()
		}
		return err
	})
}

type ServerConfig struct {
	MaxBandwidth       uint32
	WelcomeText        string
	AllowHTML          *bool
	MessageLength      *uint32
	ImageMessageLength *uint32
	MaxUsers           uint32
}

func (*ServerConfig) Kind() Kind { return KindServerConfig }

func (m *ServerConfig) Marshal() []byte {
	var e encoder
	if m.MaxBandwidth != 0 {
		e.uint32(1, m.MaxBandwidth)
	}
	if m.WelcomeText != "" {
		e.string(2, m.WelcomeText)
	}
	e.optBool(3, m.AllowHTML)
	e.optUint32(4, m.MessageLength)
	e.optUint32(5, m.ImageMessageLength)
	if m.MaxUsers != 0 {
		e.uint32(6, m.MaxUsers)
	}
	return e.b
}

func (m *ServerConfig) Unmarshal(b []byte) error {
	return walk(b, func(f field) error {
		switch f.num {
		case 1:
			m.MaxBandwidth = f.uint32()
		case 2:
			m.WelcomeText = f.string()
		case 3:
			m.AllowHTML = f.boolp()
		case 4:
			m.MessageLength = f.uint32p()
		case 5:
			m.ImageMessageLength = f.uint32p()
		case 6:
			m.MaxUsers = f.uint32()
		}
		return nil
	})
}
