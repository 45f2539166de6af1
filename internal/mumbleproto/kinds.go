// Package mumbleproto is the control and voice wire format: frame headers,
// protobuf payloads and the voice packet layout.
package mumbleproto

import "strconv"

// ProtocolVersion is 1.2.4 packed as major<<16 | minor<<8 | patch.
const ProtocolVersion uint32 = 0x010204

type Kind uint16

const (
	KindVersion Kind = iota
	KindUDPTunnel
	KindAuthenticate
	KindPing
	KindReject
	KindServerSync
	KindChannelRemove
	KindChannelState
	KindUserRemove
	KindUserState
	KindBanList
	KindTextMessage
	KindPermissionDenied
	KindACL
	KindQueryUsers
	KindCryptSetup
	KindContextActionModify
	KindContextAction
	KindUserList
	KindVoiceTarget
	KindPermissionQuery
	KindCodecVersion
	KindUserStats
	KindRequestBlob
	KindServerConfig
	KindSuggestConfig
)

var kindNames = [...]string{
	"Version", "UDPTunnel", "Authenticate", "Ping", "Reject", "ServerSync",
	"ChannelRemove", "ChannelState", "UserRemove", "UserState", "BanList",
	"TextMessage", "PermissionDenied", "ACL", "QueryUsers", "CryptSetup",
	"ContextActionModify", "ContextAction", "UserList", "VoiceTarget",
	"PermissionQuery", "CodecVersion", "UserStats", "RequestBlob",
	"ServerConfig", "SuggestConfig",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

type RejectType uint32

const (
	RejectNone RejectType = iota
	RejectWrongVersion
	RejectInvalidUsername
	RejectWrongUserPW
	RejectWrongServerPW
	RejectUsernameInUse
	RejectServerFull
	RejectNoCertificate
	RejectAuthenticatorFail
)

type DenyType uint32

const (
	DenyText DenyType = iota
	DenyPermission
	DenySuperUser
	DenyChannelName
	DenyTextTooLong
	DenyH9K
	DenyTemporaryChannel
	DenyMissingCertificate
	DenyUserName
	DenyChannelFull
	DenyNestingLimit
)

// Permission bits reported through PermissionQuery and ServerSync.
const (
	PermTraverse        uint32 = 0x2
	PermEnter           uint32 = 0x4
	PermSpeak           uint32 = 0x8
	PermMuteDeafen      uint32 = 0x10
	PermMove            uint32 = 0x20
	PermWhisper         uint32 = 0x100
	PermTextMessage     uint32 = 0x200
	PermMakeTempChannel uint32 = 0x400
	PermKick            uint32 = 0x10000
	PermBan             uint32 = 0x20000

	PermDefault = PermTraverse | PermEnter | PermSpeak | PermWhisper | PermTextMessage | PermMakeTempChannel
	PermAdmin   = PermDefault | PermMuteDeafen | PermMove | PermKick | PermBan
)
