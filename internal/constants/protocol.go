package constants

// Lobby Protocol Constants
//
// This file contains wire-level constants for the three lobby sockets
// (authentication, view, data). Offsets are measured from the first byte of
// a single received payload; all multi-byte integers are little-endian.

// Default Listener Ports
const (
	// DefaultAuthPort is the authentication listener port (pre-auth gate enabled)
	DefaultAuthPort = 54231

	// DefaultViewPort is the view (lobby UI) listener port
	DefaultViewPort = 54001

	// DefaultDataPort is the data (character roster) listener port
	DefaultDataPort = 54230
)

// Authentication Request Layout
//
//	[username 16 bytes][password 16 bytes][request type 1 byte][hardware id 17 bytes, optional]
const (
	// AuthRequestSize is the size of a request without a hardware id
	AuthRequestSize = 33

	// AuthRequestHardwareSize is the size of a request carrying a hardware id
	AuthRequestHardwareSize = 50

	AuthUsernameOffset    = 0
	AuthPasswordOffset    = 16
	AuthRequestTypeOffset = 32
	AuthHardwareIDOffset  = 33
	AuthHardwareIDLength  = AuthRequestHardwareSize - AuthHardwareIDOffset

	// AuthErrorPadding is the number of zero bytes following an error code
	AuthErrorPadding = 20
)

// Credential Limits
const (
	UsernameMinLength = 3
	UsernameMaxLength = 16
	PasswordMinLength = 6
	PasswordMaxLength = 16
)

// View Request Layout
const (
	// ViewRequestTypeOffset is the dispatch byte of every view request
	ViewRequestTypeOffset = 0x08

	// VersionOffset is the start of the 10-byte client version string
	VersionOffset = 0x74

	// VersionLength is the length of the client version string
	VersionLength = 10

	// VersionPlaceholderIndex is replaced with '0' before parsing ("2023_0101_0" style strings)
	VersionPlaceholderIndex = 8

	// VersionAccountIDOffset carries the account id sent by updated loaders (0 for stock clients)
	VersionAccountIDOffset = 148

	// CharacterIDOffset is the character id used by reservation and delete
	CharacterIDOffset = 28

	// ReserveNameOffset is the character name of a reservation request
	ReserveNameOffset = 36

	// ValidateNameOffset is the candidate name of a validate request
	ValidateNameOffset = 32

	// ValidateNameLength is the number of bytes scanned for a candidate name
	ValidateNameLength = 15

	SaveRaceOffset   = 48
	SaveJobOffset    = 50
	SaveNationOffset = 54
	SaveSizeOffset   = 57
	SaveFaceOffset   = 60
)

// Data Request Layout
const (
	// DataRequestTypeOffset is the dispatch byte of every data request
	DataRequestTypeOffset = 0x00

	// DataAccountIDOffset carries the account id binding an anonymous data socket
	DataAccountIDOffset = 1

	// SessionKeyOffset is the start of the 20-byte session key seed of a select request
	SessionKeyOffset = 1

	// SessionKeyLength is the session key size in bytes
	SessionKeyLength = 20

	// SessionKeyShiftIndex is the byte adjusted depending on the zone-in direction
	SessionKeyShiftIndex = 16

	// SessionKeyFirstZoneShift is added when the character has no previous zone
	SessionKeyFirstZoneShift = 4

	// SessionKeyReturnShift is subtracted when the character returns from a previous zone
	SessionKeyReturnShift = 2
)

// View Envelope
//
//	[length 4 bytes][magic "IXFF" 4 bytes][code 4 bytes][md5 16 bytes][body ...]
const (
	ViewMagic          = "IXFF"
	ViewLengthOffset   = 0
	ViewMagicOffset    = 4
	ViewCodeOffset     = 8
	ViewChecksumOffset = 12
	ViewChecksumSize   = 16
	ViewHeaderSize     = ViewChecksumOffset + ViewChecksumSize
)

// Identifier Limits
const (
	// MaxCharacterID is the highest character id the client can address (24 bits)
	MaxCharacterID = 0x00FFFFFF

	// MaxContentIDs is the maximum number of character slots shown by the client
	MaxContentIDs = 16

	// FirstAccountID is the lowest id handed out by account creation
	FirstAccountID = 1000

	// MaxNameLength is the fixed width of character and server names on the wire
	MaxNameLength = 16

	// ServerID is the world id announced in the server list and roster entries
	ServerID = 0x64

	// WorldID is the world byte embedded in character id triplets
	WorldID = 0x00
)

// Buffer Defaults
const (
	// DefaultReceiveBufferSize is the per-connection read buffer (one read = one payload)
	DefaultReceiveBufferSize = 4096

	// DefaultBacklog is the listen backlog applied to every lobby listener
	DefaultBacklog = 128

	// DefaultSendBufSize is the initial capacity of pooled response buffers
	DefaultSendBufSize = 2048
)
