package serverpackets

import (
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/protocol"
)

// View envelope codes.
const (
	ViewSuccess    uint32 = 0x03
	ViewError      uint32 = 0x04
	ViewVersion    uint32 = 0x05
	ViewSelection  uint32 = 0x0B
	ViewCharacters uint32 = 0x20
	ViewServers    uint32 = 0x23
)

// View error codes shown by the client as POL/FFXI error numbers.
const (
	ErrUnableToConnectWorld uint32 = 305
	ErrCharacterLoggedIn    uint32 = 307
	ErrWorldMaintenance     uint32 = 308
	ErrRegistration1        uint32 = 310
	ErrRegistration2        uint32 = 311
	ErrDeleteFailed1        uint32 = 312
	ErrNameTaken            uint32 = 313
	ErrNameRegistration     uint32 = 314
	ErrInternal1            uint32 = 315
	ErrDeleteFailed2        uint32 = 318
	ErrInternal2            uint32 = 319
	ErrInternal3            uint32 = 320
	ErrCharacterParams      uint32 = 321
	ErrNumberOnly           uint32 = 323
	ErrCreateRetry          uint32 = 325
	ErrReservationCancel    uint32 = 326
	ErrPopulationLimit      uint32 = 327
	ErrGameDataUpdated      uint32 = 331
	ErrRegistration3        uint32 = 336
)

var (
	versionHeader   = []byte{0x4F, 0xE0, 0x5D, 0xAD}
	selectionHeader = []byte{0x82, 0xB2, 0xC0, 0x00, 0xC3, 0x57, 0x00, 0x00}
	serversHeader   = []byte{0x20, 0x00, 0x00, 0x00}
	ipPortCount     = []byte{0x02, 0x00, 0x00, 0x00}
)

// ViewErrorResponse returns an ERROR envelope: 4 zero bytes then the error code.
func ViewErrorResponse(code uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewError)
	w.Pad(4)
	w.WriteUint32(code)
	return protocol.SealView(w.Clone())
}

// ViewSuccessResponse returns SUCCESS with a 4-byte zero body. Save,
// validate and delete all answer with it.
func ViewSuccessResponse() []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewSuccess)
	w.Pad(4)
	return protocol.SealView(w.Clone())
}

// Version announces the account entitlements.
func Version(expansions, features uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewVersion)
	w.WriteBytes(versionHeader)
	w.WriteUint32(expansions)
	w.WriteUint32(features)
	return protocol.SealView(w.Clone())
}

// Servers lists the single world of this cluster.
func Servers(serverName string) []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewServers)
	w.WriteBytes(serversHeader)
	w.WriteUint32(constants.ServerID)
	w.WriteString(serverName, constants.MaxNameLength)
	w.Pad(12)
	return protocol.SealView(w.Clone())
}

// Selection hands the client the zone and search endpoints.
func Selection(characterName string, host [4]byte, zonePort, searchPort uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewSelection)
	w.WriteBytes(selectionHeader)
	w.WriteString(characterName, constants.MaxNameLength)
	w.WriteBytes(ipPortCount)
	w.WriteBytes(host[:])
	w.WriteUint32(zonePort)
	w.WriteBytes(host[:])
	w.WriteUint32(searchPort)
	return protocol.SealView(w.Clone())
}
