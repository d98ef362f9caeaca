package serverpackets

import (
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/protocol"
)

// Authentication response codes.
const (
	AuthSucceed               byte = 0x01
	AuthFail                  byte = 0x02
	AuthCreateSucceed         byte = 0x03
	AuthCreateTaken           byte = 0x04
	AuthChangePassword        byte = 0x05
	AuthChangePasswordSucceed byte = 0x06
	AuthChangePasswordFail    byte = 0x07
	AuthCreateDisabled        byte = 0x08
	AuthCreateFail            byte = 0x09
	AuthCreateLockout         byte = 0x44 // unknown to stock loaders, they close the connection
	AuthWait                  byte = 0x75
	AuthInvalid               byte = 0x76
	AuthTooMany               byte = 0x77
)

// AuthError returns an error code followed by 20 zero bytes.
func AuthError(code byte) []byte {
	w := protocol.Get()
	defer w.Put()

	w.WriteUint8(code)
	w.Pad(constants.AuthErrorPadding)
	return w.Clone()
}

// AuthSuccess returns SUCCEED followed by the account id.
func AuthSuccess(accountID uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	w.WriteUint8(AuthSucceed)
	w.WriteUint32(accountID)
	return w.Clone()
}

// AuthCode returns a bare one-byte status.
func AuthCode(code byte) []byte {
	return []byte{code}
}
