package model

import (
	"net/netip"
	"time"
)

// ZoneAssignment is where a selected character will zone in.
type ZoneAssignment struct {
	AccountID    uint32
	CharacterID  uint32
	GMLevel      uint16
	PreviousZone uint16
	ZoneID       uint16
	ZoneIP       string
	ZonePort     uint16
}

// ZoneAddress returns the zone ip as the little-endian integer stored in
// accounts_sessions.server_addr (bytes in network order).
func (z *ZoneAssignment) ZoneAddress() uint32 {
	addr, err := netip.ParseAddr(z.ZoneIP)
	if err != nil || !addr.Is4() {
		return 0
	}
	b := addr.As4()
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// AccountSession is one accounts_sessions row: the hand-off record the world
// server reads when the client zones in.
type AccountSession struct {
	AccountID     uint32
	CharacterID   uint32
	SessionKey    [20]byte
	ServerAddress uint32
	ServerPort    uint16
	ClientAddress uint32
}

// IPRecord is one account_ip_record row.
type IPRecord struct {
	LoginTime   time.Time
	AccountID   uint32
	CharacterID uint32
	ClientIP    string
}
