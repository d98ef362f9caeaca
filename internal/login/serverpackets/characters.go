package serverpackets

import (
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/protocol"
)

// CharacterEntrySize is the wire size of one roster slot.
const CharacterEntrySize = 140

const (
	slotActive   byte = 0x01
	slotKeepName byte = 0x00
)

var (
	unknown4  = []byte{0x01, 0x00, 0x02, 0x00}
	unknown6  = []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x00}
	unknown7  = []byte{0x07, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00}
	unknown12 = []byte{0x01, 0x00, 0x02, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}

	// emptyName hides a placeholder slot in the client UI.
	emptyName = []byte{0x20, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	// polData is an opaque trailer copied from retail captures.
	polData = []byte{
		0x00, 0x00, 0xB5, 0xFA, 0x01, 0x00, 0x7E, 0x00, 0x00, 0x00,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x01,
		0x01, 0x01, 0x01, 0x01, 0x01, 0x01, 0x46, 0x6E, 0xCF, 0x09,
		0xDE, 0x17, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x0A, 0x52,
		0x03, 0x00, 0x0E, 0x08, 0x00, 0x00, 0x00, 0x0F, 0x00, 0x00,
	}
)

// Characters builds the CHARACTERS envelope: allocated slot count, one
// 140-byte entry per existing character, then one per placeholder id.
func Characters(serverName string, allocated uint32, entries []model.RosterEntry, placeholders []uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	protocol.BeginView(w, ViewCharacters)
	w.WriteUint32(allocated)

	for i := range entries {
		e := &entries[i]
		writeSlotHeader(w, e.CharacterID)
		w.WriteString(e.Name, constants.MaxNameLength)
		w.WriteString(serverName, constants.MaxNameLength)
		w.WriteUint16(e.Race)
		w.WriteUint16(e.MainJob)
		w.WriteBytes(unknown7)
		w.WriteUint8(e.Face)
		w.WriteUint8(e.Size)
		w.WriteUint16(e.Head)
		w.WriteUint16(e.Body)
		w.WriteUint16(e.Hands)
		w.WriteUint16(e.Legs)
		w.WriteUint16(e.Feet)
		w.WriteUint16(e.MainHand)
		w.WriteUint16(e.OffHand)
		w.WriteUint8(byte(e.Zone))
		w.WriteUint8(e.MainJobLevel())
		w.WriteBytes(unknown4)
		w.WriteUint16(e.Zone)
		w.WriteBytes(unknown6)
		w.WriteUint32(constants.ServerID)
		w.WriteBytes(polData)
	}

	for _, id := range placeholders {
		writeSlotHeader(w, id)
		w.WriteBytes(emptyName)
		w.WriteBytes(emptyName)
		w.Pad(4)
		w.WriteBytes(unknown7)
		w.Pad(2)
		for gear := uint16(0x1000); gear <= 0x7000; gear += 0x1000 {
			w.WriteUint16(gear)
		}
		w.WriteUint8(0)
		w.WriteUint8(1)
		w.WriteBytes(unknown12)
		w.WriteUint32(constants.ServerID)
		w.WriteBytes(polData)
	}

	return protocol.SealView(w.Clone())
}

func writeSlotHeader(w *protocol.Writer, id uint32) {
	low, high := model.SplitCharacterID(id)
	w.WriteUint32(id)
	w.WriteUint16(low)
	w.WriteUint8(constants.WorldID)
	w.WriteUint8(0)
	w.WriteUint8(slotActive)
	w.WriteUint8(0)
	w.WriteUint8(slotKeepName)
	w.WriteUint8(high)
}

// Placeholders returns count ids following last, wrapping before the
// character id ceiling.
func Placeholders(last uint32, count int) []uint32 {
	if count <= 0 {
		return nil
	}
	ids := make([]uint32, 0, count)
	id := last
	for range count {
		if id >= constants.MaxCharacterID {
			id = 0
		}
		id++
		ids = append(ids, id)
	}
	return ids
}
