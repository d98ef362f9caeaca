package serverpackets

import (
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/protocol"
)

// Data socket response codes.
const (
	DataReady byte = 0x01
	DataSet   byte = 0x02
	DataList  byte = 0x03
)

// dataShortSize is the padded size of READY and SET.
const dataShortSize = 5

// WhoAreYou is sent to every new data connection.
func WhoAreYou() []byte {
	return []byte{0x01, 0x00, 0x00, 0x00, 0x00}
}

// Ready tells the data socket the view side continued.
func Ready() []byte {
	return padded(DataReady)
}

// Set acknowledges a character reservation.
func Set() []byte {
	return padded(DataSet)
}

func padded(code byte) []byte {
	w := protocol.Get()
	defer w.Put()

	w.WriteUint8(code)
	w.PadTo(dataShortSize)
	return w.Clone()
}

// CharacterList writes the content id list of the data socket: the real
// characters followed by placeholder ids the client may create into.
//
//	[0x03][count][6 zero]{[8 zero][u32 content id][u16 id low][world][id high]}...
func CharacterList(count byte, entries []model.RosterEntry, placeholders []uint32) []byte {
	w := protocol.Get()
	defer w.Put()

	w.WriteUint8(DataList)
	w.WriteUint8(count)
	w.Pad(6)

	write := func(id uint32) {
		low, high := model.SplitCharacterID(id)
		w.Pad(8)
		w.WriteUint32(id)
		w.WriteUint16(low)
		w.WriteUint8(constants.WorldID)
		w.WriteUint8(high)
	}

	for i := range entries {
		write(entries[i].CharacterID)
	}
	for _, id := range placeholders {
		write(id)
	}
	return w.Clone()
}
