package model

// JobCount is the number of job level columns in char_jobs (war..run).
const JobCount = 22

// RosterEntry is one existing character shown on the selection screen.
type RosterEntry struct {
	CharacterID uint32
	Name        string
	GMLevel     uint16
	Zone        uint16
	Race        uint16
	MainJob     uint16
	Face        byte
	Size        byte

	Head     uint16
	Body     uint16
	Hands    uint16
	Legs     uint16
	Feet     uint16
	MainHand uint16
	OffHand  uint16

	// JobLevels[i] is the level of job i+1 (1 = warrior).
	JobLevels [JobCount]byte
}

// MainJobLevel returns the level of the main job, 0 if the job id is out of range.
func (e *RosterEntry) MainJobLevel() byte {
	if e.MainJob < 1 || int(e.MainJob) > JobCount {
		return 0
	}
	return e.JobLevels[e.MainJob-1]
}

// SplitCharacterID splits an id into the 16 low bits and the high byte used on the wire.
func SplitCharacterID(id uint32) (low uint16, high byte) {
	return uint16(id & 0xFFFF), byte(id >> 16)
}
