package model

import "math/rand/v2"

// Nation ids as sent by the character creation form.
const (
	NationSandoria byte = 0
	NationBastok   byte = 1
	NationWindurst byte = 2
)

// windurstWalls is excluded from the Windurst starting zones.
const windurstWalls = 0xEF

// NewCharacter — параметры персонажа из формы создания.
// Валидность вычисляется один раз в MakeNewCharacter; литерал всегда невалиден.
type NewCharacter struct {
	Race    byte
	MainJob byte
	Nation  byte
	Size    byte
	Face    byte
	Zone    uint16

	valid bool
}

// MakeNewCharacter builds a form and checks its ranges: race 1-8, job 1-6,
// nation 0-2, size 0-2, face 0-15.
func MakeNewCharacter(race, mainJob, nation, size, face byte) NewCharacter {
	c := NewCharacter{
		Race:    race,
		MainJob: mainJob,
		Nation:  nation,
		Size:    size,
		Face:    face,
	}
	c.valid = race >= 1 && race <= 8 &&
		mainJob >= 1 && mainJob <= 6 &&
		nation <= NationWindurst &&
		size <= 2 &&
		face <= 15
	return c
}

// Valid reports the result of the construction-time range check.
func (c NewCharacter) Valid() bool {
	return c.valid
}

// StartingZone picks a random starting zone of the nation. Unknown nations map to 0.
func StartingZone(nation byte, rng *rand.Rand) uint16 {
	between := func(lo, hi int) uint16 {
		return uint16(lo + rng.IntN(hi-lo+1))
	}

	switch nation {
	case NationSandoria:
		return between(0xE6, 0xE8)
	case NationBastok:
		return between(0xEA, 0xEC)
	case NationWindurst:
		for {
			if z := between(0xEE, 0xF1); z != windurstWalls {
				return z
			}
		}
	}
	return 0
}
