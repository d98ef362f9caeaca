package model

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeNewCharacter(t *testing.T) {
	tests := []struct {
		name                          string
		race, job, nation, size, face byte
		want                          bool
	}{
		{"minimum", 1, 1, 0, 0, 0, true},
		{"maximum", 8, 6, 2, 2, 15, true},
		{"race zero", 0, 1, 0, 0, 0, false},
		{"race nine", 9, 1, 0, 0, 0, false},
		{"job seven", 1, 7, 0, 0, 0, false},
		{"nation three", 1, 1, 3, 0, 0, false},
		{"size three", 1, 1, 0, 3, 0, false},
		{"face sixteen", 1, 1, 0, 0, 16, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := MakeNewCharacter(tt.race, tt.job, tt.nation, tt.size, tt.face)
			assert.Equal(t, tt.want, c.Valid())
		})
	}
}

func TestNewCharacter_ValidityFixedAtConstruction(t *testing.T) {
	c := MakeNewCharacter(1, 1, NationBastok, 0, 0)
	require.True(t, c.Valid())

	// поля после конструктора не пересчитывают результат
	c.Zone = 0xEA
	c.Race = 9
	assert.True(t, c.Valid())

	assert.False(t, NewCharacter{Race: 1, MainJob: 1}.Valid())
}

func TestStartingZone(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for range 200 {
		z := StartingZone(NationSandoria, rng)
		assert.True(t, z >= 0xE6 && z <= 0xE8, "sandoria zone %#x", z)

		z = StartingZone(NationBastok, rng)
		assert.True(t, z >= 0xEA && z <= 0xEC, "bastok zone %#x", z)

		z = StartingZone(NationWindurst, rng)
		assert.True(t, z >= 0xEE && z <= 0xF1, "windurst zone %#x", z)
		assert.NotEqual(t, uint16(0xEF), z)
	}

	assert.Equal(t, uint16(0), StartingZone(7, rng))
}

func TestRosterEntry_MainJobLevel(t *testing.T) {
	e := RosterEntry{MainJob: 3}
	e.JobLevels[2] = 75
	assert.Equal(t, byte(75), e.MainJobLevel())

	e.MainJob = 0
	assert.Equal(t, byte(0), e.MainJobLevel())

	low, high := SplitCharacterID(0x123456)
	assert.Equal(t, uint16(0x3456), low)
	assert.Equal(t, byte(0x12), high)
}

func TestZoneAssignment_ZoneAddress(t *testing.T) {
	z := ZoneAssignment{ZoneIP: "127.0.0.1"}
	assert.Equal(t, uint32(0x0100007F), z.ZoneAddress())

	z.ZoneIP = "not an ip"
	assert.Equal(t, uint32(0), z.ZoneAddress())
}
