package login

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/protocol"
	"github.com/udisondev/xilogin/internal/testutil"
)

func TestSessionKey(t *testing.T) {
	data := make([]byte, constants.SessionKeyOffset+constants.SessionKeyLength)
	for i := range constants.SessionKeyLength {
		data[constants.SessionKeyOffset+i] = byte(i)
	}

	first, ok := SessionKey(data, true)
	require.True(t, ok)
	assert.Equal(t, byte(16+4), first[constants.SessionKeyShiftIndex])
	assert.Equal(t, byte(15), first[15])
	assert.Equal(t, byte(19), first[19])

	back, ok := SessionKey(data, false)
	require.True(t, ok)
	assert.Equal(t, byte(16-2), back[constants.SessionKeyShiftIndex])

	// byte arithmetic wraps
	data[constants.SessionKeyOffset+constants.SessionKeyShiftIndex] = 0xFE
	wrapped, _ := SessionKey(data, true)
	assert.Equal(t, byte(0x02), wrapped[constants.SessionKeyShiftIndex])

	_, ok = SessionKey(data[:constants.SessionKeyLength], true)
	assert.False(t, ok)
}

func TestContentSlots(t *testing.T) {
	tests := []struct {
		contentIDs      uint32
		characters      int
		wantAllocated   uint32
		wantUnallocated int
	}{
		{3, 0, 3, 3},
		{3, 1, 3, 2},
		{5, 3, 5, 2},
		{20, 0, 16, 16},
		{2, 5, 2, 0},
		{0, 0, 0, 0},
	}

	for _, tt := range tests {
		allocated, unallocated := contentSlots(tt.contentIDs, tt.characters)
		assert.Equal(t, tt.wantAllocated, allocated)
		assert.Equal(t, tt.wantUnallocated, unallocated)
	}
}

func selectRequest(seed byte) []byte {
	b := dataRequest(DataRequestSelect, 0)
	for i := range constants.SessionKeyLength {
		b[constants.SessionKeyOffset+i] = seed
	}
	return b
}

func TestData_WhoAreYou(t *testing.T) {
	l := startLobby(t, testConfig(), withTestAccount(&mockRepository{}))

	data := dial(t, l.dataAddr)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x00}, receive(t, data))
}

func TestData_BindRequiresMatchingAccount(t *testing.T) {
	l := startLobby(t, testConfig(), withTestAccount(&mockRepository{}))
	l.login(t)

	data := dial(t, l.dataAddr)
	receive(t, data)
	send(t, data, dataRequest(DataRequestCharacters, constants.TestAccountID+1))
	requireSilent(t, data)

	sel, ok := l.srv.Sessions().Pending(constants.TestClientAddress)
	require.True(t, ok)
	assert.Nil(t, sel.Data())
}

func TestData_Roster(t *testing.T) {
	repo := withTestAccount(&mockRepository{})
	repo.ContentIDsFunc = func(context.Context, uint32) (uint32, error) {
		return 5, nil
	}
	repo.RosterFunc = func(_ context.Context, _ uint32, limit int) ([]model.RosterEntry, error) {
		assert.Equal(t, constants.MaxContentIDs, limit)
		return []model.RosterEntry{
			{CharacterID: 10, Name: "Aldo", Race: 1, MainJob: 1, Zone: 230},
			{CharacterID: 11, Name: "Ayame", Race: 2, MainJob: 2, Zone: 234},
			{CharacterID: 12, Name: "Volker", Race: 1, MainJob: 1, Zone: 237},
		}, nil
	}
	cfg := testConfig()
	cfg.ServerName = "Phoenix"
	l := startLobby(t, cfg, repo)
	view, data := l.enter(t)

	send(t, data, dataRequest(DataRequestCharacters, constants.TestAccountID))

	list := receive(t, data)
	require.Len(t, list, 8+5*16)
	assert.Equal(t, serverpackets.DataList, list[0])
	assert.Equal(t, byte(5), list[1])
	ids := make([]uint32, 0, 5)
	for i := range 5 {
		ids = append(ids, binary.LittleEndian.Uint32(list[8+i*16+8:]))
	}
	assert.Equal(t, []uint32{10, 11, 12, 13, 14}, ids)

	chars := receive(t, view)
	testutil.AssertViewCode(t, serverpackets.ViewCharacters, chars)
	body := protocol.ViewBody(chars)
	require.Len(t, body, 4+5*serverpackets.CharacterEntrySize)
	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(body))
}

func TestData_RosterOverQuota(t *testing.T) {
	repo := withTestAccount(&mockRepository{})
	repo.ContentIDsFunc = func(context.Context, uint32) (uint32, error) {
		return 1, nil
	}
	repo.RosterFunc = func(context.Context, uint32, int) ([]model.RosterEntry, error) {
		return []model.RosterEntry{{CharacterID: 3, Name: "Aldo"}, {CharacterID: 4, Name: "Ayame"}}, nil
	}
	l := startLobby(t, testConfig(), repo)
	view, data := l.enter(t)

	send(t, data, dataRequest(DataRequestCharacters, constants.TestAccountID))

	list := receive(t, data)
	assert.Equal(t, byte(1), list[1])
	assert.Len(t, list, 8+2*16, "real characters are listed even above the quota")

	body := protocol.ViewBody(receive(t, view))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(body))
}

// enterWithReservation brings up a lobby and reserves character 42.
func enterWithReservation(t *testing.T, cfg config.LoginServer, repo *mockRepository) (*testLobby, netConns) {
	t.Helper()

	l := startLobby(t, cfg, repo)
	view, data := l.enter(t)
	send(t, view, characterRequest(ViewRequestID, 42, "Aldo"))
	require.Equal(t, serverpackets.Set(), receive(t, data))
	return l, netConns{view: view, data: data}
}

func zoneAt(prevZone uint16) func(context.Context, uint32, uint32) (*model.ZoneAssignment, error) {
	return func(_ context.Context, accountID, characterID uint32) (*model.ZoneAssignment, error) {
		if characterID != 42 {
			return nil, nil
		}
		return &model.ZoneAssignment{
			AccountID:    accountID,
			CharacterID:  characterID,
			PreviousZone: prevZone,
			ZoneID:       230,
			ZoneIP:       "127.0.0.1",
			ZonePort:     54230,
		}, nil
	}
}

func TestData_Select(t *testing.T) {
	opened := make(chan model.AccountSession, 1)
	prevZone := make(chan uint16, 1)
	recorded := make(chan model.IPRecord, 1)

	repo := withTestAccount(&mockRepository{})
	repo.ZoneAssignmentFunc = zoneAt(0)
	repo.SetPreviousZoneFunc = func(_ context.Context, _ uint32, zoneID uint16) error {
		prevZone <- zoneID
		return nil
	}
	repo.OpenSessionFunc = func(_ context.Context, s model.AccountSession) error {
		opened <- s
		return nil
	}
	repo.RecordIPFunc = func(_ context.Context, r model.IPRecord) error {
		recorded <- r
		return nil
	}
	cfg := testConfig()
	cfg.LogUserIP = true
	cfg.SearchPort = 54002

	_, conns := enterWithReservation(t, cfg, repo)
	send(t, conns.data, selectRequest(0x10))

	resp := receive(t, conns.view)
	testutil.AssertViewCode(t, serverpackets.ViewSelection, resp)
	assert.Equal(t, serverpackets.Selection("Aldo", [4]byte{127, 0, 0, 1}, 54230, 54002), resp)
	requireClosed(t, conns.view)

	s := <-opened
	assert.Equal(t, uint32(constants.TestAccountID), s.AccountID)
	assert.Equal(t, uint32(42), s.CharacterID)
	assert.Equal(t, byte(0x10+4), s.SessionKey[constants.SessionKeyShiftIndex])
	assert.Equal(t, byte(0x10), s.SessionKey[0])
	assert.Equal(t, uint32(0x0100007F), s.ServerAddress)
	assert.Equal(t, uint16(54230), s.ServerPort)
	assert.Equal(t, uint32(constants.TestClientAddress), s.ClientAddress)

	assert.Equal(t, uint16(230), <-prevZone)

	r := <-recorded
	assert.Equal(t, uint32(constants.TestAccountID), r.AccountID)
	assert.Equal(t, uint32(42), r.CharacterID)
	assert.Equal(t, "127.0.0.1", r.ClientIP)
}

func TestData_SelectReturningCharacter(t *testing.T) {
	opened := make(chan model.AccountSession, 1)
	repo := withTestAccount(&mockRepository{})
	repo.ZoneAssignmentFunc = zoneAt(231)
	repo.SetPreviousZoneFunc = func(context.Context, uint32, uint16) error {
		t.Error("previous zone already set")
		return nil
	}
	repo.OpenSessionFunc = func(_ context.Context, s model.AccountSession) error {
		opened <- s
		return nil
	}

	_, conns := enterWithReservation(t, testConfig(), repo)
	send(t, conns.data, selectRequest(0x10))

	testutil.AssertViewCode(t, serverpackets.ViewSelection, receive(t, conns.view))
	s := <-opened
	assert.Equal(t, byte(0x10-2), s.SessionKey[constants.SessionKeyShiftIndex])
}

func TestData_SelectErrors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(cfg *config.LoginServer, repo *mockRepository)
		want    uint32
	}{
		{
			name: "no zone assignment",
			prepare: func(_ *config.LoginServer, repo *mockRepository) {
				repo.ZoneAssignmentFunc = func(context.Context, uint32, uint32) (*model.ZoneAssignment, error) {
					return nil, nil
				}
			},
			want: serverpackets.ErrRegistration1,
		},
		{
			name: "maintenance",
			prepare: func(cfg *config.LoginServer, repo *mockRepository) {
				// the GM account gets through the gate, its character is not a GM
				cfg.MaintenanceMode = true
				repo.HasGMCharacterFunc = func(context.Context, uint32) (bool, error) {
					return true, nil
				}
			},
			want: serverpackets.ErrWorldMaintenance,
		},
		{
			name: "already logged in",
			prepare: func(_ *config.LoginServer, repo *mockRepository) {
				repo.SessionExistsFunc = func(context.Context, uint32) (bool, error) {
					return true, nil
				}
			},
			want: serverpackets.ErrCharacterLoggedIn,
		},
		{
			name: "login limit",
			prepare: func(cfg *config.LoginServer, repo *mockRepository) {
				cfg.LoginLimit = 1
				repo.CountSessionsByClientFunc = loginThenFull()
			},
			want: serverpackets.ErrCharacterParams,
		},
		{
			name: "session insert fails",
			prepare: func(_ *config.LoginServer, repo *mockRepository) {
				repo.OpenSessionFunc = func(context.Context, model.AccountSession) error {
					return testutil.ErrSimulated
				}
			},
			want: serverpackets.ErrRegistration2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			repo := withTestAccount(&mockRepository{})
			repo.ZoneAssignmentFunc = zoneAt(0)
			tt.prepare(&cfg, repo)

			_, conns := enterWithReservation(t, cfg, repo)
			send(t, conns.data, selectRequest(0x10))
			testutil.AssertViewError(t, tt.want, receive(t, conns.view))
		})
	}
}

// loginThenFull admits the first login and reports the address as full afterwards.
func loginThenFull() func(context.Context, uint32) (int, error) {
	var calls atomic.Int32
	return func(context.Context, uint32) (int, error) {
		n := calls.Add(1)
		return int(min(n-1, 1)), nil
	}
}

func TestData_SelectWithIPException(t *testing.T) {
	cfg := testConfig()
	cfg.LoginLimit = 1

	repo := withTestAccount(&mockRepository{})
	repo.ZoneAssignmentFunc = zoneAt(0)
	repo.CountSessionsByClientFunc = loginThenFull()
	until := time.Now().Add(time.Hour)
	repo.IPExceptionFunc = func(context.Context, uint32) (time.Time, error) {
		return until, nil
	}

	l := startLobby(t, cfg, repo)
	view, data := l.enter(t)
	send(t, view, characterRequest(ViewRequestID, 42, "Aldo"))
	require.Equal(t, serverpackets.Set(), receive(t, data))

	send(t, data, selectRequest(0x10))
	testutil.AssertViewCode(t, serverpackets.ViewSelection, receive(t, view))
}

func TestData_SelectBannedIgnored(t *testing.T) {
	repo := withTestAccount(&mockRepository{})
	repo.ZoneAssignmentFunc = zoneAt(0)
	repo.AccountStatusFunc = func(context.Context, uint32) (model.AccountStatus, bool, error) {
		return model.AccountStatusBanned, true, nil
	}
	repo.OpenSessionFunc = func(context.Context, model.AccountSession) error {
		t.Error("banned account must not open a session")
		return nil
	}

	_, conns := enterWithReservation(t, testConfig(), repo)
	send(t, conns.data, selectRequest(0x10))
	requireSilent(t, conns.view)
}
