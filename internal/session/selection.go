package session

import (
	"sync"
	"time"

	"github.com/udisondev/xilogin/internal/network"
)

// Key packs the account id into the high half and the client address into
// the low half. One key is one (account, originating ip) pair.
func Key(accountID, clientAddress uint32) uint64 {
	return uint64(accountID)<<32 | uint64(clientAddress)
}

// Selection is one logged-in player across the auth, view and data sockets.
type Selection struct {
	accountID     uint32
	authenticated time.Time
	hardwareID    string

	mu            sync.Mutex
	characterID   uint32
	characterName string
	view          *network.Client
	data          *network.Client
	closed        time.Time
}

// NewSelection creates a selection authenticated at t.
func NewSelection(accountID uint32, t time.Time, hardwareID string) *Selection {
	return &Selection{
		accountID:     accountID,
		authenticated: t,
		hardwareID:    hardwareID,
	}
}

func (s *Selection) AccountID() uint32        { return s.accountID }
func (s *Selection) Authenticated() time.Time { return s.authenticated }
func (s *Selection) HardwareID() string       { return s.hardwareID }

// Character returns the reserved character id and name.
func (s *Selection) Character() (id uint32, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.characterID, s.characterName
}

// SetCharacter stores the character reserved by the view socket.
func (s *Selection) SetCharacter(id uint32, name string) {
	s.mu.Lock()
	s.characterID = id
	s.characterName = name
	s.mu.Unlock()
}

// SetCharacterName stores a validated name for the next save.
func (s *Selection) SetCharacterName(name string) {
	s.mu.Lock()
	s.characterName = name
	s.mu.Unlock()
}

// View returns the attached view socket or nil.
func (s *Selection) View() *network.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Data returns the attached data socket or nil.
func (s *Selection) Data() *network.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Sockets returns both sockets under one lock.
func (s *Selection) Sockets() (view, data *network.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view, s.data
}

// AttachView binds the view socket and clears the previous character choice.
func (s *Selection) AttachView(c *network.Client) {
	s.mu.Lock()
	s.view = c
	s.characterID = 0
	s.characterName = ""
	s.mu.Unlock()
}

// AttachData binds the data socket.
func (s *Selection) AttachData(c *network.Client) {
	s.mu.Lock()
	s.data = c
	s.mu.Unlock()
}

// detachView clears the view socket if it is still c and reports whether
// the selection now has no socket at all.
func (s *Selection) detachView(c *network.Client) (orphaned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == c {
		s.view = nil
	}
	return s.view == nil && s.data == nil
}

func (s *Selection) detachData(c *network.Client) (orphaned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == c {
		s.data = nil
	}
	return s.view == nil && s.data == nil
}

func (s *Selection) orphaned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view == nil && s.data == nil
}

// Closed returns when the selection lost its last socket (zero while active).
func (s *Selection) Closed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Selection) markClosed(t time.Time) {
	s.mu.Lock()
	s.closed = t
	s.mu.Unlock()
}
