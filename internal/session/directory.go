package session

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/xilogin/internal/network"
)

// Directory tracks selections through pending → active → closed → evicted.
//
// Pending selections are keyed by client address, active ones by Key. The
// view index remembers which accounts were activated from an address so a
// reconnecting view socket (which carries no account id) can be correlated.
type Directory struct {
	pending sync.Map // map[uint32]*Selection
	active  sync.Map // map[uint64]*Selection

	viewMu       sync.Mutex
	viewAccounts map[uint32][]uint32

	closedMu sync.Mutex
	closed   []*Selection

	interval time.Duration
	now      func() time.Time
	sweeping atomic.Bool
}

// NewDirectory creates an empty directory. interval is both the sweep period
// and the grace period of pending and closed selections.
func NewDirectory(interval time.Duration) *Directory {
	return &Directory{
		viewAccounts: make(map[uint32][]uint32),
		interval:     interval,
		now:          time.Now,
	}
}

// Now returns the directory clock.
func (d *Directory) Now() time.Time {
	return d.now()
}

// AddPending stores sel under the client address. Fails when the address
// already has a pending selection.
func (d *Directory) AddPending(clientAddress uint32, sel *Selection) bool {
	_, loaded := d.pending.LoadOrStore(clientAddress, sel)
	return !loaded
}

// Pending returns the pending selection of an address.
func (d *Directory) Pending(clientAddress uint32) (*Selection, bool) {
	v, ok := d.pending.Load(clientAddress)
	if !ok {
		return nil, false
	}
	return v.(*Selection), true
}

// RemovePending drops the pending selection of an address.
func (d *Directory) RemovePending(clientAddress uint32) {
	d.pending.Delete(clientAddress)
}

// Promote moves the pending selection of an address into the active map.
// It returns the account id when a migration happened. A pending selection
// whose key is still active stays pending.
func (d *Directory) Promote(clientAddress uint32) (uint32, bool) {
	sel, ok := d.Pending(clientAddress)
	if !ok {
		return 0, false
	}

	key := Key(sel.AccountID(), clientAddress)
	if _, loaded := d.active.LoadOrStore(key, sel); loaded {
		return 0, false
	}
	if !d.pending.CompareAndDelete(clientAddress, sel) {
		slog.Warn("unable to remove pending session", "client_address", clientAddress, "account_id", sel.AccountID())
	}

	d.viewMu.Lock()
	ids := d.viewAccounts[clientAddress]
	if !slices.Contains(ids, sel.AccountID()) {
		d.viewAccounts[clientAddress] = append(ids, sel.AccountID())
	}
	d.viewMu.Unlock()

	return sel.AccountID(), true
}

// ViewAccount returns the only account activated from an address.
// Ambiguous or unknown addresses return false.
func (d *Directory) ViewAccount(clientAddress uint32) (uint32, bool) {
	d.viewMu.Lock()
	defer d.viewMu.Unlock()

	ids := d.viewAccounts[clientAddress]
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

func (d *Directory) forgetViewAccount(clientAddress, accountID uint32) {
	d.viewMu.Lock()
	defer d.viewMu.Unlock()

	ids := slices.DeleteFunc(d.viewAccounts[clientAddress], func(id uint32) bool {
		return id == accountID
	})
	if len(ids) == 0 {
		delete(d.viewAccounts, clientAddress)
		return
	}
	d.viewAccounts[clientAddress] = ids
}

// Active returns the active selection for key.
func (d *Directory) Active(key uint64) (*Selection, bool) {
	v, ok := d.active.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Selection), true
}

// IsActive reports whether key has an active selection.
func (d *Directory) IsActive(key uint64) bool {
	_, ok := d.active.Load(key)
	return ok
}

// ActiveCount returns the number of active selections.
func (d *Directory) ActiveCount() int {
	n := 0
	d.active.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// DetachView releases the view socket of the selection under key. The
// selection is closed when no socket remains.
func (d *Directory) DetachView(key uint64, c *network.Client) {
	sel, ok := d.Active(key)
	if !ok {
		return
	}
	if sel.detachView(c) {
		d.close(key, sel)
	}
}

// DetachData releases the data socket of the selection under key. When the
// selection closes, its account is dropped from the view index of the address.
func (d *Directory) DetachData(key uint64, c *network.Client) {
	sel, ok := d.Active(key)
	if !ok {
		return
	}
	if !sel.detachData(c) {
		slog.Debug("data socket disconnected, view still attached", "account_id", sel.AccountID())
		return
	}
	if d.close(key, sel) {
		d.forgetViewAccount(uint32(key), sel.AccountID())
	}
}

// close moves sel to the closed queue once.
func (d *Directory) close(key uint64, sel *Selection) bool {
	if !d.active.CompareAndDelete(key, sel) {
		return false
	}
	sel.markClosed(d.now())

	d.closedMu.Lock()
	d.closed = append(d.closed, sel)
	d.closedMu.Unlock()
	return true
}

// Stats is a point-in-time view of the directory sizes.
type Stats struct {
	Pending int `json:"pending"`
	Active  int `json:"active"`
	Closed  int `json:"closed"`
}

// Stats counts the selections in every state.
func (d *Directory) Stats() Stats {
	var st Stats
	d.pending.Range(func(_, _ any) bool {
		st.Pending++
		return true
	})
	st.Active = d.ActiveCount()

	d.closedMu.Lock()
	st.Closed = len(d.closed)
	d.closedMu.Unlock()
	return st
}

// Info describes one active selection.
type Info struct {
	AccountID     uint32    `json:"account_id"`
	CharacterID   uint32    `json:"character_id"`
	CharacterName string    `json:"character_name"`
	ViewAttached  bool      `json:"view_attached"`
	DataAttached  bool      `json:"data_attached"`
	Authenticated time.Time `json:"authenticated"`
}

// ActiveSessions lists active selections ordered by account id.
func (d *Directory) ActiveSessions() []Info {
	var out []Info
	d.active.Range(func(_, v any) bool {
		sel := v.(*Selection)
		id, name := sel.Character()
		view, data := sel.Sockets()
		out = append(out, Info{
			AccountID:     sel.AccountID(),
			CharacterID:   id,
			CharacterName: name,
			ViewAttached:  view != nil,
			DataAttached:  data != nil,
			Authenticated: sel.Authenticated(),
		})
		return true
	})
	slices.SortFunc(out, func(a, b Info) int {
		return cmp.Compare(a.AccountID, b.AccountID)
	})
	return out
}
