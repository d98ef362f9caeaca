package login

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/network"
	"github.com/udisondev/xilogin/internal/protocol"
	"github.com/udisondev/xilogin/internal/session"
)

// Data request types (byte at offset 0).
const (
	DataRequestCharacters byte = 0xA1
	DataRequestSelect     byte = 0xA2
)

// SessionKey copies the 20-byte key seed of a select request and applies
// the zone-in shift: +4 on the first zone-in of a character, -2 otherwise.
func SessionKey(data []byte, firstZoneIn bool) ([constants.SessionKeyLength]byte, bool) {
	var key [constants.SessionKeyLength]byte
	end := constants.SessionKeyOffset + constants.SessionKeyLength
	if len(data) < end {
		return key, false
	}
	copy(key[:], data[constants.SessionKeyOffset:end])
	if firstZoneIn {
		key[constants.SessionKeyShiftIndex] += constants.SessionKeyFirstZoneShift
	} else {
		key[constants.SessionKeyShiftIndex] -= constants.SessionKeyReturnShift
	}
	return key, true
}

// contentSlots returns the allocated slot count and the number of empty
// slots left for new characters.
func contentSlots(contentIDs uint32, characters int) (allocated uint32, unallocated int) {
	allocated = min(contentIDs, constants.MaxContentIDs)
	return allocated, max(int(allocated)-characters, 0)
}

// DataHandler handles the data socket: roster and world entry.
type DataHandler struct {
	network.NopHandler

	cfg      config.LoginServer
	repo     Repository
	sessions *session.Directory
}

// NewDataHandler creates the data protocol handler.
func NewDataHandler(cfg config.LoginServer, repo Repository, sessions *session.Directory) *DataHandler {
	return &DataHandler{
		cfg:      cfg,
		repo:     repo,
		sessions: sessions,
	}
}

// OnConnected asks the client who it is.
func (h *DataHandler) OnConnected(_ context.Context, c *network.Client) {
	c.Send(serverpackets.WhoAreYou())
}

// OnReceived dispatches by the request byte at offset 0. Responses go to the
// sockets of the selection, never as a direct reply.
func (h *DataHandler) OnReceived(ctx context.Context, c *network.Client, data []byte) []byte {
	request, ok := protocol.ByteAt(data, constants.DataRequestTypeOffset)
	if !ok {
		return nil
	}

	switch request {
	case DataRequestCharacters:
		h.characters(ctx, c, data)
	case DataRequestSelect:
		h.enterWorld(ctx, c, data)
	default:
		slog.Warn("unsupported data request", "conn", c.ID(), "remote", c.RemoteIP(), "request", fmt.Sprintf("0x%02X", request))
	}
	return nil
}

// OnDisconnected detaches the data socket; the selection closes when the view is gone too.
func (h *DataHandler) OnDisconnected(c *network.Client) {
	if key := c.ActiveKey(); key != 0 {
		h.sessions.DetachData(key, c)
	}
	slog.Debug("data socket disconnected", "conn", c.ID(), "account_id", c.AccountID())
}

// characters binds an anonymous socket to its pending selection, or sends
// the roster to both sockets of a bound one.
func (h *DataHandler) characters(ctx context.Context, c *network.Client, data []byte) {
	if c.AccountID() == 0 {
		h.bind(c, data)
		return
	}

	sel, ok := h.sessions.Active(c.ActiveKey())
	if !ok {
		return
	}
	accountID := sel.AccountID()

	contentIDs, err := h.repo.ContentIDs(ctx, accountID)
	if err != nil {
		slog.Error("loading content ids", "account_id", accountID, "err", err)
		return
	}
	entries, err := h.repo.Roster(ctx, accountID, constants.MaxContentIDs)
	if err != nil {
		slog.Error("loading roster", "account_id", accountID, "err", err)
		return
	}

	allocated, unallocated := contentSlots(contentIDs, len(entries))
	var last uint32
	if len(entries) > 0 {
		last = entries[len(entries)-1].CharacterID
	}
	placeholders := serverpackets.Placeholders(last, unallocated)

	view, dataSocket := sel.Sockets()
	if dataSocket != nil {
		dataSocket.Send(serverpackets.CharacterList(byte(allocated), entries, placeholders))
	}
	if view != nil {
		view.Send(serverpackets.Characters(h.cfg.ServerName, allocated, entries, placeholders))
	}
}

// bind ties the socket to the pending selection of its address. The account
// id is set once and never changes afterwards.
func (h *DataHandler) bind(c *network.Client, data []byte) {
	addr := c.ClientAddress()
	sel, ok := h.sessions.Pending(addr)
	if !ok {
		slog.Debug("data socket without pending session", "remote", c.RemoteIP())
		return
	}

	id, ok := protocol.Uint32At(data, constants.DataAccountIDOffset)
	if !ok || id != sel.AccountID() {
		slog.Warn("data socket account mismatch", "remote", c.RemoteIP(), "sent", id, "pending", sel.AccountID())
		return
	}

	if !c.Claim(id) {
		slog.Warn("data socket already connected", "account_id", id, "remote", c.RemoteIP())
		return
	}
	c.SetActiveKey(session.Key(id, addr))
	sel.AttachData(c)
	slog.Debug("data socket bound", "account_id", id, "remote", c.RemoteIP())
}

// enterWorld finalizes the selection: writes the hand-off row for the zone
// server and redirects the view socket there.
func (h *DataHandler) enterWorld(ctx context.Context, c *network.Client, data []byte) {
	accountID := c.AccountID()

	status, found, err := h.repo.AccountStatus(ctx, accountID)
	if err != nil {
		slog.Error("loading account status", "account_id", accountID, "err", err)
		return
	}
	if !found || status != model.AccountStatusNormal {
		slog.Warn("select from disallowed account", "account_id", accountID, "status", status)
		return
	}

	sel, ok := h.sessions.Active(c.ActiveKey())
	if !ok {
		return
	}
	if h.cfg.LogUserIP {
		defer h.recordIP(ctx, c, sel)
	}

	characterID, name := sel.Character()
	reply := func(code uint32) {
		if view := sel.View(); view != nil {
			view.Send(serverpackets.ViewErrorResponse(code))
		}
	}

	zone, err := h.repo.ZoneAssignment(ctx, accountID, characterID)
	if err != nil {
		slog.Error("loading zone assignment", "account_id", accountID, "character_id", characterID, "err", err)
	}
	if zone == nil {
		reply(serverpackets.ErrRegistration1)
		return
	}
	if h.cfg.MaintenanceMode && zone.GMLevel == 0 {
		reply(serverpackets.ErrWorldMaintenance)
		return
	}

	firstZoneIn := zone.PreviousZone == 0
	key, ok := SessionKey(data, firstZoneIn)
	if !ok {
		slog.Warn("short select request", "account_id", accountID, "size", len(data))
		return
	}
	if firstZoneIn {
		if err := h.repo.SetPreviousZone(ctx, characterID, zone.ZoneID); err != nil {
			slog.Warn("storing previous zone", "character_id", characterID, "err", err)
		}
	}

	exists, err := h.repo.SessionExists(ctx, accountID)
	if err != nil {
		slog.Error("checking zone session", "account_id", accountID, "err", err)
		reply(serverpackets.ErrRegistration2)
		return
	}
	if exists {
		reply(serverpackets.ErrCharacterLoggedIn)
		return
	}

	view, dataSocket := sel.Sockets()
	if view == nil || dataSocket == nil {
		slog.Error("socket gone before session commit",
			"account_id", accountID, "character_id", characterID, "name", name,
			"view", view != nil, "data", dataSocket != nil)
		return
	}

	allowed, err := selectAllowed(ctx, h.cfg, h.repo, accountID, c.ClientAddress(), h.sessions.Now())
	if err != nil {
		slog.Error("checking login limit", "account_id", accountID, "err", err)
	}
	if !allowed {
		reply(serverpackets.ErrCharacterParams)
		return
	}

	err = h.repo.OpenSession(ctx, model.AccountSession{
		AccountID:     accountID,
		CharacterID:   characterID,
		SessionKey:    key,
		ServerAddress: zone.ZoneAddress(),
		ServerPort:    zone.ZonePort,
		ClientAddress: c.ClientAddress(),
	})
	if err != nil {
		slog.Error("opening zone session", "account_id", accountID, "character_id", characterID, "err", err)
		reply(serverpackets.ErrRegistration2)
		return
	}

	view.Send(serverpackets.Selection(name, c.HostAddress(), uint32(zone.ZonePort), uint32(h.cfg.SearchPort)))
	view.Disconnect()

	slog.Info("character entering world",
		"account_id", accountID,
		"character_id", characterID,
		"name", name,
		"zone", zone.ZoneID,
		"zone_ip", zone.ZoneIP)
}

func (h *DataHandler) recordIP(ctx context.Context, c *network.Client, sel *session.Selection) {
	characterID, _ := sel.Character()
	err := h.repo.RecordIP(ctx, model.IPRecord{
		LoginTime:   h.sessions.Now().UTC(),
		AccountID:   sel.AccountID(),
		CharacterID: characterID,
		ClientIP:    c.RemoteIP(),
	})
	if err != nil {
		slog.Warn("recording user ip", "account_id", sel.AccountID(), "err", err)
	}
}
