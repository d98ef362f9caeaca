package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/db"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/network"
	"github.com/udisondev/xilogin/internal/protocol"
	"github.com/udisondev/xilogin/internal/session"
)

// View request types (byte at offset 8).
const (
	ViewRequestDelete   byte = 0x14
	ViewRequestContinue byte = 0x1F
	ViewRequestSave     byte = 0x21
	ViewRequestValidate byte = 0x22
	ViewRequestServer   byte = 0x24
	ViewRequestVersion  byte = 0x26
	ViewRequestID       byte = 0x07
)

// characterName — заглавная буква, затем 2-14 строчных.
var characterName = regexp.MustCompile(`^[A-Z][a-z]{2,14}$`)

// FreeCharacterID returns the lowest id not in taken (ascending), starting at 1.
// ok is false when every id up to MaxCharacterID is used.
func FreeCharacterID(taken []uint32) (uint32, bool) {
	free := uint32(1)
	for _, id := range taken {
		if id > free {
			break
		}
		if id == free {
			free++
		}
	}
	if free > constants.MaxCharacterID {
		return 0, false
	}
	return free, true
}

// parseNewCharacter reads the character creation form of a save request.
func parseNewCharacter(data []byte) (model.NewCharacter, bool) {
	if len(data) <= constants.SaveFaceOffset {
		return model.NewCharacter{}, false
	}
	return model.MakeNewCharacter(
		data[constants.SaveRaceOffset],
		data[constants.SaveJobOffset],
		data[constants.SaveNationOffset],
		data[constants.SaveSizeOffset],
		data[constants.SaveFaceOffset],
	), true
}

// ViewHandler handles the view (lobby UI) socket.
type ViewHandler struct {
	network.NopHandler

	cfg             config.LoginServer
	repo            Repository
	sessions        *session.Directory
	expectedVersion uint32

	// saveMu serializes character creation; rng is only used under it.
	saveMu sync.Mutex
	rng    *rand.Rand
}

// NewViewHandler creates the view protocol handler.
func NewViewHandler(cfg config.LoginServer, repo Repository, sessions *session.Directory) (*ViewHandler, error) {
	h := &ViewHandler{
		cfg:      cfg,
		repo:     repo,
		sessions: sessions,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	if cfg.VersionLock != config.VersionLockDisabled {
		v, err := cfg.ExpectedVersion()
		if err != nil {
			return nil, fmt.Errorf("creating view handler: %w", err)
		}
		h.expectedVersion = v
	}
	return h, nil
}

// OnReceived dispatches by the request byte at offset 8. Unknown requests get no response.
func (h *ViewHandler) OnReceived(ctx context.Context, c *network.Client, data []byte) []byte {
	request, ok := protocol.ByteAt(data, constants.ViewRequestTypeOffset)
	if !ok {
		slog.Debug("short view payload", "conn", c.ID(), "size", len(data))
		return nil
	}
	slog.Debug("view request", "conn", c.ID(), "account_id", c.AccountID(), "request", fmt.Sprintf("0x%02X", request))

	switch request {
	case ViewRequestVersion:
		return h.version(ctx, c, data)
	case ViewRequestContinue:
		return h.continueToList(c)
	case ViewRequestServer:
		return h.serverList()
	case ViewRequestID:
		return h.reserve(c, data)
	case ViewRequestSave:
		return h.save(ctx, c, data)
	case ViewRequestValidate:
		return h.validate(ctx, c, data)
	case ViewRequestDelete:
		return h.delete(ctx, c, data)
	}

	slog.Warn("unsupported view request", "conn", c.ID(), "remote", c.RemoteIP(), "request", fmt.Sprintf("0x%02X", request))
	return nil
}

// OnDisconnected detaches the view socket from its selection.
func (h *ViewHandler) OnDisconnected(c *network.Client) {
	if key := c.ActiveKey(); key != 0 {
		h.sessions.DetachView(key, c)
	}
	slog.Debug("view socket disconnected", "conn", c.ID(), "account_id", c.AccountID())
}

func (h *ViewHandler) selection(c *network.Client) (*session.Selection, bool) {
	return h.sessions.Active(c.ActiveKey())
}

// version promotes the pending selection of the address, checks the client
// version and binds the view socket.
func (h *ViewHandler) version(ctx context.Context, c *network.Client, data []byte) []byte {
	addr := c.ClientAddress()
	key := c.ActiveKey()

	promotedID, promoted := h.sessions.Promote(addr)
	if promoted {
		key = session.Key(promotedID, addr)
	}

	// updated loaders send the account id, stock clients send 0
	if id, ok := protocol.Uint32At(data, constants.VersionAccountIDOffset); ok && id != 0 {
		key = session.Key(id, addr)
	} else if !promoted {
		if id, ok := h.sessions.ViewAccount(addr); ok {
			key = session.Key(id, addr)
		}
	}

	sel, ok := h.sessions.Active(key)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrUnableToConnectWorld)
	}
	// до проверок: отключение этого сокета должно закрыть сессию
	c.SetActiveKey(key)

	if !h.validVersion(data) {
		return serverpackets.ViewErrorResponse(serverpackets.ErrGameDataUpdated)
	}
	if !c.Claim(sel.AccountID()) {
		slog.Warn("view socket already connected", "account_id", sel.AccountID(), "remote", c.RemoteIP())
		return serverpackets.ViewErrorResponse(serverpackets.ErrUnableToConnectWorld)
	}

	sel.AttachView(c)

	ent, err := h.repo.Entitlements(ctx, sel.AccountID())
	if err != nil {
		slog.Error("loading entitlements", "account_id", sel.AccountID(), "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal1)
	}
	if ent == nil {
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal1)
	}
	return serverpackets.Version(ent.Expansions, ent.Features)
}

func (h *ViewHandler) validVersion(data []byte) bool {
	if h.cfg.VersionLock == config.VersionLockDisabled {
		return true
	}
	end := constants.VersionOffset + constants.VersionLength
	if len(data) < end {
		return false
	}
	v, err := config.ParseClientVersion(data[constants.VersionOffset:end])
	if err != nil {
		slog.Debug("unparsable client version", "err", err)
		return false
	}

	switch h.cfg.VersionLock {
	case config.VersionLockExact:
		return v == h.expectedVersion
	case config.VersionLockMinimum:
		return v >= h.expectedVersion
	}
	return true
}

func (h *ViewHandler) continueToList(c *network.Client) []byte {
	sel, ok := h.selection(c)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal2)
	}
	dataSocket := sel.Data()
	if dataSocket == nil {
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal2)
	}
	dataSocket.Send(serverpackets.Ready())
	return nil
}

func (h *ViewHandler) serverList() []byte {
	if limit := h.cfg.ServerPopulationLimit; limit > 0 && h.sessions.ActiveCount() > limit {
		return serverpackets.ViewErrorResponse(serverpackets.ErrPopulationLimit)
	}
	return serverpackets.Servers(h.cfg.ServerName)
}

// reserve remembers the character picked on the selection screen.
func (h *ViewHandler) reserve(c *network.Client, data []byte) []byte {
	sel, ok := h.selection(c)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrReservationCancel)
	}
	dataSocket := sel.Data()
	if dataSocket == nil {
		return serverpackets.ViewErrorResponse(serverpackets.ErrReservationCancel)
	}

	id, _ := protocol.Uint32At(data, constants.CharacterIDOffset)
	name := protocol.ExtractPrintable(data, constants.ReserveNameOffset, constants.MaxNameLength)
	sel.SetCharacter(id, name)

	dataSocket.Send(serverpackets.Set())
	return nil
}

// save creates the character named by the last validate request.
func (h *ViewHandler) save(ctx context.Context, c *network.Client, data []byte) []byte {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	sel, ok := h.selection(c)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal3)
	}

	taken, err := h.repo.CharacterIDs(ctx)
	if err != nil {
		slog.Error("loading character ids", "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrCreateRetry)
	}
	id, ok := FreeCharacterID(taken)
	if !ok {
		slog.Error("no character ids left", "max", constants.MaxCharacterID)
		return serverpackets.ViewErrorResponse(serverpackets.ErrNumberOnly)
	}

	nc, ok := parseNewCharacter(data)
	_, name := sel.Character()
	if !ok || !nc.Valid() || !characterName.MatchString(name) {
		slog.Warn("invalid character data", "account_id", sel.AccountID(), "name", name, "character", nc)
		return serverpackets.ViewErrorResponse(serverpackets.ErrCharacterParams)
	}
	nc.Zone = model.StartingZone(nc.Nation, h.rng)

	err = h.repo.CreateCharacter(ctx, sel.AccountID(), id, name, nc, h.cfg.NewCharacterCutscene)
	if errors.Is(err, db.ErrBeginTx) {
		slog.Error("creating character", "account_id", sel.AccountID(), "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrRegistration3)
	}
	if err != nil {
		slog.Error("creating character", "account_id", sel.AccountID(), "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrCreateRetry)
	}
	slog.Info("character created", "account_id", sel.AccountID(), "character_id", id, "name", name, "zone", nc.Zone)

	// gives the world servers time to see the commit before the client asks for the list
	if d := h.cfg.CharacterCreatedDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
	}
	return serverpackets.ViewSuccessResponse()
}

func (h *ViewHandler) validate(ctx context.Context, c *network.Client, data []byte) []byte {
	sel, ok := h.selection(c)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrInternal3)
	}

	name := protocol.ExtractPrintable(data, constants.ValidateNameOffset, constants.ValidateNameLength)
	if !characterName.MatchString(name) {
		return serverpackets.ViewErrorResponse(serverpackets.ErrNameRegistration)
	}

	taken, err := h.repo.NameExists(ctx, name)
	if err != nil {
		slog.Error("checking character name", "name", name, "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrNameRegistration)
	}
	if taken {
		return serverpackets.ViewErrorResponse(serverpackets.ErrNameTaken)
	}

	sel.SetCharacterName(name)
	return serverpackets.ViewSuccessResponse()
}

func (h *ViewHandler) delete(ctx context.Context, c *network.Client, data []byte) []byte {
	if !h.cfg.CharacterDeletion {
		return serverpackets.ViewErrorResponse(serverpackets.ErrDeleteFailed1)
	}

	id, ok := protocol.Uint32At(data, constants.CharacterIDOffset)
	if !ok || id < 1 || id > constants.MaxCharacterID {
		return serverpackets.ViewErrorResponse(serverpackets.ErrDeleteFailed1)
	}
	sel, ok := h.selection(c)
	if !ok {
		return serverpackets.ViewErrorResponse(serverpackets.ErrDeleteFailed1)
	}

	deleted, err := h.repo.SoftDeleteCharacter(ctx, sel.AccountID(), id)
	if err != nil {
		slog.Error("deleting character", "account_id", sel.AccountID(), "character_id", id, "err", err)
		return serverpackets.ViewErrorResponse(serverpackets.ErrDeleteFailed2)
	}
	if !deleted {
		return serverpackets.ViewErrorResponse(serverpackets.ErrDeleteFailed2)
	}

	slog.Info("character deleted", "account_id", sel.AccountID(), "character_id", id)
	return serverpackets.ViewSuccessResponse()
}
