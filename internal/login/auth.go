package login

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/lockout"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/network"
	"github.com/udisondev/xilogin/internal/protocol"
	"github.com/udisondev/xilogin/internal/session"
)

// Authentication request types (high nibble of the request byte).
const (
	RequestLogin  byte = 0x1
	RequestCreate byte = 0x2
	RequestUpdate byte = 0x3
)

// credentials — содержимое запроса аутентификации. Не хранится.
type credentials struct {
	username   string
	password   string
	hardwareID string
}

// parseCredentials extracts username and password and checks their lengths.
func parseCredentials(data []byte) (credentials, bool) {
	creds := credentials{
		username: protocol.ExtractPrintable(data, constants.AuthUsernameOffset, constants.UsernameMaxLength),
		password: protocol.ExtractPrintable(data, constants.AuthPasswordOffset, constants.PasswordMaxLength),
	}
	if len(data) == constants.AuthRequestHardwareSize {
		creds.hardwareID = protocol.ExtractPrintable(data, constants.AuthHardwareIDOffset, constants.AuthHardwareIDLength)
	}

	if n := len(creds.username); n < constants.UsernameMinLength || n > constants.UsernameMaxLength {
		return credentials{}, false
	}
	if n := len(creds.password); n < constants.PasswordMinLength || n > constants.PasswordMaxLength {
		return credentials{}, false
	}
	return creds, true
}

// nextAccountID returns the id of a new account given the current maximum.
func nextAccountID(maxID uint32) (uint32, bool) {
	if maxID == math.MaxUint32 {
		return 0, false
	}
	return max(maxID+1, constants.FirstAccountID), true
}

// AuthHandler handles the authentication socket: login, account creation
// and password change.
type AuthHandler struct {
	network.NopHandler

	cfg      config.LoginServer
	repo     Repository
	sessions *session.Directory
	lockouts lockout.Store

	createMu sync.Mutex

	// changing holds connections allowed to send a new password.
	changing sync.Map // map[uuid.UUID]uint32
}

// NewAuthHandler creates the authentication protocol handler.
func NewAuthHandler(cfg config.LoginServer, repo Repository, sessions *session.Directory, lockouts lockout.Store) *AuthHandler {
	return &AuthHandler{
		cfg:      cfg,
		repo:     repo,
		sessions: sessions,
		lockouts: lockouts,
	}
}

// OnAuthenticating handles one credential payload. Requests of any other size
// than 33 or 50 bytes are dropped without a response.
func (h *AuthHandler) OnAuthenticating(ctx context.Context, c *network.Client, data []byte) ([]byte, bool) {
	if len(data) != constants.AuthRequestSize && len(data) != constants.AuthRequestHardwareSize {
		slog.Debug("auth request of unexpected size", "conn", c.ID(), "remote", c.RemoteIP(), "size", len(data))
		return nil, false
	}

	creds, ok := parseCredentials(data)
	if !ok {
		return serverpackets.AuthError(serverpackets.AuthFail), false
	}

	request := data[constants.AuthRequestTypeOffset] >> 4
	slog.Info("auth request", "conn", c.ID(), "remote", c.RemoteIP(), "login", creds.username, "request", request)

	switch request {
	case RequestLogin:
		return h.login(ctx, c, creds)
	case RequestCreate:
		return h.create(ctx, c, creds)
	case RequestUpdate:
		return h.update(ctx, c, creds)
	}
	return serverpackets.AuthError(serverpackets.AuthFail), false
}

// authenticate checks credentials and binds the account to the connection.
// On failure it returns the error response; drop means close without one.
func (h *AuthHandler) authenticate(ctx context.Context, c *network.Client, creds credentials) (acc *model.Account, resp []byte, drop bool) {
	acc, err := h.repo.Authenticate(ctx, creds.username, creds.password)
	if err != nil {
		slog.Error("authenticating account", "login", creds.username, "remote", c.RemoteIP(), "err", err)
		return nil, serverpackets.AuthError(serverpackets.AuthFail), false
	}
	if acc == nil {
		return nil, serverpackets.AuthError(serverpackets.AuthInvalid), false
	}
	if !acc.IsNormal() {
		slog.Warn("disallowed login attempt", "login", creds.username, "remote", c.RemoteIP(), "status", acc.Status)
		return nil, nil, true
	}

	key := session.Key(acc.ID, c.ClientAddress())
	if h.sessions.IsActive(key) {
		// closes on socket loss, or on the sweep if it never got one
		return nil, serverpackets.AuthError(serverpackets.AuthWait), false
	}

	c.SetAccountID(acc.ID)
	c.SetActiveKey(key)

	if err := h.repo.TouchAccount(ctx, acc.ID); err != nil {
		slog.Warn("touching account", "account_id", acc.ID, "err", err)
	}
	return acc, nil, false
}

// addPending purges stale zone sessions, checks admission and stores the pending selection.
func (h *AuthHandler) addPending(ctx context.Context, c *network.Client, acc *model.Account, creds credentials) ([]byte, bool) {
	// players may kick themselves out, even from another address
	if err := h.repo.DeleteSessions(ctx, acc.ID); err != nil {
		slog.Warn("purging stale sessions", "account_id", acc.ID, "err", err)
	}

	ok, err := admitted(ctx, h.cfg, h.repo, acc.ID, c.ClientAddress())
	if err != nil {
		slog.Error("checking admission", "account_id", acc.ID, "err", err)
		return serverpackets.AuthError(serverpackets.AuthFail), false
	}
	if !ok {
		return serverpackets.AuthError(serverpackets.AuthTooMany), false
	}

	sel := session.NewSelection(acc.ID, h.sessions.Now(), creds.hardwareID)
	if !h.sessions.AddPending(c.ClientAddress(), sel) {
		slog.Warn("pending session already exists", "account_id", acc.ID, "remote", c.RemoteIP())
		return serverpackets.AuthError(serverpackets.AuthFail), false
	}

	slog.Info("login succeeded", "account_id", acc.ID, "login", acc.Login, "remote", c.RemoteIP())
	return serverpackets.AuthSuccess(acc.ID), true
}

func (h *AuthHandler) login(ctx context.Context, c *network.Client, creds credentials) ([]byte, bool) {
	acc, resp, drop := h.authenticate(ctx, c, creds)
	if drop {
		return nil, false
	}
	if acc == nil {
		return resp, false
	}
	return h.addPending(ctx, c, acc, creds)
}

func (h *AuthHandler) create(ctx context.Context, c *network.Client, creds credentials) ([]byte, bool) {
	if !h.cfg.AccountCreation {
		return serverpackets.AuthError(serverpackets.AuthCreateDisabled), false
	}

	h.createMu.Lock()
	defer h.createMu.Unlock()

	addr := c.ClientAddress()
	locked, err := h.lockouts.Locked(ctx, addr)
	if err != nil {
		slog.Error("checking create lockout", "remote", c.RemoteIP(), "err", err)
		return serverpackets.AuthError(serverpackets.AuthCreateFail), false
	}
	if locked {
		return serverpackets.AuthError(serverpackets.AuthCreateLockout), false
	}

	taken, err := h.repo.LoginExists(ctx, creds.username)
	if err != nil {
		slog.Error("checking login", "login", creds.username, "err", err)
		return serverpackets.AuthError(serverpackets.AuthCreateFail), false
	}
	if taken {
		return serverpackets.AuthError(serverpackets.AuthCreateTaken), false
	}

	maxID, err := h.repo.MaxAccountID(ctx)
	if err != nil {
		slog.Error("querying max account id", "err", err)
		return serverpackets.AuthError(serverpackets.AuthCreateFail), false
	}
	id, ok := nextAccountID(maxID)
	if !ok {
		slog.Error("account ids exhausted", "max", maxID)
		return serverpackets.AuthError(serverpackets.AuthCreateFail), false
	}

	err = h.repo.CreateAccount(ctx, id, creds.username, creds.password)
	if lockErr := h.lockouts.Lock(ctx, addr, h.cfg.CreateLockout); lockErr != nil {
		slog.Warn("starting create lockout", "remote", c.RemoteIP(), "err", lockErr)
	}
	if err != nil {
		slog.Error("creating account", "login", creds.username, "err", err)
		return serverpackets.AuthError(serverpackets.AuthCreateFail), false
	}
	slog.Info("account created", "account_id", id, "login", creds.username, "remote", c.RemoteIP())

	resp, accepted := h.login(ctx, c, creds)
	if !accepted {
		return resp, false
	}
	return append(resp, serverpackets.AuthCreateSucceed), true
}

func (h *AuthHandler) update(ctx context.Context, c *network.Client, creds credentials) ([]byte, bool) {
	if !h.cfg.AccountCreation {
		return serverpackets.AuthError(serverpackets.AuthCreateDisabled), false
	}

	acc, resp, drop := h.authenticate(ctx, c, creds)
	if drop {
		return nil, false
	}
	if acc == nil {
		return resp, false
	}

	h.changing.Store(c.ID(), acc.ID)
	return serverpackets.AuthCode(serverpackets.AuthChangePassword), true
}

// OnReceived handles the new password sent after a change-password request.
// Payloads of any other size are ignored.
func (h *AuthHandler) OnReceived(ctx context.Context, c *network.Client, data []byte) []byte {
	if len(data) != constants.PasswordMaxLength {
		slog.Debug("ignored auth payload", "conn", c.ID(), "size", len(data))
		return nil
	}

	v, ok := h.changing.Load(c.ID())
	if !ok {
		return serverpackets.AuthCode(serverpackets.AuthChangePasswordFail)
	}
	accountID := v.(uint32)

	password := protocol.ExtractPrintable(data, 0, constants.PasswordMaxLength)
	if len(password) < constants.PasswordMinLength {
		return serverpackets.AuthCode(serverpackets.AuthChangePasswordFail)
	}

	if err := h.repo.UpdatePassword(ctx, accountID, password); err != nil {
		slog.Error("updating password", "account_id", accountID, "err", err)
		return serverpackets.AuthCode(serverpackets.AuthChangePasswordFail)
	}

	slog.Info("password changed", "account_id", accountID, "remote", c.RemoteIP())
	return serverpackets.AuthCode(serverpackets.AuthChangePasswordSucceed)
}

// OnDisconnected forgets a pending password change.
func (h *AuthHandler) OnDisconnected(c *network.Client) {
	h.changing.Delete(c.ID())
}
