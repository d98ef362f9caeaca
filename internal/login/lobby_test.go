package login

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/xilogin/internal/config"
	"github.com/udisondev/xilogin/internal/constants"
	"github.com/udisondev/xilogin/internal/lockout"
	"github.com/udisondev/xilogin/internal/login/serverpackets"
	"github.com/udisondev/xilogin/internal/model"
	"github.com/udisondev/xilogin/internal/session"
	"github.com/udisondev/xilogin/internal/testutil"
)

const (
	testLogin    = "player"
	testPassword = "password1"
)

// testLobby — запущенный Server на трёх loopback портах.
type testLobby struct {
	srv  *Server
	repo *mockRepository

	authAddr string
	viewAddr string
	dataAddr string
}

func testConfig() config.LoginServer {
	cfg := config.DefaultLoginServer()
	cfg.CleanupInterval = time.Minute
	cfg.CreateLockout = time.Minute
	return cfg
}

// withTestAccount makes Authenticate accept testLogin/testPassword as account 1000.
func withTestAccount(repo *mockRepository) *mockRepository {
	repo.AuthenticateFunc = func(_ context.Context, login, password string) (*model.Account, error) {
		if login != testLogin || password != testPassword {
			return nil, nil
		}
		return &model.Account{ID: constants.TestAccountID, Login: login, Status: model.AccountStatusNormal}, nil
	}
	return repo
}

func startLobby(t *testing.T, cfg config.LoginServer, repo *mockRepository) *testLobby {
	t.Helper()
	return startLobbyWithLockouts(t, cfg, repo, lockout.NewMemory())
}

func startLobbyWithLockouts(t *testing.T, cfg config.LoginServer, repo *mockRepository, lockouts lockout.Store) *testLobby {
	t.Helper()

	srv, err := NewServer(cfg, repo, lockouts)
	require.NoError(t, err)

	authLn, authAddr := testutil.ListenTCP(t)
	viewLn, viewAddr := testutil.ListenTCP(t)
	dataLn, dataAddr := testutil.ListenTCP(t)

	ctx, cancel := testutil.ContextWithCancel(t)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, authLn, viewLn, dataLn)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("server stopped with error: %v", err)
			}
		case <-time.After(constants.TestServerStartupTimeout):
			t.Error("server did not stop")
		}
	})

	return &testLobby{
		srv:      srv,
		repo:     repo,
		authAddr: authAddr,
		viewAddr: viewAddr,
		dataAddr: dataAddr,
	}
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()

	conn, err := net.DialTimeout("tcp4", addr, constants.TestServerStartupTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn net.Conn, payload []byte) {
	t.Helper()

	_, err := conn.Write(payload)
	require.NoError(t, err)
}

// receive reads exactly one payload.
func receive(t *testing.T, conn net.Conn) []byte {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(constants.TestReadTimeout)))
	buf := make([]byte, 8192)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

// requireClosed expects the server to close conn without sending anything.
func requireClosed(t *testing.T, conn net.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(constants.TestReadTimeout)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.Error(t, err, "expected closed connection, got %x", buf[:n])
	var netErr net.Error
	if errors.As(err, &netErr) {
		require.False(t, netErr.Timeout(), "connection still open")
	}
}

// requireSilent expects no payload within a short window.
func requireSilent(t *testing.T, conn net.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.Error(t, err, "unexpected payload %x", buf[:n])
}

func authRequest(login, password string, request byte) []byte {
	b := make([]byte, constants.AuthRequestSize)
	copy(b[constants.AuthUsernameOffset:], login)
	copy(b[constants.AuthPasswordOffset:], password)
	b[constants.AuthRequestTypeOffset] = request << 4
	return b
}

func viewRequest(request byte) []byte {
	b := make([]byte, constants.VersionAccountIDOffset+4)
	b[constants.ViewRequestTypeOffset] = request
	return b
}

func versionRequest(version string) []byte {
	b := viewRequest(ViewRequestVersion)
	copy(b[constants.VersionOffset:], version)
	return b
}

func dataRequest(request byte, accountID uint32) []byte {
	b := make([]byte, constants.SessionKeyOffset+constants.SessionKeyLength+8)
	b[constants.DataRequestTypeOffset] = request
	binary.LittleEndian.PutUint32(b[constants.DataAccountIDOffset:], accountID)
	return b
}

// login authenticates testLogin and returns the auth connection.
func (l *testLobby) login(t *testing.T) net.Conn {
	t.Helper()

	conn := dial(t, l.authAddr)
	send(t, conn, authRequest(testLogin, testPassword, RequestLogin))
	require.Equal(t, serverpackets.AuthSuccess(constants.TestAccountID), receive(t, conn))
	return conn
}

// enter logs in and brings up a bound data socket and a versioned view socket.
func (l *testLobby) enter(t *testing.T) (view, data net.Conn) {
	t.Helper()

	l.login(t)

	data = dial(t, l.dataAddr)
	require.Equal(t, serverpackets.WhoAreYou(), receive(t, data))
	send(t, data, dataRequest(DataRequestCharacters, constants.TestAccountID))
	testutil.WaitFor(t, func() bool {
		sel, ok := l.srv.Sessions().Pending(constants.TestClientAddress)
		return ok && sel.Data() != nil
	}, constants.TestReadTimeout)

	view = dial(t, l.viewAddr)
	send(t, view, versionRequest("30230920_0"))
	testutil.AssertViewCode(t, serverpackets.ViewVersion, receive(t, view))
	return view, data
}

func sessionKey() uint64 {
	return session.Key(constants.TestAccountID, constants.TestClientAddress)
}

type netConns struct {
	view net.Conn
	data net.Conn
}
