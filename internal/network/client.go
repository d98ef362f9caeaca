package network

import (
	"encoding/binary"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/udisondev/xilogin/internal/protocol"
)

// Client is one accepted connection on a lobby listener.
// Accessors are safe for concurrent use: a view handler may Send on the data
// socket of the same player from another connection goroutine.
type Client struct {
	id     uuid.UUID
	conn   net.Conn
	server *Server

	remoteIP      string
	clientAddress uint32
	hostAddress   [4]byte

	accountID     atomic.Uint32
	activeKey     atomic.Uint64
	authenticated atomic.Bool
	claimed       atomic.Bool

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func newClient(srv *Server, conn net.Conn) *Client {
	c := &Client{
		id:     uuid.New(),
		conn:   conn,
		server: srv,
	}

	if addr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		c.remoteIP = addr.IP.String()
		c.clientAddress = AddressToUint32(addr.IP)
	} else if conn.RemoteAddr() != nil {
		c.remoteIP = conn.RemoteAddr().String()
	}
	if addr, ok := conn.LocalAddr().(*net.TCPAddr); ok {
		if ip4 := addr.IP.To4(); ip4 != nil {
			copy(c.hostAddress[:], ip4)
		}
	}
	return c
}

// AddressToUint32 packs an IPv4 address in network order (127.0.0.1 → 0x7F000001).
// Non-IPv4 addresses map to 0.
func AddressToUint32(ip net.IP) uint32 {
	ip4 := ip.To4()
	if ip4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(ip4)
}

// ID returns the connection id used in log lines.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// RemoteIP returns the textual remote address.
func (c *Client) RemoteIP() string {
	return c.remoteIP
}

// ClientAddress returns the remote IPv4 address as a 32-bit integer.
func (c *Client) ClientAddress() uint32 {
	return c.clientAddress
}

// HostAddress returns the local IPv4 address bytes the client connected to.
func (c *Client) HostAddress() [4]byte {
	return c.hostAddress
}

// AccountID returns the account bound to this connection (0 when unknown).
func (c *Client) AccountID() uint32 {
	return c.accountID.Load()
}

// SetAccountID binds an account to this connection.
func (c *Client) SetAccountID(id uint32) {
	c.accountID.Store(id)
}

// ActiveKey returns the session directory key of this connection.
func (c *Client) ActiveKey() uint64 {
	return c.activeKey.Load()
}

// SetActiveKey sets the session directory key of this connection.
func (c *Client) SetActiveKey(key uint64) {
	c.activeKey.Store(key)
}

// IsAuthenticated reports whether the authentication gate accepted this client.
func (c *Client) IsAuthenticated() bool {
	return c.authenticated.Load()
}

// Claim registers the client in its server's registry under accountID.
// It fails when another live connection already holds the account.
func (c *Client) Claim(accountID uint32) bool {
	actual, loaded := c.server.clients.LoadOrStore(accountID, c)
	if loaded && actual.(*Client) != c {
		return false
	}
	c.accountID.Store(accountID)
	c.claimed.Store(true)
	return true
}

func (c *Client) release() {
	if c.claimed.Load() {
		c.server.clients.CompareAndDelete(c.AccountID(), c)
	}
}

// Send writes payload to the client. A write error closes the connection.
func (c *Client) Send(payload []byte) bool {
	if len(payload) == 0 {
		return false
	}

	c.writeMu.Lock()
	err := protocol.WritePayload(c.conn, payload)
	c.writeMu.Unlock()

	if err != nil {
		slog.Debug("send failed", "server", c.server.opts.Name, "conn", c.id, "remote", c.remoteIP, "err", err)
		c.Disconnect()
		return false
	}

	c.server.safeCall(c, "sent", func() {
		c.server.handler.OnSent(c, payload)
	})
	return true
}

// Disconnect closes the socket. The read loop observes the close and raises
// OnDisconnected.
func (c *Client) Disconnect() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}
