package network

import (
	"context"
	"net"
)

// Handler receives connection lifecycle events. One Handler is injected per
// Server; its methods run on the connection goroutine that raised the event.
//
// data passed to OnAuthenticating and OnReceived aliases the connection read
// buffer and is only valid until the method returns.
type Handler interface {
	// OnConnecting is called before a Client is created. Returning false closes the socket.
	OnConnecting(remote net.Addr) bool

	// OnConnected is called once per accepted client, before the first read.
	OnConnected(ctx context.Context, c *Client)

	// OnAuthenticating receives the first payload of a gated client. A rejection
	// closes the connection once resp (if any) has been sent.
	OnAuthenticating(ctx context.Context, c *Client, data []byte) (resp []byte, accept bool)

	// OnReceived handles one payload; a non-empty response is sent before the next read.
	OnReceived(ctx context.Context, c *Client, data []byte) []byte

	// OnSent is called after a payload was written to the client.
	OnSent(c *Client, data []byte)

	// OnDisconnected is called exactly once when the connection ends.
	OnDisconnected(c *Client)
}

// NopHandler implements Handler with no-op methods. Embed it to override
// only the events a protocol cares about.
type NopHandler struct{}

func (NopHandler) OnConnecting(net.Addr) bool           { return true }
func (NopHandler) OnConnected(context.Context, *Client) {}
func (NopHandler) OnSent(*Client, []byte)               {}
func (NopHandler) OnDisconnected(*Client)               {}

func (NopHandler) OnReceived(context.Context, *Client, []byte) []byte {
	return nil
}

func (NopHandler) OnAuthenticating(context.Context, *Client, []byte) ([]byte, bool) {
	return nil, true
}
