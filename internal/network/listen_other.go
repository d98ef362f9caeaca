//go:build !linux

package network

import "net"

func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}

// applyBacklog is a no-op outside Linux; the runtime default backlog is used.
func applyBacklog(net.Listener, int) error {
	return nil
}
