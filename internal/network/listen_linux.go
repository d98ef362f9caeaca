//go:build linux

package network

import (
	"errors"
	"net"
	"syscall"
)

// listenConfig sets SO_REUSEADDR before bind so a restarted lobby can
// rebind ports still in TIME_WAIT.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var opErr error
			err := c.Control(func(fd uintptr) {
				opErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return opErr
		},
	}
}

// applyBacklog re-issues listen(2) on the bound socket; Linux updates the
// accept queue length of a listening socket in place.
func applyBacklog(ln net.Listener, backlog int) error {
	if backlog <= 0 {
		return nil
	}
	tl, ok := ln.(*net.TCPListener)
	if !ok {
		return errors.New("not a TCP listener")
	}
	raw, err := tl.SyscallConn()
	if err != nil {
		return err
	}

	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = syscall.Listen(int(fd), backlog)
	})
	if err != nil {
		return err
	}
	return opErr
}
