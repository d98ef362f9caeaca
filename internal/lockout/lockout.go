// Package lockout stores the per-address account creation lockout.
package lockout

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps backend failures. Callers treat it as locked.
var ErrUnavailable = errors.New("lockout store unavailable")

// Store records "no account creation from this address before T".
type Store interface {
	// Locked reports whether the address is inside its lockout window.
	Locked(ctx context.Context, clientAddress uint32) (bool, error)

	// Lock starts a lockout window of d for the address.
	Lock(ctx context.Context, clientAddress uint32, d time.Duration) error
}
