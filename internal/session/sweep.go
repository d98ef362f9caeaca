package session

import (
	"context"
	"log/slog"
	"time"
)

// SweepResult reports one sweep run.
type SweepResult struct {
	PendingRemoved int
	OrphansClosed  int
	ClosedEvicted  int
	Skipped        bool
}

// Sweep drops pending selections older than the interval, closes active
// selections that never got a socket (or lost both before the handlers could
// see it) and evicts closed selections from the head of the queue once their
// grace period is over. Overlapping calls are skipped with a warning.
func (d *Directory) Sweep() SweepResult {
	if !d.sweeping.CompareAndSwap(false, true) {
		slog.Warn("session sweep still running, skipping")
		return SweepResult{Skipped: true}
	}
	defer d.sweeping.Store(false)

	var res SweepResult
	now := d.now()

	d.pending.Range(func(k, v any) bool {
		sel := v.(*Selection)
		if !now.Before(sel.Authenticated().Add(d.interval)) {
			if d.pending.CompareAndDelete(k, sel) {
				res.PendingRemoved++
			}
		}
		return true
	})

	d.active.Range(func(k, v any) bool {
		sel := v.(*Selection)
		if now.Before(sel.Authenticated().Add(d.interval)) || !sel.orphaned() {
			return true
		}
		key := k.(uint64)
		if d.close(key, sel) {
			d.forgetViewAccount(uint32(key), sel.AccountID())
			res.OrphansClosed++
			slog.Warn("closed active session without sockets", "account_id", sel.AccountID())
		}
		return true
	})

	d.closedMu.Lock()
	for len(d.closed) > 0 && !now.Before(d.closed[0].Closed().Add(d.interval)) {
		d.closed[0] = nil
		d.closed = d.closed[1:]
		res.ClosedEvicted++
	}
	d.closedMu.Unlock()

	if res.PendingRemoved > 0 || res.OrphansClosed > 0 || res.ClosedEvicted > 0 {
		slog.Debug("session sweep",
			"pending_removed", res.PendingRemoved,
			"orphans_closed", res.OrphansClosed,
			"closed_evicted", res.ClosedEvicted)
	}
	return res
}

// Run sweeps every interval until ctx is cancelled. Each tick starts the
// sweep on its own goroutine so a slow run is skipped, not queued.
func (d *Directory) Run(ctx context.Context) error {
	if d.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	slog.Info("session sweeper started", "interval", d.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			go d.Sweep()
		}
	}
}
