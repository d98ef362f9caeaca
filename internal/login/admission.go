package login

import (
	"context"
	"fmt"
	"time"

	"github.com/udisondev/xilogin/internal/config"
)

// admitted applies the login admission rule: during maintenance only accounts
// owning a GM character get in, otherwise the per-address session limit applies.
func admitted(ctx context.Context, cfg config.LoginServer, repo Repository, accountID, clientAddress uint32) (bool, error) {
	if cfg.MaintenanceMode {
		gm, err := repo.HasGMCharacter(ctx, accountID)
		if err != nil {
			return false, fmt.Errorf("checking maintenance admission: %w", err)
		}
		return gm, nil
	}
	return underLoginLimit(ctx, cfg, repo, clientAddress)
}

// underLoginLimit reports whether the address has fewer zone sessions than LoginLimit.
func underLoginLimit(ctx context.Context, cfg config.LoginServer, repo Repository, clientAddress uint32) (bool, error) {
	if cfg.LoginLimit <= 0 {
		return true, nil
	}
	n, err := repo.CountSessionsByClient(ctx, clientAddress)
	if err != nil {
		return false, fmt.Errorf("checking login limit: %w", err)
	}
	return n < cfg.LoginLimit, nil
}

// selectAllowed is the login limit checked when entering the world: an
// ip_exceptions row that has not expired lifts the limit for the account.
func selectAllowed(ctx context.Context, cfg config.LoginServer, repo Repository, accountID, clientAddress uint32, now time.Time) (bool, error) {
	if cfg.LoginLimit <= 0 {
		return true, nil
	}
	ok, err := underLoginLimit(ctx, cfg, repo, clientAddress)
	if err != nil || ok {
		return ok, err
	}
	until, err := repo.IPException(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("checking ip exception: %w", err)
	}
	return until.After(now), nil
}
