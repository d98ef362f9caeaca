package db

import (
	"context"
	"fmt"

	"github.com/udisondev/xilogin/internal/model"
)

// DeleteSessions removes the accounts_sessions rows of an account.
func (d *DB) DeleteSessions(ctx context.Context, accountID uint32) error {
	err := d.withRetry(ctx, "delete sessions", func(ctx context.Context) error {
		_, err := d.pool.Exec(ctx, `DELETE FROM accounts_sessions WHERE accid = $1`, accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("deleting sessions of %d: %w", accountID, err)
	}
	return nil
}

// SessionExists reports whether the account already has a zone session.
func (d *DB) SessionExists(ctx context.Context, accountID uint32) (bool, error) {
	var exists bool
	err := d.withRetry(ctx, "session exists", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts_sessions WHERE accid = $1)`, accountID,
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("checking session of %d: %w", accountID, err)
	}
	return exists, nil
}

// CountSessionsByClient returns the number of zone sessions opened from a client address.
func (d *DB) CountSessionsByClient(ctx context.Context, clientAddress uint32) (int, error) {
	var n int
	err := d.withRetry(ctx, "count sessions", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM accounts_sessions WHERE client_addr = $1`, clientAddress,
		).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("counting sessions of client %d: %w", clientAddress, err)
	}
	return n, nil
}

// OpenSession inserts the hand-off row and marks the character zoning.
func (d *DB) OpenSession(ctx context.Context, s model.AccountSession) error {
	err := d.withRetry(ctx, "open session", func(ctx context.Context) error {
		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBeginTx, err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		if _, err := tx.Exec(ctx,
			`INSERT INTO accounts_sessions (accid, charid, session_key, server_addr, server_port, client_addr)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			s.AccountID, s.CharacterID, s.SessionKey[:], s.ServerAddress, s.ServerPort, s.ClientAddress,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE char_stats SET zoning = 2 WHERE charid = $1`, s.CharacterID); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("opening session for %d: %w", s.AccountID, err)
	}
	return nil
}

// ClearSessions removes every accounts_sessions row and returns how many were deleted.
func (d *DB) ClearSessions(ctx context.Context) (int64, error) {
	var n int64
	err := d.withRetry(ctx, "clear sessions", func(ctx context.Context) error {
		tag, err := d.pool.Exec(ctx, `DELETE FROM accounts_sessions`)
		n = tag.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clearing sessions: %w", err)
	}
	return n, nil
}

// RecordIP writes one account_ip_record row.
func (d *DB) RecordIP(ctx context.Context, r model.IPRecord) error {
	err := d.withRetry(ctx, "record ip", func(ctx context.Context) error {
		_, err := d.pool.Exec(ctx,
			`INSERT INTO account_ip_record (login_time, accid, charid, client_ip)
			 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
			r.LoginTime, r.AccountID, r.CharacterID, r.ClientIP)
		return err
	})
	if err != nil {
		return fmt.Errorf("recording ip of %d: %w", r.AccountID, err)
	}
	return nil
}
