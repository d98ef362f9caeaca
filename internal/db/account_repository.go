package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/udisondev/xilogin/internal/model"
)

// passwordCost is the bcrypt cost of stored passwords. Tests lower it.
var passwordCost = bcrypt.DefaultCost

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// Authenticate loads the account with the given login and checks the password.
// Returns nil, nil if the login is unknown or the password does not match.
func (d *DB) Authenticate(ctx context.Context, login, password string) (*model.Account, error) {
	var acc model.Account
	err := d.withRetry(ctx, "authenticate", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT id, login, password, status, expansions, features, content_ids, timecreate, timelastmodify
			 FROM accounts WHERE login = $1`, login,
		).Scan(&acc.ID, &acc.Login, &acc.PasswordHash, &acc.Status,
			&acc.Expansions, &acc.Features, &acc.ContentIDs,
			&acc.TimeCreate, &acc.TimeLastModify)
	})
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("comparing password of %q: %w", login, err)
	}
	return &acc, nil
}

// TouchAccount updates timelastmodify on successful login.
func (d *DB) TouchAccount(ctx context.Context, accountID uint32) error {
	err := d.withRetry(ctx, "touch account", func(ctx context.Context) error {
		_, err := d.pool.Exec(ctx, `UPDATE accounts SET timelastmodify = now() WHERE id = $1`, accountID)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating timelastmodify for %d: %w", accountID, err)
	}
	return nil
}

// LoginExists reports whether an account with the given login exists.
func (d *DB) LoginExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := d.withRetry(ctx, "login exists", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE lower(login) = $1)`, normalizeName(login),
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("checking login %q: %w", login, err)
	}
	return exists, nil
}

// MaxAccountID returns the highest account id, 0 if there are no accounts.
func (d *DB) MaxAccountID(ctx context.Context) (uint32, error) {
	var id uint32
	err := d.withRetry(ctx, "max account id", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM accounts`).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("querying max account id: %w", err)
	}
	return id, nil
}

// CreateAccount inserts a new account with status normal.
func (d *DB) CreateAccount(ctx context.Context, id uint32, login, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	err = d.withRetry(ctx, "create account", func(ctx context.Context) error {
		_, err := d.pool.Exec(ctx,
			`INSERT INTO accounts (id, login, password, timecreate, timelastmodify, status, priv)
			 VALUES ($1, $2, $3, now(), now(), $4, 1)`,
			id, login, hash, model.AccountStatusNormal)
		return err
	})
	if err != nil {
		return fmt.Errorf("creating account %q: %w", login, err)
	}
	return nil
}

// UpdatePassword replaces the password of an account.
func (d *DB) UpdatePassword(ctx context.Context, accountID uint32, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	var updated int64
	err = d.withRetry(ctx, "update password", func(ctx context.Context) error {
		tag, err := d.pool.Exec(ctx,
			`UPDATE accounts SET password = $1, timelastmodify = now() WHERE id = $2`,
			hash, accountID)
		updated = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("updating password for %d: %w", accountID, err)
	}
	if updated == 0 {
		return fmt.Errorf("updating password for %d: account not found", accountID)
	}
	return nil
}

// AccountStatus returns the status column. found is false for unknown accounts.
func (d *DB) AccountStatus(ctx context.Context, accountID uint32) (status model.AccountStatus, found bool, err error) {
	err = d.withRetry(ctx, "account status", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, `SELECT status FROM accounts WHERE id = $1`, accountID).Scan(&status)
	})
	if noRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying status of %d: %w", accountID, err)
	}
	return status, true, nil
}

// Entitlements returns the expansion and feature bitmasks.
// Returns nil, nil if the account does not exist.
func (d *DB) Entitlements(ctx context.Context, accountID uint32) (*model.Entitlements, error) {
	var e model.Entitlements
	err := d.withRetry(ctx, "entitlements", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT expansions, features FROM accounts WHERE id = $1`, accountID,
		).Scan(&e.Expansions, &e.Features)
	})
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying entitlements of %d: %w", accountID, err)
	}
	return &e, nil
}

// ContentIDs returns the number of character slots of an account, 0 if unknown.
func (d *DB) ContentIDs(ctx context.Context, accountID uint32) (uint32, error) {
	var n uint32
	err := d.withRetry(ctx, "content ids", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, `SELECT content_ids FROM accounts WHERE id = $1`, accountID).Scan(&n)
	})
	if noRows(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("querying content ids of %d: %w", accountID, err)
	}
	return n, nil
}

// HasGMCharacter reports whether any live character of the account has a gm level.
func (d *DB) HasGMCharacter(ctx context.Context, accountID uint32) (bool, error) {
	var exists bool
	err := d.withRetry(ctx, "has gm", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM chars WHERE accid = $1 AND gmlevel > 0 AND deleted IS NULL)`,
			accountID,
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("checking gm characters of %d: %w", accountID, err)
	}
	return exists, nil
}

// IPException returns the time until which the account ignores the ip login
// limit. Zero time if there is no exception.
func (d *DB) IPException(ctx context.Context, accountID uint32) (time.Time, error) {
	var until time.Time
	err := d.withRetry(ctx, "ip exception", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, `SELECT exception FROM ip_exceptions WHERE accid = $1`, accountID).Scan(&until)
	})
	if noRows(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("querying ip exception of %d: %w", accountID, err)
	}
	return until, nil
}

// normalizeName lowercases names for case-insensitive uniqueness checks.
func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
