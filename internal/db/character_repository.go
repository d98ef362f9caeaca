package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/udisondev/xilogin/internal/model"
)

// NewCharacterCutsceneVar marks a character that has not seen the opening cutscene yet.
const NewCharacterCutsceneVar = "HQuest[newCharacterCS]notSeen"

// jobColumns are the char_jobs level columns in job id order.
var jobColumns = [model.JobCount]string{
	"war", "mnk", "whm", "blm", "rdm", "thf", "pld", "drk", "bst", "brd", "rng",
	"sam", "nin", "drg", "smn", "blu", "cor", "pup", "dnc", "sch", "geo", "run",
}

var rosterQuery = func() string {
	jobs := make([]string, len(jobColumns))
	for i, c := range jobColumns {
		jobs[i] = "j." + c
	}
	return `
		SELECT c.charid, c.charname, c.gmlevel,
		       CASE WHEN c.pos_zone = 0 THEN c.pos_prevzone ELSE c.pos_zone END,
		       l.race, s.mjob, l.face, l.size,
		       l.head, l.body, l.hands, l.legs, l.feet, l.main, l.sub,
		       ` + strings.Join(jobs, ", ") + `
		FROM chars c
		JOIN char_look l ON l.charid = c.charid
		JOIN char_stats s ON s.charid = c.charid
		JOIN char_jobs j ON j.charid = c.charid
		WHERE c.accid = $1 AND c.deleted IS NULL
		ORDER BY c.charid
		LIMIT $2
	`
}()

// CharacterIDs returns every allocated character id in ascending order,
// soft-deleted characters included.
func (d *DB) CharacterIDs(ctx context.Context) ([]uint32, error) {
	var ids []uint32
	err := d.withRetry(ctx, "character ids", func(ctx context.Context) error {
		rows, err := d.pool.Query(ctx, `SELECT charid FROM chars ORDER BY charid`)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[uint32])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("querying character ids: %w", err)
	}
	return ids, nil
}

// NameExists reports whether a character name is taken (case-insensitive).
func (d *DB) NameExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := d.withRetry(ctx, "name exists", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM chars WHERE lower(charname) = $1)`, normalizeName(name),
		).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("checking character name %q: %w", name, err)
	}
	return exists, nil
}

// Roster loads up to limit live characters of an account ordered by id.
func (d *DB) Roster(ctx context.Context, accountID uint32, limit int) ([]model.RosterEntry, error) {
	var entries []model.RosterEntry
	err := d.withRetry(ctx, "roster", func(ctx context.Context) error {
		rows, err := d.pool.Query(ctx, rosterQuery, accountID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		entries = entries[:0]
		for rows.Next() {
			var e model.RosterEntry
			dest := []any{
				&e.CharacterID, &e.Name, &e.GMLevel, &e.Zone,
				&e.Race, &e.MainJob, &e.Face, &e.Size,
				&e.Head, &e.Body, &e.Hands, &e.Legs, &e.Feet, &e.MainHand, &e.OffHand,
			}
			for i := range e.JobLevels {
				dest = append(dest, &e.JobLevels[i])
			}
			if err := rows.Scan(dest...); err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("querying roster of %d: %w", accountID, err)
	}
	return entries, nil
}

// CreateCharacter inserts a new character and all its companion rows in one
// transaction. A failure to start the transaction wraps ErrBeginTx.
func (d *DB) CreateCharacter(ctx context.Context, accountID, characterID uint32, name string, c model.NewCharacter, cutscene bool) error {
	stmts := []struct {
		sql  string
		args []any
	}{
		{`INSERT INTO chars (charid, accid, charname, pos_zone, nation) VALUES ($1, $2, $3, $4, $5)`,
			[]any{characterID, accountID, name, c.Zone, c.Nation}},
		{`INSERT INTO char_look (charid, face, race, size) VALUES ($1, $2, $3, $4)`,
			[]any{characterID, c.Face, c.Race, c.Size}},
		{`INSERT INTO char_stats (charid, mjob) VALUES ($1, $2)`,
			[]any{characterID, c.MainJob}},
		{`INSERT INTO char_exp (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_jobs (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_pet (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_points (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_unlocks (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_profile (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`INSERT INTO char_storage (charid) VALUES ($1) ON CONFLICT (charid) DO NOTHING`, []any{characterID}},
		{`DELETE FROM char_inventory WHERE charid = $1`, []any{characterID}},
		{`INSERT INTO char_inventory (charid) VALUES ($1)`, []any{characterID}},
	}
	if cutscene {
		stmts = append(stmts, struct {
			sql  string
			args []any
		}{
			`INSERT INTO char_vars (charid, varname, value) VALUES ($1, $2, 1)
			 ON CONFLICT (charid, varname) DO UPDATE SET value = 1`,
			[]any{characterID, NewCharacterCutsceneVar},
		})
	}

	err := d.withRetry(ctx, "create character", func(ctx context.Context) error {
		tx, err := d.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBeginTx, err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		for _, st := range stmts {
			if _, err := tx.Exec(ctx, st.sql, st.args...); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("creating character %d %q: %w", characterID, name, err)
	}
	return nil
}

// SoftDeleteCharacter marks a character of the account deleted.
// Returns false if no live character matched.
func (d *DB) SoftDeleteCharacter(ctx context.Context, accountID, characterID uint32) (bool, error) {
	var updated int64
	err := d.withRetry(ctx, "delete character", func(ctx context.Context) error {
		tag, err := d.pool.Exec(ctx,
			`UPDATE chars SET deleted = now() WHERE charid = $1 AND accid = $2 AND deleted IS NULL`,
			characterID, accountID)
		updated = tag.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("deleting character %d: %w", characterID, err)
	}
	return updated > 0, nil
}

// ZoneAssignment resolves the zone server a character of the account will
// enter. Returns nil, nil if the character or its zone is unknown.
func (d *DB) ZoneAssignment(ctx context.Context, accountID, characterID uint32) (*model.ZoneAssignment, error) {
	var z model.ZoneAssignment
	err := d.withRetry(ctx, "zone assignment", func(ctx context.Context) error {
		return d.pool.QueryRow(ctx, `
			SELECT c.accid, c.charid, c.gmlevel, c.pos_prevzone, z.zoneid, z.zoneip, z.zoneport
			FROM chars c
			JOIN zone_settings z
			  ON z.zoneid = CASE WHEN c.pos_zone = 0 THEN c.pos_prevzone ELSE c.pos_zone END
			WHERE c.charid = $1 AND c.accid = $2 AND c.deleted IS NULL
		`, characterID, accountID,
		).Scan(&z.AccountID, &z.CharacterID, &z.GMLevel, &z.PreviousZone, &z.ZoneID, &z.ZoneIP, &z.ZonePort)
	})
	if noRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying zone of character %d: %w", characterID, err)
	}
	return &z, nil
}

// SetPreviousZone stores pos_prevzone for a character entering the world for the first time.
func (d *DB) SetPreviousZone(ctx context.Context, characterID uint32, zoneID uint16) error {
	err := d.withRetry(ctx, "set previous zone", func(ctx context.Context) error {
		_, err := d.pool.Exec(ctx, `UPDATE chars SET pos_prevzone = $1 WHERE charid = $2`, zoneID, characterID)
		return err
	})
	if err != nil {
		return fmt.Errorf("updating pos_prevzone of %d: %w", characterID, err)
	}
	return nil
}
