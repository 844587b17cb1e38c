// Package store handles SQLite persistence of the player roster and roll log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/rollstats/internal/dice"
	"github.com/verte-zerg/rollstats/internal/histogram"
	"github.com/verte-zerg/rollstats/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrInvalidPlayer is returned for blank or reserved player names.
var ErrInvalidPlayer = errors.New("invalid player name")

// validateRoll rejects rolls holding a die that could never be counted.
func validateRoll(roll dice.Roll) error {
	for _, term := range roll.Terms {
		die, ok := term.(dice.DieTerm)
		if !ok || !die.IsDie() {
			continue
		}
		if !histogram.ValidFaces(die.Faces()) {
			return fmt.Errorf("%w: d%d", histogram.ErrInvalidFaces, die.Faces())
		}
	}
	return nil
}

// Store wraps SQLite access for the roster and roll log.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			position INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rolls (
			id INTEGER PRIMARY KEY,
			player TEXT NOT NULL,
			rolled_at INTEGER NOT NULL,
			roll_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_rolls_rolled_at ON rolls(rolled_at, id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func validPlayer(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == histogram.AllPlayers {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlayer, name)
	}
	return name, nil
}

// AddPlayer appends a player to the roster. It reports whether the player
// was new.
func (s *Store) AddPlayer(ctx context.Context, name string) (bool, error) {
	return addPlayer(ctx, s.db, name)
}

func addPlayer(ctx context.Context, db execer, name string) (bool, error) {
	name, err := validPlayer(name)
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO players (name, position)
		 VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM players))`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListPlayers returns the roster in registration order.
func (s *Store) ListPlayers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM players ORDER BY position ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var players []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		players = append(players, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return players, nil
}

// InsertRoll appends a roll to the log and returns its id.
func (s *Store) InsertRoll(ctx context.Context, player string, rolledAt time.Time, roll dice.Roll) (int64, error) {
	if err := validateRoll(roll); err != nil {
		return 0, err
	}
	data, err := dice.Encode(roll)
	if err != nil {
		return 0, err
	}
	return insertRoll(ctx, s.db, player, rolledAt, string(data))
}

func insertRoll(ctx context.Context, db execer, player string, rolledAt time.Time, rollJSON string) (int64, error) {
	player, err := validPlayer(player)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO rolls (player, rolled_at, roll_json) VALUES (?, ?, ?)`,
		player, rolledAt.UnixMilli(), rollJSON)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func rollExists(ctx context.Context, tx *sql.Tx, player string, rolledAt time.Time, rollJSON string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM rolls WHERE player = ? AND rolled_at = ? AND roll_json = ?`,
		player, rolledAt.UnixMilli(), rollJSON).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListRolls returns the roll log in chronological order, ties by id.
func (s *Store) ListRolls(ctx context.Context) ([]model.RollRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player, rolled_at, roll_json FROM rolls ORDER BY rolled_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var records []model.RollRecord
	for rows.Next() {
		var rec model.RollRecord
		var rolledAt int64
		var raw string
		if err := rows.Scan(&rec.ID, &rec.Player, &rolledAt, &raw); err != nil {
			return nil, err
		}
		roll, err := dice.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to decode roll %d: %w", rec.ID, err)
		}
		rec.RolledAt = time.UnixMilli(rolledAt)
		rec.Roll = roll
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ImportResult counts what an import added to the log.
type ImportResult struct {
	Players    int
	Rolls      int
	Skipped    int
	Duplicates int
}

// ImportMessages loads a host export in one transaction. Users are added to
// the roster in export order, followed by any message author not listed.
// Malformed rolls, rolls with dice outside [2, histogram.MaxFaces] faces and
// messages without an author are logged and skipped. A roll already logged
// for the same player and timestamp is not inserted again.
func (s *Store) ImportMessages(ctx context.Context, export model.Export, log logrus.FieldLogger) (ImportResult, error) {
	var result ImportResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return result, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	addIfNew := func(name string) error {
		added, aerr := addPlayer(ctx, tx, name)
		if aerr != nil {
			return aerr
		}
		if added {
			result.Players++
		}
		return nil
	}
	for _, u := range export.Users {
		if _, verr := validPlayer(u.Name); verr != nil {
			log.WithField("user", u.ID).WithError(verr).Warn("skipping user")
			continue
		}
		if err = addIfNew(u.Name); err != nil {
			return result, fmt.Errorf("failed to add user %q: %w", u.Name, err)
		}
	}

	names := export.UserNames()
	for i, msg := range export.Messages {
		serialized := msg.SerializedRolls()
		if len(serialized) == 0 {
			continue
		}
		author := strings.TrimSpace(msg.Author(names))
		if _, verr := validPlayer(author); verr != nil {
			log.WithField("message", i).WithError(verr).Warn("skipping message without a player")
			result.Skipped += len(serialized)
			continue
		}
		if err = addIfNew(author); err != nil {
			return result, fmt.Errorf("failed to add author %q: %w", author, err)
		}
		for _, raw := range serialized {
			roll, derr := dice.Decode([]byte(raw))
			if derr == nil {
				derr = validateRoll(roll)
			}
			if derr != nil {
				log.WithFields(logrus.Fields{
					"message": i,
					"player":  author,
				}).WithError(derr).Warn("skipping malformed roll")
				result.Skipped++
				continue
			}
			var exists bool
			if exists, err = rollExists(ctx, tx, author, msg.RolledAt(), raw); err != nil {
				return result, fmt.Errorf("failed to check roll: %w", err)
			}
			if exists {
				result.Duplicates++
				continue
			}
			if _, err = insertRoll(ctx, tx, author, msg.RolledAt(), raw); err != nil {
				return result, fmt.Errorf("failed to insert roll: %w", err)
			}
			result.Rolls++
		}
	}

	if err = tx.Commit(); err != nil {
		return result, err
	}
	return result, nil
}
