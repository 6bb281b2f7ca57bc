// Package store keeps manually clocked work sessions in a local SQLite file.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zhaobenny/mpvwatch/internal/model"
)

const timeLayout = "2006-01-02T15:04:05"

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// Associate is a person sessions are recorded for
type Associate struct {
	ID      int64
	Name    string
	BadgeID string
}

// Session is one manually started work interval. End is nil while open.
type Session struct {
	ID          int64
	AssociateID int64
	Start       time.Time
	End         *time.Time
	WorkType    string
	Area        string
	Role        string
}

// Minutes returns the session length, counting an open session up to now
func (s Session) Minutes(now time.Time) float64 {
	end := now
	if s.End != nil {
		end = *s.End
	}
	d := end.Sub(s.Start).Minutes()
	if d < 0 {
		return 0
	}
	return d
}

// Open opens a SQLite database connection
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The file may live in a synced folder shared with other machines.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(1)

	return &DB{db}, nil
}

// Migrate creates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS associates (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		badge_id TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		associate_id INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		work_type TEXT NOT NULL,
		area TEXT,
		role TEXT,
		FOREIGN KEY (associate_id) REFERENCES associates(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_associate_start ON sessions(associate_id, start_time);
	`

	_, err := db.Exec(schema)
	return err
}

// GetOrCreateAssociate returns the id for badge, creating the associate
// if needed. An empty name defaults to the badge id.
func (db *DB) GetOrCreateAssociate(badgeID, name string) (int64, error) {
	var id int64
	err := db.QueryRow(`SELECT id FROM associates WHERE badge_id = ?`, badgeID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if name == "" {
		name = badgeID
	}
	res, err := db.Exec(`INSERT INTO associates (name, badge_id) VALUES (?, ?)`, name, badgeID)
	if err != nil {
		return 0, fmt.Errorf("failed to create associate: %w", err)
	}
	return res.LastInsertId()
}

// FindAssociate looks up an associate by badge, returning nil if unknown
func (db *DB) FindAssociate(badgeID string) (*Associate, error) {
	a := &Associate{}
	err := db.QueryRow(`SELECT id, name, badge_id FROM associates WHERE badge_id = ?`, badgeID).
		Scan(&a.ID, &a.Name, &a.BadgeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// EndActiveSession closes the associate's open session, if any. It
// reports whether a session was closed.
func (db *DB) EndActiveSession(associateID int64, now time.Time) (bool, error) {
	res, err := db.Exec(`UPDATE sessions SET end_time = ? WHERE associate_id = ? AND end_time IS NULL`,
		now.Format(timeLayout), associateID)
	if err != nil {
		return false, fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// StartSession ends any open session and starts a new one
func (db *DB) StartSession(associateID int64, workType, area, role string, now time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stamp := now.Format(timeLayout)
	if _, err := tx.Exec(`UPDATE sessions SET end_time = ? WHERE associate_id = ? AND end_time IS NULL`,
		stamp, associateID); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO sessions (associate_id, start_time, work_type, area, role) VALUES (?, ?, ?, ?, ?)`,
		associateID, stamp, workType, area, role,
	); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return tx.Commit()
}

// TodaySessions returns the sessions started on now's calendar day
func (db *DB) TodaySessions(associateID int64, now time.Time) ([]Session, error) {
	rows, err := db.Query(
		`SELECT id, associate_id, start_time, end_time, work_type, COALESCE(area, ''), COALESCE(role, '')
		 FROM sessions
		 WHERE associate_id = ? AND date(start_time) = ?
		 ORDER BY start_time`,
		associateID, now.Format("2006-01-02"),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var start string
		var end sql.NullString
		if err := rows.Scan(&s.ID, &s.AssociateID, &start, &end, &s.WorkType, &s.Area, &s.Role); err != nil {
			return nil, err
		}
		if s.Start, err = time.ParseInLocation(timeLayout, start, time.Local); err != nil {
			return nil, fmt.Errorf("bad start time %q: %w", start, err)
		}
		if end.Valid && end.String != "" {
			t, err := time.ParseInLocation(timeLayout, end.String, time.Local)
			if err != nil {
				return nil, fmt.Errorf("bad end time %q: %w", end.String, err)
			}
			s.End = &t
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// IndirectHoursToday sums today's indirect sessions, open ones up to now
func (db *DB) IndirectHoursToday(associateID int64, now time.Time) (float64, error) {
	sessions, err := db.TodaySessions(associateID, now)
	if err != nil {
		return 0, err
	}
	var minutes float64
	for _, s := range sessions {
		if s.WorkType == model.WorkIndirect {
			minutes += s.Minutes(now)
		}
	}
	return minutes / 60, nil
}

// IndirectRolesToday returns the distinct indirect roles worked today, sorted
func (db *DB) IndirectRolesToday(associateID int64, now time.Time) ([]string, error) {
	sessions, err := db.TodaySessions(associateID, now)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var roles []string
	for _, s := range sessions {
		if s.WorkType == model.WorkIndirect && !seen[s.Role] {
			seen[s.Role] = true
			roles = append(roles, s.Role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// Associates returns every associate ordered by name
func (db *DB) Associates() ([]Associate, error) {
	rows, err := db.Query(`SELECT id, name, badge_id FROM associates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Associate
	for rows.Next() {
		var a Associate
		if err := rows.Scan(&a.ID, &a.Name, &a.BadgeID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
