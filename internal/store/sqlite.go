package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bloodbuddy/donor-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS donors (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	contact     TEXT NOT NULL,
	blood_group TEXT,
	city        TEXT NOT NULL DEFAULT '',
	latitude    REAL NOT NULL,
	longitude   REAL NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_donors_contact ON donors(contact);
CREATE INDEX IF NOT EXISTS idx_donors_blood_group ON donors(blood_group);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertDonor(ctx context.Context, d model.Donor) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO donors (id, name, contact, blood_group, city, latitude, longitude) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, d.Name, d.Contact, nullableGroup(d.BloodGroup), d.City, d.Latitude, d.Longitude,
	)
	if isSQLiteUnique(err) {
		return "", ErrDuplicateContact
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert donor")
	}
	return id, nil
}

func (s *SQLiteStore) ListDonors(ctx context.Context) ([]model.Donor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, contact, blood_group, city, latitude, longitude FROM donors ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list donors")
	}
	defer rows.Close() //nolint:errcheck

	var donors []model.Donor
	for rows.Next() {
		var d model.Donor
		var group sql.NullString
		if err := rows.Scan(&d.ID, &d.Name, &d.Contact, &group, &d.City, &d.Latitude, &d.Longitude); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan donor")
		}
		if group.Valid {
			d.BloodGroup = model.GroupPtr(model.BloodGroup(group.String))
		}
		donors = append(donors, d)
	}
	return donors, eris.Wrap(rows.Err(), "sqlite: iterate donors")
}

func nullableGroup(g *model.BloodGroup) any {
	if g == nil {
		return nil
	}
	return string(*g)
}

func isSQLiteUnique(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
