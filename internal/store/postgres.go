package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/bloodbuddy/donor-cli/internal/db"
	"github.com/bloodbuddy/donor-cli/internal/model"
)

// migrationLockKey serializes concurrent migrate runs against one database.
const migrationLockKey = 20240601

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS donors (
	seq         BIGSERIAL PRIMARY KEY,
	id          TEXT NOT NULL UNIQUE DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	contact     TEXT NOT NULL,
	blood_group TEXT,
	city        TEXT NOT NULL DEFAULT '',
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT donors_contact_key UNIQUE (contact)
);

CREATE INDEX IF NOT EXISTS idx_donors_blood_group ON donors(blood_group);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

// Migrate creates the donors table under an advisory lock.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return db.WithAdvisoryLock(ctx, s.pool, migrationLockKey, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, postgresMigration)
		return eris.Wrap(err, "postgres: migrate")
	})
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertDonor(ctx context.Context, d model.Donor) (string, error) {
	id := uuid.New().String()
	var group *string
	if d.BloodGroup != nil {
		g := string(*d.BloodGroup)
		group = &g
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO donors (id, name, contact, blood_group, city, latitude, longitude) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, d.Name, d.Contact, group, d.City, d.Latitude, d.Longitude,
	)
	if db.IsUniqueViolation(err) {
		return "", ErrDuplicateContact
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: insert donor")
	}
	return id, nil
}

func (s *PostgresStore) ListDonors(ctx context.Context) ([]model.Donor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, contact, blood_group, city, latitude, longitude FROM donors ORDER BY seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list donors")
	}
	defer rows.Close()

	var donors []model.Donor
	for rows.Next() {
		var d model.Donor
		var group *string
		if err := rows.Scan(&d.ID, &d.Name, &d.Contact, &group, &d.City, &d.Latitude, &d.Longitude); err != nil {
			return nil, eris.Wrap(err, "postgres: scan donor")
		}
		if group != nil {
			d.BloodGroup = model.GroupPtr(model.BloodGroup(*group))
		}
		donors = append(donors, d)
	}
	return donors, eris.Wrap(rows.Err(), "postgres: iterate donors")
}
