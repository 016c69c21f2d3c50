package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool      Pool
	batchSize int
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, batchSize int) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresWithPool(pool, batchSize), nil
}

func newPostgresWithPool(pool Pool, batchSize int) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultWriteBatchSize
	}
	return &PostgresStore{pool: pool, batchSize: batchSize}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clinics (
	id         TEXT PRIMARY KEY,
	slug       TEXT NOT NULL,
	name_key   TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS import_logs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	success     BOOLEAN NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL,
	doc         JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clinics_name_key ON clinics(name_key text_pattern_ops);
CREATE INDEX IF NOT EXISTS idx_clinics_address ON clinics(address, city, state);
CREATE INDEX IF NOT EXISTS idx_clinics_phone ON clinics(phone);
CREATE INDEX IF NOT EXISTS idx_import_logs_started_at ON import_logs(started_at DESC);
`

const postgresUpsert = `INSERT INTO clinics (id, slug, name_key, address, city, state, phone, doc, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
	slug = EXCLUDED.slug, name_key = EXCLUDED.name_key, address = EXCLUDED.address,
	city = EXCLUDED.city, state = EXCLUDED.state, phone = EXCLUDED.phone,
	doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Clinic, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM clinics WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "postgres: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s", id)
	}
	return decodeClinic(doc)
}

func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM clinics WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: exists %s", id)
	}
	return exists, nil
}

func (s *PostgresStore) Put(ctx context.Context, c *model.Clinic) error {
	args, err := clinicArgs(c)
	if err != nil {
		return err
	}
	args = append(args, c.UpdatedAt)
	if _, err := s.pool.Exec(ctx, postgresUpsert, args...); err != nil {
		return eris.Wrapf(err, "postgres: put %s", c.ID)
	}
	return nil
}

// PutBatch writes documents in transactions of at most the configured batch
// size.
func (s *PostgresStore) PutBatch(ctx context.Context, cs []*model.Clinic) error {
	for _, part := range chunk(cs, s.batchSize) {
		if err := s.putChunk(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) putChunk(ctx context.Context, cs []*model.Clinic) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, c := range cs {
		args, err := clinicArgs(c)
		if err != nil {
			return err
		}
		args = append(args, c.UpdatedAt)
		if _, err := tx.Exec(ctx, postgresUpsert, args...); err != nil {
			return eris.Wrapf(err, "postgres: batch put %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit batch")
}

func (s *PostgresStore) Query(ctx context.Context, filters ...Filter) ([]*model.Clinic, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	query := `SELECT doc FROM clinics WHERE true`
	var args []any
	for _, f := range filters {
		args = append(args, filterValue(f))
		n := "$" + strconv.Itoa(len(args))
		switch f.Op {
		case OpEq:
			query += ` AND ` + f.Field + ` = ` + n
		case OpPrefix:
			query += ` AND starts_with(` + f.Field + `, ` + n + `)`
		}
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query clinics")
	}
	defer rows.Close()

	var out []*model.Clinic
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan clinic")
		}
		c, err := decodeClinic(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: query clinics iterate")
}

func (s *PostgresStore) AppendImportLog(ctx context.Context, r *model.ImportResult) error {
	snap := r.Snapshot()
	doc, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal import log")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_logs (id, kind, success, started_at, finished_at, doc) VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.Kind, snap.Success, snap.StartedAt, snap.FinishedAt, doc,
	)
	return eris.Wrapf(err, "postgres: insert import log %s", snap.ID)
}

func (s *PostgresStore) ListImportLogs(ctx context.Context, limit int) ([]*model.ImportResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT doc FROM import_logs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list import logs")
	}
	defer rows.Close()

	var out []*model.ImportResult
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan import log")
		}
		r, err := decodeImportLog(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list import logs iterate")
}
