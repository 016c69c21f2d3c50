package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/clinic-ingest/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	batchSize int
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, batchSize int) (*SQLiteStore, error) {
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if batchSize <= 0 {
		batchSize = DefaultWriteBatchSize
	}
	return &SQLiteStore{db: db, batchSize: batchSize}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clinics (
	id         TEXT PRIMARY KEY,
	slug       TEXT NOT NULL,
	name_key   TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	doc        TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_logs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	success     INTEGER NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	doc         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clinics_name_key ON clinics(name_key);
CREATE INDEX IF NOT EXISTS idx_clinics_address ON clinics(address, city, state);
CREATE INDEX IF NOT EXISTS idx_clinics_phone ON clinics(phone);
CREATE INDEX IF NOT EXISTS idx_import_logs_started_at ON import_logs(started_at);
`

const sqliteUpsert = `INSERT INTO clinics (id, slug, name_key, address, city, state, phone, doc, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	slug = excluded.slug, name_key = excluded.name_key, address = excluded.address,
	city = excluded.city, state = excluded.state, phone = excluded.phone,
	doc = excluded.doc, updated_at = excluded.updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Clinic, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM clinics WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "sqlite: get %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s", id)
	}
	return decodeClinic([]byte(doc))
}

func (s *SQLiteStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM clinics WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: exists %s", id)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Put(ctx context.Context, c *model.Clinic) error {
	args, err := clinicArgs(c)
	if err != nil {
		return err
	}
	args = append(args, c.UpdatedAt.UnixNano())
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, args...); err != nil {
		return eris.Wrapf(err, "sqlite: put %s", c.ID)
	}
	return nil
}

// PutBatch writes documents in transactions of at most the configured batch
// size. A failing chunk rolls back alone; earlier chunks stay committed.
func (s *SQLiteStore) PutBatch(ctx context.Context, cs []*model.Clinic) error {
	for _, part := range chunk(cs, s.batchSize) {
		if err := s.putChunk(ctx, part); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) putChunk(ctx context.Context, cs []*model.Clinic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare batch")
	}
	defer stmt.Close()

	for _, c := range cs {
		args, err := clinicArgs(c)
		if err != nil {
			return err
		}
		args = append(args, c.UpdatedAt.UnixNano())
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return eris.Wrapf(err, "sqlite: batch put %s", c.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit batch")
}

func (s *SQLiteStore) Query(ctx context.Context, filters ...Filter) ([]*model.Clinic, error) {
	if err := validateFilters(filters); err != nil {
		return nil, err
	}

	query := `SELECT doc FROM clinics WHERE 1=1`
	var args []any
	for _, f := range filters {
		switch f.Op {
		case OpEq:
			query += ` AND ` + f.Field + ` = ?`
			args = append(args, filterValue(f))
		case OpPrefix:
			query += ` AND substr(` + f.Field + `, 1, length(?)) = ?`
			v := filterValue(f)
			args = append(args, v, v)
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query clinics")
	}
	defer rows.Close()

	var out []*model.Clinic
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan clinic")
		}
		c, err := decodeClinic([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: query clinics iterate")
}

func (s *SQLiteStore) AppendImportLog(ctx context.Context, r *model.ImportResult) error {
	snap := r.Snapshot()
	doc, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal import log")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO import_logs (id, kind, success, started_at, finished_at, doc) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Kind, boolToInt(snap.Success), snap.StartedAt.UnixNano(), snap.FinishedAt.UnixNano(), string(doc),
	)
	return eris.Wrapf(err, "sqlite: insert import log %s", snap.ID)
}

func (s *SQLiteStore) ListImportLogs(ctx context.Context, limit int) ([]*model.ImportResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM import_logs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list import logs")
	}
	defer rows.Close()

	var out []*model.ImportResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan import log")
		}
		r, err := decodeImportLog([]byte(doc))
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list import logs iterate")
}

// clinicArgs returns the column values shared by both SQL stores, in column
// order, without updated_at.
func clinicArgs(c *model.Clinic) ([]any, error) {
	if err := requireID(c); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal %s", c.ID)
	}
	return []any{
		c.ID, c.Slug, c.NameKey, strings.ToLower(c.Address), strings.ToLower(c.City),
		c.State, c.Phone, string(doc),
	}, nil
}

func decodeClinic(doc []byte) (*model.Clinic, error) {
	var c model.Clinic
	if err := json.Unmarshal(doc, &c); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal clinic")
	}
	return &c, nil
}

func decodeImportLog(doc []byte) (*model.ImportResult, error) {
	var r model.ImportResult
	if err := json.Unmarshal(doc, &r); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal import log")
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
