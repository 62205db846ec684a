package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/buyercheck/backend/internal/domain"
)

// SQLiteStore implements domain.RecordStore using modernc.org/sqlite.
// Store order is kept in the position column: the front of the store holds
// the smallest position.
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS entities (
	hash               TEXT PRIMARY KEY,
	name               TEXT NOT NULL UNIQUE,
	fields             TEXT NOT NULL,
	normalized_address TEXT NOT NULL DEFAULT '{}',
	position           INTEGER NOT NULL,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_position ON entities(position);
`

// nextFront yields a position ahead of every stored record
const nextFront = `(SELECT COALESCE(MIN(position), 0) - 1 FROM entities)`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.EntityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, name, fields, normalized_address, created_at, updated_at
		 FROM entities ORDER BY position ASC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close() //nolint:errcheck

	records := []domain.EntityRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate entities")
}

func (s *SQLiteStore) Get(ctx context.Context, hash string) (*domain.EntityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, name, fields, normalized_address, created_at, updated_at
		 FROM entities WHERE hash = ?`,
		hash,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) FindByName(ctx context.Context, name string) (*domain.EntityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, name, fields, normalized_address, created_at, updated_at
		 FROM entities WHERE name = ?`,
		name,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) Insert(ctx context.Context, record domain.EntityRecord) error {
	fieldsJSON, addrJSON, err := marshalRecord(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (hash, name, fields, normalized_address, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, `+nextFront+`, ?, ?)`,
		record.IdentityHash, record.Name, fieldsJSON, addrJSON,
		record.CreatedAt.UTC(), record.UpdatedAt.UTC(),
	)
	if err != nil {
		return mapConstraintError(err, "sqlite: insert entity")
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, hash string, record domain.EntityRecord) error {
	fieldsJSON, addrJSON, err := marshalRecord(record)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities
		 SET hash = ?, name = ?, fields = ?, normalized_address = ?,
		     position = `+nextFront+`, created_at = ?, updated_at = ?
		 WHERE hash = ?`,
		record.IdentityHash, record.Name, fieldsJSON, addrJSON,
		record.CreatedAt.UTC(), record.UpdatedAt.UTC(), hash,
	)
	if err != nil {
		return mapConstraintError(err, "sqlite: update entity "+hash)
	}
	return checkRowsAffected(res, hash)
}

func (s *SQLiteStore) Delete(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entities WHERE hash = ?`, hash)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete entity %s", hash)
	}
	return checkRowsAffected(res, hash)
}

func (s *SQLiteStore) SetNormalizedAddress(ctx context.Context, hash string, addr domain.NormalizedAddress) error {
	addrJSON, err := json.Marshal(addr)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal normalized address")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET normalized_address = ? WHERE hash = ?`,
		string(addrJSON), hash,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set normalized address %s", hash)
	}
	return checkRowsAffected(res, hash)
}

func marshalRecord(record domain.EntityRecord) (string, string, error) {
	fields := record.Fields
	if fields == nil {
		fields = domain.Fields{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal fields")
	}
	addrJSON, err := json.Marshal(record.NormalizedAddress)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal normalized address")
	}
	return string(fieldsJSON), string(addrJSON), nil
}

// mapConstraintError turns unique constraint failures into domain errors
func mapConstraintError(err error, msg string) error {
	text := err.Error()
	switch {
	case strings.Contains(text, "UNIQUE constraint failed: entities.name"):
		return eris.Wrap(domain.ErrDuplicateName, msg)
	case strings.Contains(text, "UNIQUE constraint failed: entities.hash"):
		return eris.Wrap(domain.ErrDuplicateContent, msg)
	}
	return eris.Wrap(err, msg)
}

func checkRowsAffected(res sql.Result, hash string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(domain.ErrEntityNotFound, "sqlite: entity %s", hash)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*domain.EntityRecord, error) {
	var r domain.EntityRecord
	var fieldsJSON, addrJSON string

	err := row.Scan(&r.IdentityHash, &r.Name, &fieldsJSON, &addrJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntityNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan entity")
	}

	if err := json.Unmarshal([]byte(fieldsJSON), &r.Fields); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal fields")
	}
	if addrJSON != "" {
		if err := json.Unmarshal([]byte(addrJSON), &r.NormalizedAddress); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal normalized address")
		}
	}
	return &r, nil
}
